package service

import (
	"github.com/mmynk/flatearth/internal/geo"
	"github.com/mmynk/flatearth/internal/geocode"
	"github.com/mmynk/flatearth/internal/models"
)

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

func userFromModel(u *models.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type SignUpResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type SignOutRequest struct{}

type SignOutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// ImageUpload carries photo bytes; Data is base64 in JSON.
type ImageUpload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

type CreateReviewRequest struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Location geo.Coordinate `json:"location"`
	Image    *ImageUpload   `json:"image,omitempty"`
}

type CreateReviewResponse struct {
	Review *models.Review `json:"review"`
}

// ListReviewsRequest optionally restricts the list to reviews at Near,
// compared at the location index precision.
type ListReviewsRequest struct {
	Near *geo.Coordinate `json:"near,omitempty"`
}

type ListReviewsResponse struct {
	Reviews []models.Review `json:"reviews"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Result *geocode.Result `json:"result"`
}
