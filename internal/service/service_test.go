package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/flatearth/internal/auth"
	"github.com/mmynk/flatearth/internal/blob/memory"
	"github.com/mmynk/flatearth/internal/geo"
	"github.com/mmynk/flatearth/internal/geocode"
	"github.com/mmynk/flatearth/internal/middleware"
	"github.com/mmynk/flatearth/internal/reviews"
	"github.com/mmynk/flatearth/internal/storage/sqlite"
)

type testClients struct {
	auth    *AuthServiceClient
	reviews *ReviewServiceClient
	geocode *GeocodeServiceClient
}

// nominatim answers "Paris" and nothing else.
func nominatim() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Paris" {
			_, _ = w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522","display_name":"Paris, France"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
}

// setupTestServer wires every service behind the production interceptors.
func setupTestServer(t *testing.T) (testClients, func()) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, nil)
	authenticator := auth.NewPasswordAuthenticator(store)
	geoServer := nominatim()
	geocoder := geocode.New(geocode.Config{BaseURL: geoServer.URL}, logger)
	reviewStore := reviews.New(store, memory.New("http://localhost:8080"), logger)

	interceptors := connect.WithInterceptors(
		middleware.Auth(jwtManager, ProtectedProcedures...),
		middleware.LoggingInterceptor(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, logger), interceptors))
	mux.Handle(NewReviewServiceHandler(NewReviewService(reviewStore, logger), interceptors))
	mux.Handle(NewGeocodeServiceHandler(NewGeocodeService(geocoder, logger), interceptors))

	server := httptest.NewServer(mux)
	clients := testClients{
		auth:    NewAuthServiceClient(http.DefaultClient, server.URL),
		reviews: NewReviewServiceClient(http.DefaultClient, server.URL),
		geocode: NewGeocodeServiceClient(http.DefaultClient, server.URL),
	}

	cleanup := func() {
		server.Close()
		geoServer.Close()
		store.Close()
	}
	return clients, cleanup
}

func withToken[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func signUp(t *testing.T, c testClients, email string) string {
	t.Helper()
	resp, err := c.auth.SignUp(context.Background(), connect.NewRequest(&SignUpRequest{
		Email:    email,
		Password: "correct horse",
	}))
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if resp.Msg.Token == "" {
		t.Fatal("expected token in SignUp response")
	}
	return resp.Msg.Token
}

func TestSignUpAndGetCurrentUser(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	token := signUp(t, c, "ada@example.com")

	resp, err := c.auth.GetCurrentUser(ctx, withToken(&GetCurrentUserRequest{}, token))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if resp.Msg.User.Email != "ada@example.com" {
		t.Errorf("expected ada@example.com, got %s", resp.Msg.User.Email)
	}
	if resp.Msg.User.DisplayName != "ada" {
		t.Errorf("expected default display name ada, got %s", resp.Msg.User.DisplayName)
	}

	_, err = c.auth.GetCurrentUser(ctx, connect.NewRequest(&GetCurrentUserRequest{}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected Unauthenticated without token, got %v", err)
	}
}

func TestSignUpRejections(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	signUp(t, c, "ada@example.com")

	tests := []struct {
		name     string
		email    string
		password string
		want     connect.Code
	}{
		{"duplicate email", "ada@example.com", "correct horse", connect.CodeAlreadyExists},
		{"weak password", "bob@example.com", "short", connect.CodeInvalidArgument},
		{"bad email", "bob", "correct horse", connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.auth.SignUp(ctx, connect.NewRequest(&SignUpRequest{Email: tt.email, Password: tt.password}))
			if connect.CodeOf(err) != tt.want {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSignInAndSignOut(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	signUp(t, c, "ada@example.com")

	_, err := c.auth.SignIn(ctx, connect.NewRequest(&SignInRequest{Email: "ada@example.com", Password: "wrong password"}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Fatalf("expected Unauthenticated for bad password, got %v", err)
	}

	resp, err := c.auth.SignIn(ctx, connect.NewRequest(&SignInRequest{Email: "ada@example.com", Password: "correct horse"}))
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	token := resp.Msg.Token

	if _, err := c.auth.SignOut(ctx, withToken(&SignOutRequest{}, token)); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	_, err = c.auth.GetCurrentUser(ctx, withToken(&GetCurrentUserRequest{}, token))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected revoked token to be rejected, got %v", err)
	}
}

func TestCreateReviewRequiresAuth(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()

	_, err := c.reviews.CreateReview(context.Background(), connect.NewRequest(&CreateReviewRequest{
		Title:    "T",
		Body:     "B",
		Location: geo.Coordinate{Lat: 1, Lon: 2},
	}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	list, err := c.reviews.ListReviews(context.Background(), connect.NewRequest(&ListReviewsRequest{}))
	if err != nil {
		t.Fatalf("ListReviews failed: %v", err)
	}
	if len(list.Msg.Reviews) != 0 {
		t.Errorf("expected no reviews, got %d", len(list.Msg.Reviews))
	}
}

func TestCreateAndListReviews(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	token := signUp(t, c, "ada@example.com")
	paris := geo.Coordinate{Lat: 48.8566, Lon: 2.3522}

	first, err := c.reviews.CreateReview(ctx, withToken(&CreateReviewRequest{
		Title:    "Eiffel",
		Body:     "Tall",
		Location: geo.Coordinate{Lat: 48.85660001, Lon: 2.35220001},
		Image: &ImageUpload{
			Filename: "tower.png",
			Data:     []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"),
		},
	}, token))
	if err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}
	if first.Msg.Review.AuthorEmail != "ada@example.com" {
		t.Errorf("expected author from token, got %s", first.Msg.Review.AuthorEmail)
	}
	if first.Msg.Review.ImageURL == "" {
		t.Error("expected image URL")
	}

	for _, in := range []*CreateReviewRequest{
		{Title: "Louvre", Body: "Busy", Location: paris},
		{Title: "Big Ben", Body: "Loud", Location: geo.Coordinate{Lat: 51.5007, Lon: -0.1246}},
	} {
		if _, err := c.reviews.CreateReview(ctx, withToken(in, token)); err != nil {
			t.Fatalf("CreateReview failed: %v", err)
		}
	}

	all, err := c.reviews.ListReviews(ctx, connect.NewRequest(&ListReviewsRequest{}))
	if err != nil {
		t.Fatalf("ListReviews failed: %v", err)
	}
	if len(all.Msg.Reviews) != 3 || all.Msg.Reviews[0].Title != "Big Ben" {
		t.Errorf("expected 3 reviews most recent first, got %+v", all.Msg.Reviews)
	}

	near, err := c.reviews.ListReviews(ctx, connect.NewRequest(&ListReviewsRequest{Near: &paris}))
	if err != nil {
		t.Fatalf("ListReviews failed: %v", err)
	}
	if len(near.Msg.Reviews) != 2 {
		t.Fatalf("expected 2 reviews near Paris, got %d", len(near.Msg.Reviews))
	}
	if near.Msg.Reviews[0].Title != "Louvre" || near.Msg.Reviews[1].Title != "Eiffel" {
		t.Errorf("unexpected order: %s, %s", near.Msg.Reviews[0].Title, near.Msg.Reviews[1].Title)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()

	token := signUp(t, c, "ada@example.com")
	_, err := c.reviews.CreateReview(context.Background(), withToken(&CreateReviewRequest{
		Title:    "",
		Body:     "B",
		Location: geo.Coordinate{Lat: 1, Lon: 2},
	}, token))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) && connectErr.Message() != "title is required" {
		t.Errorf("unexpected message %q", connectErr.Message())
	}
}

func TestGeocodeSearch(t *testing.T) {
	c, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	resp, err := c.geocode.Search(ctx, connect.NewRequest(&SearchRequest{Query: "Paris"}))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Msg.Result.Location != (geo.Coordinate{Lat: 48.8566, Lon: 2.3522}) {
		t.Errorf("unexpected location %v", resp.Msg.Result.Location)
	}

	_, err = c.geocode.Search(ctx, connect.NewRequest(&SearchRequest{Query: "Atlantis"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}
