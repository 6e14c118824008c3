package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	AuthServiceName    = "flatearth.v1.AuthService"
	ReviewServiceName  = "flatearth.v1.ReviewService"
	GeocodeServiceName = "flatearth.v1.GeocodeService"
)

const (
	AuthServiceSignUpProcedure         = "/flatearth.v1.AuthService/SignUp"
	AuthServiceSignInProcedure         = "/flatearth.v1.AuthService/SignIn"
	AuthServiceSignOutProcedure        = "/flatearth.v1.AuthService/SignOut"
	AuthServiceGetCurrentUserProcedure = "/flatearth.v1.AuthService/GetCurrentUser"
	ReviewServiceCreateReviewProcedure = "/flatearth.v1.ReviewService/CreateReview"
	ReviewServiceListReviewsProcedure  = "/flatearth.v1.ReviewService/ListReviews"
	GeocodeServiceSearchProcedure      = "/flatearth.v1.GeocodeService/Search"
)

// ProtectedProcedures need a valid bearer token.
var ProtectedProcedures = []string{
	AuthServiceGetCurrentUserProcedure,
	ReviewServiceCreateReviewProcedure,
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}

// NewAuthServiceHandler returns the path prefix and handler for the auth service.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AuthServiceSignUpProcedure, connect.NewUnaryHandler(AuthServiceSignUpProcedure, svc.SignUp, opts...))
	mux.Handle(AuthServiceSignInProcedure, connect.NewUnaryHandler(AuthServiceSignInProcedure, svc.SignIn, opts...))
	mux.Handle(AuthServiceSignOutProcedure, connect.NewUnaryHandler(AuthServiceSignOutProcedure, svc.SignOut, opts...))
	mux.Handle(AuthServiceGetCurrentUserProcedure, connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	return "/" + AuthServiceName + "/", mux
}

// NewReviewServiceHandler returns the path prefix and handler for the review service.
func NewReviewServiceHandler(svc *ReviewService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(ReviewServiceCreateReviewProcedure, connect.NewUnaryHandler(ReviewServiceCreateReviewProcedure, svc.CreateReview, opts...))
	mux.Handle(ReviewServiceListReviewsProcedure, connect.NewUnaryHandler(ReviewServiceListReviewsProcedure, svc.ListReviews, opts...))
	return "/" + ReviewServiceName + "/", mux
}

// NewGeocodeServiceHandler returns the path prefix and handler for the geocode service.
func NewGeocodeServiceHandler(svc *GeocodeService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(GeocodeServiceSearchProcedure, connect.NewUnaryHandler(GeocodeServiceSearchProcedure, svc.Search, opts...))
	return "/" + GeocodeServiceName + "/", mux
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{WithJSON()}, opts...)
}

// AuthServiceClient calls the auth service.
type AuthServiceClient struct {
	signUp         *connect.Client[SignUpRequest, SignUpResponse]
	signIn         *connect.Client[SignInRequest, SignInResponse]
	signOut        *connect.Client[SignOutRequest, SignOutResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
}

func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	opts = clientOptions(opts)
	return &AuthServiceClient{
		signUp:         connect.NewClient[SignUpRequest, SignUpResponse](httpClient, baseURL+AuthServiceSignUpProcedure, opts...),
		signIn:         connect.NewClient[SignInRequest, SignInResponse](httpClient, baseURL+AuthServiceSignInProcedure, opts...),
		signOut:        connect.NewClient[SignOutRequest, SignOutResponse](httpClient, baseURL+AuthServiceSignOutProcedure, opts...),
		getCurrentUser: connect.NewClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
	}
}

func (c *AuthServiceClient) SignUp(ctx context.Context, req *connect.Request[SignUpRequest]) (*connect.Response[SignUpResponse], error) {
	return c.signUp.CallUnary(ctx, req)
}

func (c *AuthServiceClient) SignIn(ctx context.Context, req *connect.Request[SignInRequest]) (*connect.Response[SignInResponse], error) {
	return c.signIn.CallUnary(ctx, req)
}

func (c *AuthServiceClient) SignOut(ctx context.Context, req *connect.Request[SignOutRequest]) (*connect.Response[SignOutResponse], error) {
	return c.signOut.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

// ReviewServiceClient calls the review service.
type ReviewServiceClient struct {
	createReview *connect.Client[CreateReviewRequest, CreateReviewResponse]
	listReviews  *connect.Client[ListReviewsRequest, ListReviewsResponse]
}

func NewReviewServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ReviewServiceClient {
	opts = clientOptions(opts)
	return &ReviewServiceClient{
		createReview: connect.NewClient[CreateReviewRequest, CreateReviewResponse](httpClient, baseURL+ReviewServiceCreateReviewProcedure, opts...),
		listReviews:  connect.NewClient[ListReviewsRequest, ListReviewsResponse](httpClient, baseURL+ReviewServiceListReviewsProcedure, opts...),
	}
}

func (c *ReviewServiceClient) CreateReview(ctx context.Context, req *connect.Request[CreateReviewRequest]) (*connect.Response[CreateReviewResponse], error) {
	return c.createReview.CallUnary(ctx, req)
}

func (c *ReviewServiceClient) ListReviews(ctx context.Context, req *connect.Request[ListReviewsRequest]) (*connect.Response[ListReviewsResponse], error) {
	return c.listReviews.CallUnary(ctx, req)
}

// GeocodeServiceClient calls the geocode service.
type GeocodeServiceClient struct {
	search *connect.Client[SearchRequest, SearchResponse]
}

func NewGeocodeServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GeocodeServiceClient {
	return &GeocodeServiceClient{
		search: connect.NewClient[SearchRequest, SearchResponse](httpClient, baseURL+GeocodeServiceSearchProcedure, clientOptions(opts)...),
	}
}

func (c *GeocodeServiceClient) Search(ctx context.Context, req *connect.Request[SearchRequest]) (*connect.Response[SearchResponse], error) {
	return c.search.CallUnary(ctx, req)
}
