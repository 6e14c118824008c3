// Package shell owns one client's view state and wires user actions to the
// geocoder, the session and the review store.
package shell

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/mmynk/flatearth/internal/auth"
	apperrors "github.com/mmynk/flatearth/internal/errors"
	"github.com/mmynk/flatearth/internal/geo"
	"github.com/mmynk/flatearth/internal/geocode"
	"github.com/mmynk/flatearth/internal/mapview"
	"github.com/mmynk/flatearth/internal/models"
	"github.com/mmynk/flatearth/internal/reviews"
)

// Geocoder resolves a query to a place.
type Geocoder interface {
	Search(ctx context.Context, query string) (*geocode.Result, error)
}

// ReviewStore writes and lists reviews.
type ReviewStore interface {
	Create(ctx context.Context, in reviews.Input) (*models.Review, error)
	ListAll(ctx context.Context) ([]models.Review, error)
}

// Deps are the collaborators of one Shell. Session belongs to the shell and
// is closed with it.
type Deps struct {
	Geocoder Geocoder
	Reviews  ReviewStore
	Session  *auth.Session
	Logger   *slog.Logger
}

// Options set the initial map.
type Options struct {
	Basemap    mapview.TileLayer
	Center     geo.Coordinate
	Zoom       int
	SearchZoom int
}

// DefaultOptions opens on the default centre at street level.
func DefaultOptions() Options {
	return Options{
		Center:     mapview.DefaultCenter,
		Zoom:       mapview.DefaultZoom,
		SearchZoom: mapview.DefaultZoom,
	}
}

// Shell is the state container for one client. Mutations are serialised by
// mu; network calls run without it.
type Shell struct {
	geocoder Geocoder
	reviews  ReviewStore
	session  *auth.Session
	logger   *slog.Logger
	opts     Options

	mu         sync.Mutex
	searchText string
	label      string
	current    geo.Coordinate
	view       mapview.View
	identity   *auth.Identity
	title      string
	body       string
	cache      []models.Review
	notice     *Notice
	searchSeq  uint64
	closed     bool

	unsubscribe func()
}

// New creates a shell and subscribes it to its session.
func New(deps Deps, opts Options) *Shell {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Zoom == 0 {
		opts.Zoom = mapview.DefaultZoom
	}
	if opts.SearchZoom == 0 {
		opts.SearchZoom = opts.Zoom
	}

	s := &Shell{
		geocoder: deps.Geocoder,
		reviews:  deps.Reviews,
		session:  deps.Session,
		logger:   logger,
		opts:     opts,
		current:  opts.Center,
		view:     mapview.New(opts.Basemap, opts.Center, opts.Zoom),
		cache:    []models.Review{},
	}
	s.unsubscribe = s.session.Subscribe(s.onSessionChange)
	return s
}

func (s *Shell) onSessionChange(st auth.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.identity = st.Identity
}

// Close releases the session subscription and the session. It is safe to
// call more than once.
func (s *Shell) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.unsubscribe()
	s.session.Close()
}

// SetTitle and SetBody update the review form. Submit posts what they hold.
func (s *Shell) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

func (s *Shell) SetBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

// DismissNotice clears the current notice once it has been shown.
func (s *Shell) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = nil
}

// Search looks query up and moves the current coordinate to the result. A
// result that arrives after a newer search was issued is discarded.
func (s *Shell) Search(ctx context.Context, query string) error {
	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.searchText = query
	s.mu.Unlock()

	res, err := s.geocoder.Search(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.searchSeq {
		s.logger.DebugContext(ctx, "discarding stale search result", "query", query, "seq", seq, "latest", s.searchSeq)
		return nil
	}
	if err != nil {
		s.fail(ctx, "search", err)
		return err
	}

	s.current = res.Location
	s.label = res.Label
	s.view.Recenter(res.Location, s.opts.SearchZoom)
	s.notice = nil
	return nil
}

// SignUp, SignIn and SignOut delegate to the session; the identity reaches
// the shell through its subscription.
func (s *Shell) SignUp(ctx context.Context, email, password string) error {
	if err := s.session.SignUp(ctx, email, password); err != nil {
		s.failLocked(ctx, "sign up", err)
		return err
	}
	s.DismissNotice()
	return nil
}

func (s *Shell) SignIn(ctx context.Context, email, password string) error {
	if err := s.session.SignIn(ctx, email, password); err != nil {
		s.failLocked(ctx, "sign in", err)
		return err
	}
	s.DismissNotice()
	return nil
}

// Restore resumes a session from a token issued earlier, such as one kept in
// a browser cookie while the shell was evicted.
func (s *Shell) Restore(ctx context.Context, token string) error {
	if err := s.session.Restore(ctx, token); err != nil {
		s.failLocked(ctx, "restore", err)
		return err
	}
	return nil
}

// Token is the current session token, "" when signed out.
func (s *Shell) Token() string {
	return s.session.Token()
}

func (s *Shell) SignOut(ctx context.Context) {
	s.session.SignOut(ctx)
	s.DismissNotice()
}

// Submit writes the form as a review at the current coordinate for the
// signed-in user, with an optional image. Signed out, it writes nothing. The
// form is cleared only on success.
func (s *Shell) Submit(ctx context.Context, image *reviews.Image) error {
	s.mu.Lock()
	title, body := s.title, s.body
	identity := s.identity
	location := s.current
	s.mu.Unlock()

	if identity == nil {
		err := apperrors.Auth("sign in to post a review", nil)
		s.failLocked(ctx, "submit", err)
		return err
	}

	review, err := s.reviews.Create(ctx, reviews.Input{
		Title:       title,
		Body:        body,
		Location:    location,
		AuthorID:    identity.UserID,
		AuthorEmail: identity.Email,
		Image:       image,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fail(ctx, "submit", err)
		return err
	}
	s.cache = append(s.cache, *review)
	s.title = ""
	s.body = ""
	s.notice = nil
	return nil
}

// Refresh replaces the cached reviews with the store's full set. On failure
// the cache is emptied and a notice set.
func (s *Shell) Refresh(ctx context.Context) error {
	list, err := s.reviews.ListAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.cache = []models.Review{}
		s.fail(ctx, "load reviews", err)
		return err
	}
	s.cache = list
	return nil
}

// Fail records a notice for an action the caller rejected before it reached
// the shell, such as an unreadable upload.
func (s *Shell) Fail(ctx context.Context, action string, err error) {
	s.failLocked(ctx, action, err)
}

func (s *Shell) failLocked(ctx context.Context, action string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail(ctx, action, err)
}

// fail records the notice for a failed action. Callers hold mu.
func (s *Shell) fail(ctx context.Context, action string, err error) {
	n := noticeFor(action, err)
	s.notice = &n
	if errors.Is(err, apperrors.ErrAuth) || errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) {
		s.logger.InfoContext(ctx, "action rejected", "action", action, "error", err)
		return
	}
	s.logger.ErrorContext(ctx, "action failed", "action", action, "error", err)
}

// Snapshot returns a copy of the state for rendering.
func (s *Shell) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SearchText: s.searchText,
		Label:      s.label,
		Current:    s.current,
		Map:        s.view.Config(),
		Title:      s.title,
		Body:       s.body,
		Reviews:    geo.Reverse(geo.Filter(s.cache, s.current, geo.Precision)),
		Total:      len(s.cache),
	}
	if s.identity != nil {
		id := *s.identity
		v.Identity = &id
	}
	if s.notice != nil {
		n := *s.notice
		v.Notice = &n
	}
	return v
}

// View is an immutable rendering of a Shell.
type View struct {
	SearchText string
	Label      string
	Current    geo.Coordinate
	Map        mapview.Config
	Identity   *auth.Identity
	Title      string
	Body       string

	// Reviews are those at Current, most recent first.
	Reviews []models.Review
	Total   int

	Notice *Notice
}

// SignedIn reports whether the view has an identity.
func (v View) SignedIn() bool { return v.Identity != nil }

// AuthorName is the part of the signed-in email before '@'.
func (v View) AuthorName() string {
	if v.Identity == nil {
		return ""
	}
	name, _, _ := strings.Cut(v.Identity.Email, "@")
	return name
}
