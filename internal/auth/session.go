package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/mmynk/flatearth/internal/errors"
	"github.com/mmynk/flatearth/internal/metrics"
	"github.com/mmynk/flatearth/internal/models"
)

// Identity is the signed-in user as the rest of the app sees it.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// State is either signed out (Identity nil) or signed in.
type State struct {
	Identity *Identity
}

// SignedIn reports whether the state carries an identity.
func (s State) SignedIn() bool { return s.Identity != nil }

type subscriber struct {
	id uint64
	fn func(State)

	// since is the last transition covered by the initial call.
	since   uint64
	initial State
	pending bool
}

type transition struct {
	seq   uint64
	state State
}

// ErrSessionClosed is returned when a sign-in completes after the session
// was closed.
var ErrSessionClosed = errors.New("session closed")

// Session tracks one client's authentication state and notifies subscribers
// of every transition, in order. It holds at most one identity at a time.
type Session struct {
	authn  Authenticator
	tokens *JWTManager
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	token       string
	timer       *time.Timer
	subscribers []*subscriber
	nextID      uint64
	seq         uint64
	queue       []transition
	delivering  bool
	closed      bool
}

// NewSession returns a signed-out session.
func NewSession(authn Authenticator, tokens *JWTManager, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		authn:  authn,
		tokens: tokens,
		logger: logger,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the current session token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe calls fn with the current state, then again after every later
// transition. When another delivery is in progress, the initial call is made
// by that delivery before any later transition reaches fn. The returned
// function unsubscribes and may be called repeatedly.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	s.nextID++
	id := s.nextID
	sub := &subscriber{id: id, fn: fn, since: s.seq, initial: s.state}
	s.subscribers = append(s.subscribers, sub)
	if s.delivering {
		sub.pending = true
		s.mu.Unlock()
	} else {
		s.delivering = true
		s.mu.Unlock()

		fn(sub.initial)
		s.deliver()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// SignUp registers a new account and signs it in.
func (s *Session) SignUp(ctx context.Context, email, password string) error {
	user, err := s.authn.Register(ctx, email, "", password)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("sign_up", "rejected").Inc()
		return authError("sign up failed", err)
	}
	metrics.AuthEventsTotal.WithLabelValues("sign_up", "ok").Inc()
	return s.issue(ctx, user)
}

// SignIn verifies credentials and signs the account in.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	user, err := s.authn.Authenticate(ctx, email, password)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("sign_in", "rejected").Inc()
		return authError("sign in failed", err)
	}
	metrics.AuthEventsTotal.WithLabelValues("sign_in", "ok").Inc()
	return s.issue(ctx, user)
}

// Restore attaches an existing token to the session.
func (s *Session) Restore(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return apperrors.Auth("session is no longer valid, please sign in again", err)
	}
	return s.signIn(ctx, token, claims)
}

// SignOut always succeeds locally. Revoking the token with the provider is
// best effort.
func (s *Session) SignOut(ctx context.Context) {
	s.mu.Lock()
	if s.closed || !s.state.SignedIn() {
		s.mu.Unlock()
		return
	}
	token := s.token
	s.setLocked(State{}, "")
	s.mu.Unlock()

	metrics.AuthEventsTotal.WithLabelValues("sign_out", "ok").Inc()
	s.flush()
	s.revoke(ctx, token)
}

// Close stops the expiry timer and drops every subscriber. The session
// delivers no further notifications.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
	s.subscribers = nil
	s.queue = nil
}

func (s *Session) issue(ctx context.Context, user *models.User) error {
	token, claims, err := s.tokens.Generate(user)
	if err != nil {
		return apperrors.Auth("could not start a session", err)
	}
	return s.signIn(ctx, token, claims)
}

func (s *Session) signIn(ctx context.Context, token string, claims *Claims) error {
	identity := claims.Identity()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.revoke(ctx, token)
		return apperrors.Auth("your session has ended, please reload and sign in again", ErrSessionClosed)
	}
	previous := s.token
	s.setLocked(State{Identity: &identity}, token)
	s.timer = time.AfterFunc(time.Until(claims.ExpiresAt.Time), func() { s.expire(token) })
	s.mu.Unlock()

	s.flush()
	if previous != "" && previous != token {
		s.revoke(ctx, previous)
	}
	return nil
}

// expire signs out when the token that armed the timer is still current.
func (s *Session) expire(token string) {
	s.mu.Lock()
	if s.closed || s.token != token {
		s.mu.Unlock()
		return
	}
	email := s.state.Identity.Email
	s.setLocked(State{}, "")
	s.mu.Unlock()

	s.logger.Info("session expired", "email", email)
	s.flush()
}

func (s *Session) setLocked(next State, token string) {
	s.stopTimerLocked()
	s.state = next
	s.token = token
	s.seq++
	s.queue = append(s.queue, transition{seq: s.seq, state: next})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// flush delivers queued states in order. Only one goroutine delivers at a
// time; a transition made from inside a callback is queued and delivered by
// the running loop.
func (s *Session) flush() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	s.mu.Unlock()

	s.deliver()
}

// deliver drains the queue. The caller has set delivering; deliver clears it.
// Pending initial calls go out before the next queued transition, and a
// subscriber only sees transitions newer than its initial state.
func (s *Session) deliver() {
	s.mu.Lock()
	for !s.closed {
		if sub := s.pendingLocked(); sub != nil {
			sub.pending = false
			s.mu.Unlock()
			sub.fn(sub.initial)
			s.mu.Lock()
			continue
		}
		if len(s.queue) == 0 {
			break
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		var fns []func(State)
		for _, sub := range s.subscribers {
			if sub.since < next.seq {
				fns = append(fns, sub.fn)
			}
		}
		s.mu.Unlock()

		for _, fn := range fns {
			fn(next.state)
		}

		s.mu.Lock()
	}
	s.queue = nil
	s.delivering = false
	s.mu.Unlock()
}

func (s *Session) pendingLocked() *subscriber {
	for _, sub := range s.subscribers {
		if sub.pending {
			return sub
		}
	}
	return nil
}

func (s *Session) revoke(ctx context.Context, token string) {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("failed to revoke session token", "error", err)
	}
}

// authError converts an identity provider failure into an AuthError. Credential
// rejections keep the provider's message; anything else gets fallback.
func authError(fallback string, err error) error {
	if IsCredentialError(err) {
		return apperrors.Auth(err.Error(), err)
	}
	return apperrors.Auth(fallback, err)
}
