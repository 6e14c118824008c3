// Package web serves the server-rendered UI. Every browser gets its own
// application shell, keyed by a session cookie.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/mmynk/flatearth/internal/errors"
	"github.com/mmynk/flatearth/internal/reviews"
	"github.com/mmynk/flatearth/internal/shell"
)

// CookieName holds the browser session id; TokenCookieName holds the
// signed-in user's token so a new shell can resume the session.
const (
	CookieName      = "flatearth_session"
	TokenCookieName = "flatearth_token"
)

// maxFormBytes bounds a review submission: the image plus the text fields.
const maxFormBytes = reviews.MaxImageBytes + 1<<20

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"millis": func(ms int64) string {
		return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
	},
}

// Server renders pages and handles form posts.
type Server struct {
	registry *shell.Registry
	media    http.Handler
	tmpl     *template.Template
	logger   *slog.Logger

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// New parses the embedded templates. media serves uploaded photos; it may be
// nil when the blob store is not served locally.
func New(registry *shell.Registry, media http.Handler, logger *slog.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry: registry,
		media:    media,
		tmpl:     tmpl,
		logger:   logger,
	}, nil
}

// Register mounts the UI routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("POST /search", s.search)
	mux.HandleFunc("POST /auth/signup", s.signUp)
	mux.HandleFunc("POST /auth/signin", s.signIn)
	mux.HandleFunc("POST /auth/signout", s.signOut)
	mux.HandleFunc("POST /reviews", s.submit)
	mux.HandleFunc("POST /refresh", s.refresh)
	if s.media != nil {
		mux.Handle("GET /media/{name}", s.media)
	}
}

// shellFor returns the caller's shell, issuing a session cookie and loading
// reviews the first time.
func (s *Server) shellFor(w http.ResponseWriter, r *http.Request) *shell.Shell {
	id := ""
	if c, err := r.Cookie(CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.New().String()
		s.setCookie(w, CookieName, id)
	}

	sh, created := s.registry.Get(id)
	if created {
		if c, err := r.Cookie(TokenCookieName); err == nil && c.Value != "" {
			if err := sh.Restore(r.Context(), c.Value); err != nil {
				s.clearCookie(w, TokenCookieName)
			}
		}
		// A failed load leaves an empty list and a notice.
		_ = sh.Refresh(r.Context())
	}
	return sh
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// keepToken stores the shell's token after a successful sign-in.
func (s *Server) keepToken(w http.ResponseWriter, sh *shell.Shell) {
	if token := sh.Token(); token != "" {
		s.setCookie(w, TokenCookieName, token)
	}
}

type page struct {
	View shell.View
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	sh := s.shellFor(w, r)
	view := sh.Snapshot()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", page{View: view}); err != nil {
		s.logger.Error("render page", "error", err)
		return
	}
	if view.Notice != nil {
		sh.DismissNotice()
	}
}

func back(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	sh := s.shellFor(w, r)
	_ = sh.Search(r.Context(), r.PostFormValue("q"))
	back(w, r)
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	sh := s.shellFor(w, r)
	if err := sh.SignUp(r.Context(), r.PostFormValue("email"), r.PostFormValue("password")); err == nil {
		s.keepToken(w, sh)
	}
	back(w, r)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	sh := s.shellFor(w, r)
	if err := sh.SignIn(r.Context(), r.PostFormValue("email"), r.PostFormValue("password")); err == nil {
		s.keepToken(w, sh)
	}
	back(w, r)
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	s.shellFor(w, r).SignOut(r.Context())
	s.clearCookie(w, TokenCookieName)
	back(w, r)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	_ = s.shellFor(w, r).Refresh(r.Context())
	back(w, r)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	sh := s.shellFor(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		sh.Fail(r.Context(), "submit", apperrors.Validation("could not read the submitted form", err))
		back(w, r)
		return
	}

	sh.SetTitle(r.FormValue("title"))
	sh.SetBody(r.FormValue("body"))

	image, err := formImage(r)
	if err != nil {
		sh.Fail(r.Context(), "submit", err)
		back(w, r)
		return
	}

	_ = sh.Submit(r.Context(), image)
	back(w, r)
}

// formImage reads the optional "image" file. An empty file input is no image.
func formImage(r *http.Request) (*reviews.Image, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Validation("could not read the image", err)
	}
	defer file.Close()

	if header.Size == 0 && header.Filename == "" {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(file, reviews.MaxImageBytes+1))
	if err != nil {
		return nil, apperrors.Validation("could not read the image", err)
	}
	return &reviews.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
