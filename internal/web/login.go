package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/social-security/patient-office/internal/auth"
	apperrors "github.com/social-security/patient-office/internal/shared/errors"
	"github.com/social-security/patient-office/internal/shared/events"
	"github.com/social-security/patient-office/internal/shared/guard"
	sharedmw "github.com/social-security/patient-office/internal/shared/middleware"
)

const (
	msgMissingFields      = "Veuillez remplir tous les champs"
	msgInvalidCredentials = "Identifiants incorrects"

	defaultLoginTimeout = 5 * time.Second
	defaultEventLimit   = 50
	maxEventLimit       = 500
)

//go:embed templates/*.html
var templateFS embed.FS

var loginTemplate = template.Must(template.ParseFS(templateFS, "templates/login.html"))

// Sessions is the part of the session manager the login flow drives.
type Sessions interface {
	State() auth.State
	Login(ctx context.Context, username, password string) bool
	Logout(ctx context.Context)
}

// EventReader reads back recent session events.
type EventReader interface {
	Recent(ctx context.Context, limit int) ([]events.Event, error)
}

// Config holds the login flow dependencies.
type Config struct {
	Sessions  Sessions
	Directory auth.Directory
	Guard     *guard.Guard
	Limiter   *sharedmw.IPRateLimiter
	Events    EventReader
	Logger    zerolog.Logger
	// LoginTimeout bounds one login; zero means five seconds.
	LoginTimeout time.Duration
}

// Handler serves the login page, login/logout actions and the session
// audit view.
type Handler struct {
	cfg Config
}

// NewHandler creates a new login flow handler
func NewHandler(cfg Config) *Handler {
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = defaultLoginTimeout
	}
	return &Handler{cfg: cfg}
}

// Register adds the public login routes and the guarded admin view to r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/login", h.LoginPage)
	if h.cfg.Limiter != nil {
		r.With(h.cfg.Limiter.Middleware).Post("/login", h.Login)
	} else {
		r.Post("/login", h.Login)
	}
	r.Post("/logout", h.Logout)

	if h.cfg.Guard != nil {
		r.With(
			h.cfg.Guard.Middleware,
			guard.RequirePermission("session", auth.PermSessionAudit),
		).Get("/admin/session-events", h.SessionEvents)
	}
}

type demoAccount struct {
	Username  string
	RoleLabel string
}

type loginView struct {
	Error        string
	Username     string
	From         string
	DemoAccounts []demoAccount
}

// LoginPage renders the login form, or sends an authenticated user on.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	from := SafeRedirect(r.URL.Query().Get("from"))
	if h.cfg.Sessions.State().IsAuthenticated {
		http.Redirect(w, r, from, http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, loginView{From: from})
}

// Login handles the login form submission.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, loginView{Error: msgMissingFields})
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	from := SafeRedirect(r.PostFormValue("from"))

	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		h.render(w, r, http.StatusBadRequest, loginView{
			Error:    msgMissingFields,
			Username: username,
			From:     from,
		})
		return
	}

	// A login runs to completion even if the client goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.LoginTimeout)
	defer cancel()

	if h.cfg.Sessions.Login(ctx, username, password) {
		http.Redirect(w, r, from, http.StatusSeeOther)
		return
	}

	msg := h.cfg.Sessions.State().Error
	if msg == "" {
		msg = msgInvalidCredentials
	}
	h.render(w, r, http.StatusUnauthorized, loginView{
		Error:    msg,
		Username: username,
		From:     from,
	})
}

// Logout ends the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.LoginTimeout)
	defer cancel()

	h.cfg.Sessions.Logout(ctx)
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

// SessionEvents lists the most recent session events, newest first.
func (h *Handler) SessionEvents(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Events == nil {
		apperrors.WriteJSON(w, http.StatusOK, map[string]any{"data": []events.Event{}, "total": 0})
		return
	}

	limit := defaultEventLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxEventLimit {
			apperrors.Write(w, apperrors.BadRequest("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	list, err := h.cfg.Events.Recent(r.Context(), limit)
	if err != nil {
		h.cfg.Logger.Error().Err(err).Msg("failed to read session events")
		apperrors.Write(w, apperrors.Internal(err))
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, map[string]any{
		"data":  list,
		"total": len(list),
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, view loginView) {
	if h.cfg.Directory != nil {
		users, err := h.cfg.Directory.Users(r.Context())
		if err != nil {
			h.cfg.Logger.Warn().Err(err).Msg("failed to list demo accounts")
		}
		for _, u := range users {
			view.DemoAccounts = append(view.DemoAccounts, demoAccount{
				Username:  u.Username,
				RoleLabel: u.Role.Label(),
			})
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := loginTemplate.Execute(w, view); err != nil {
		h.cfg.Logger.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("failed to render login page")
	}
}

// SafeRedirect returns target when it is a local absolute path, otherwise
// "/". The login page itself is never a target.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	if u.Path == guard.LoginPath {
		return "/"
	}
	return target
}
