package guard

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/social-security/patient-office/internal/auth"
	apperrors "github.com/social-security/patient-office/internal/shared/errors"
	"github.com/social-security/patient-office/internal/shared/metrics"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// Kind is the outcome of a guard decision.
type Kind int

const (
	RenderChildren Kind = iota
	RedirectToLogin
	RenderLoading
)

func (k Kind) String() string {
	switch k {
	case RenderChildren:
		return "render"
	case RedirectToLogin:
		return "redirect"
	case RenderLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Decision tells the router what to do with a protected request.
type Decision struct {
	Kind Kind
	// RedirectTo is set for RedirectToLogin.
	RedirectTo string
	// From is the requested path, carried to the login page.
	From string
}

// Decide maps a session state and requested path to a decision.
// Loading wins over everything so a restoring session is never bounced
// to the login page.
func Decide(state auth.State, requested string) Decision {
	switch {
	case state.IsLoading:
		return Decision{Kind: RenderLoading}
	case !state.IsAuthenticated:
		return Decision{
			Kind:       RedirectToLogin,
			RedirectTo: LoginLocation(requested),
			From:       requested,
		}
	default:
		return Decision{Kind: RenderChildren}
	}
}

// LoginLocation builds the login URL carrying from as the return target.
func LoginLocation(from string) string {
	if from == "" {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(from)
}

// SessionSource exposes the current session state.
type SessionSource interface {
	State() auth.State
}

type contextKey string

const userContextKey contextKey = "user"

//go:embed templates/loading.html
var templateFS embed.FS

var loadingPage = template.Must(template.ParseFS(templateFS, "templates/loading.html"))

// Guard protects routes behind the session.
type Guard struct {
	sessions SessionSource
	logger   zerolog.Logger
}

// New creates a Guard reading state from sessions.
func New(sessions SessionSource, logger zerolog.Logger) *Guard {
	return &Guard{sessions: sessions, logger: logger}
}

// Middleware applies Decide to every request.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := g.sessions.State()
		decision := Decide(state, r.URL.Path)
		metrics.RecordGuardDecision(decision.Kind.String())

		switch decision.Kind {
		case RenderLoading:
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			if err := loadingPage.Execute(w, nil); err != nil {
				g.logger.Error().Err(err).Msg("failed to render loading page")
			}
		case RedirectToLogin:
			http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
		default:
			ctx := WithUser(r.Context(), state.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFrom extracts the user placed by the guard.
func UserFrom(ctx context.Context) *auth.User {
	user, ok := ctx.Value(userContextKey).(*auth.User)
	if !ok {
		return nil
	}
	return user
}

// RequireRoles creates middleware that requires one of roles.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFrom(r.Context())
			if user == nil {
				apperrors.Write(w, apperrors.Unauthorized("authentication required"))
				return
			}
			if !auth.HasAnyRole(user, roles...) {
				apperrors.Write(w, apperrors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission allows the roles holding perm and records the
// authorization decision against resourceType.
func RequirePermission(resourceType string, perm auth.Permission) func(http.Handler) http.Handler {
	roles := auth.RolesWith(perm)
	return func(next http.Handler) http.Handler {
		gate := RequireRoles(roles...)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed := auth.HasAnyRole(UserFrom(r.Context()), roles...)
			metrics.RecordAuthorizationDecision(resourceType, string(perm), allowed)
			gate.ServeHTTP(w, r)
		})
	}
}
