package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rentdesk/rentdesk/internal/platform/httpx"
	"github.com/rentdesk/rentdesk/internal/rbac"
	"github.com/rentdesk/rentdesk/internal/shared"
)

// Middleware attaches a per-request Authority and gates routes on it.
type Middleware struct {
	Registry   *Registry
	Table      rbac.Table
	Sessions   *shared.SessionManager
	Logger     *slog.Logger
	LoginDelay time.Duration
}

// Attach restores the session identity and stores the Authority in the
// request context. It must run after the session middleware.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		authority := m.NewAuthority(shared.SessionFromContext(ctx))
		authority.Restore(ctx)
		next.ServeHTTP(w, r.WithContext(ContextWithAuthority(ctx, authority)))
	})
}

// NewAuthority builds an Authority backed by sess.
func (m Middleware) NewAuthority(sess *shared.Session) *Authority {
	return NewAuthority(m.Registry, m.Table, NewSessionSlot(sess, m.Sessions), AuthorityOptions{
		Logger:     m.Logger,
		LoginDelay: m.LoginDelay,
	})
}

// Require admits the request when the current identity holds required. An
// empty required admits any authenticated identity.
func (m Middleware) Require(required string) func(http.Handler) http.Handler {
	required = strings.TrimSpace(required)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authority := AuthorityFromContext(r.Context())
			if authority == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Login Required", "no session")
				return
			}
			decision := authority.Decide(required)
			switch decision.Outcome {
			case rbac.OutcomeAllowed:
				next.ServeHTTP(w, r)
			case rbac.OutcomePending:
				w.Header().Set("Retry-After", "1")
				httpx.Problem(w, http.StatusServiceUnavailable, "Session Loading", "")
			case rbac.OutcomeDenied:
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.String("role", string(decision.Role)),
						slog.String("permission", required),
						slog.String("path", r.URL.Path))
				}
				httpx.WriteProblem(w, httpx.ProblemDetail{
					Title:  "Permission Denied",
					Status: http.StatusForbidden,
					Detail: "missing permission " + required,
					Role:   string(decision.Role),
				})
			default:
				httpx.Problem(w, http.StatusUnauthorized, "Login Required", "")
			}
		})
	}
}
