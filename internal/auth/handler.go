package auth

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rentdesk/rentdesk/internal/platform/httpx"
	"github.com/rentdesk/rentdesk/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	csrf      *shared.CSRFManager
	gate      Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, csrf *shared.CSRFManager, gate Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		csrf:      csrf,
		gate:      gate,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrfToken)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.With(h.gate.Require("")).Get("/me", h.me)
}

type loginRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

type sessionView struct {
	Identity    Identity `json:"identity"`
	Permissions []string `json:"permissions"`
	CSRFToken   string   `json:"csrf_token,omitempty"`
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrf.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	authority := AuthorityFromContext(r.Context())
	if authority == nil {
		h.logger.Error("authority missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	req, err := decodeLogin(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed login payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	ok, err := authority.Login(r.Context(), req.Email, req.Secret)
	if err != nil {
		h.logger.Error("login", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Invalid Credentials", ErrInvalidCredentials.Error())
		return
	}

	token, err := h.csrf.RotateToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
	identity, _ := authority.Identity()
	httpx.JSON(w, http.StatusOK, sessionView{
		Identity:    identity,
		Permissions: authority.Permissions(),
		CSRFToken:   token,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if authority := AuthorityFromContext(r.Context()); authority != nil {
		authority.Logout(r.Context())
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil && h.gate.Sessions != nil {
		h.gate.Sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	authority := AuthorityFromContext(r.Context())
	identity, _ := authority.Identity()
	httpx.JSON(w, http.StatusOK, sessionView{Identity: identity, Permissions: authority.Permissions()})
}

func decodeLogin(r *http.Request) (loginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req loginRequest
		err := httpx.DecodeJSON(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return loginRequest{}, err
	}
	secret := r.PostFormValue("secret")
	if secret == "" {
		secret = r.PostFormValue("password")
	}
	return loginRequest{Email: r.PostFormValue("email"), Secret: secret}, nil
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field() + " failed " + verrs[0].Tag()
	}
	return err.Error()
}
