package bookings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/platform/httpx"
	"github.com/rentdesk/rentdesk/internal/rbac"
	"github.com/rentdesk/rentdesk/internal/shared"
)

// Handler manages booking endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gate    auth.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, gate: gate}
}

// MountRoutes registers booking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.PermBookingsView))
		r.Get("/", h.listBookings)
		r.Get("/{id}", h.showBooking)
		r.Get("/{id}/transitions", h.listTransitions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.PermBookingsCreate))
		r.Post("/", h.createBooking)
	})
	// The required permission depends on the requested edge, so the
	// lifecycle decides instead of the route.
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(""))
		r.Post("/{id}/transition", h.transitionBooking)
	})
}

type listResponse struct {
	Bookings   []Booking         `json:"bookings"`
	Pagination shared.Pagination `json:"pagination"`
}

type transitionsResponse struct {
	Booking *Booking `json:"booking"`
	Allowed []Status `json:"allowed"`
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromQuery(r.URL.Query())
	req := ListRequest{Limit: page.PerPage, Offset: page.Offset()}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		req.Status = &status
	}
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Bookings:   items,
		Pagination: shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) showBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) listTransitions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, allowed, err := h.service.AllowedTransitions(r.Context(), actorFrom(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if allowed == nil {
		allowed = []Status{}
	}
	httpx.JSON(w, http.StatusOK, transitionsResponse{Booking: b, Allowed: allowed})
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed booking payload")
		return
	}
	b, err := h.service.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) transitionBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Status == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "status required")
		return
	}
	b, err := h.service.Transition(r.Context(), actorFrom(r), id, req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var terr *TransitionError
	errors.As(err, &terr)
	switch {
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrPermissionDenied):
		problem := httpx.ProblemDetail{Title: "Permission Denied", Status: http.StatusForbidden, Detail: err.Error()}
		if terr != nil {
			problem.Role = string(terr.Role)
		} else if a := auth.AuthorityFromContext(r.Context()); a != nil {
			if identity, ok := a.Identity(); ok {
				problem.Role = string(identity.Role)
			}
		}
		httpx.WriteProblem(w, problem)
	default:
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) && !errors.Is(err, ErrValidation) {
			h.logger.Error("booking request", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid booking id")
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom returns the request authority as an Actor, keeping a nil
// authority a nil interface.
func actorFrom(r *http.Request) Actor {
	if a := auth.AuthorityFromContext(r.Context()); a != nil {
		return a
	}
	return nil
}
