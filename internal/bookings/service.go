package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/rbac"
	"github.com/rentdesk/rentdesk/internal/shared"
)

// Actor is the caller on whose behalf the service acts. *auth.Authority
// satisfies it.
type Actor interface {
	HasPermission(token string) bool
	Identity() (auth.Identity, bool)
}

// StatusChange describes a persisted transition.
type StatusChange struct {
	BookingID   uuid.UUID
	ClientID    int64
	EquipmentID int64
	From        Status
	To          Status
	TotalAmount float64
	ActorID     string
	At          time.Time
}

// Notifier is told about every persisted transition.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, change StatusChange) error
}

// TransitionObserver counts transition attempts by outcome.
type TransitionObserver interface {
	ObserveBookingTransition(from, to, outcome string)
}

// Transition outcomes reported to the TransitionObserver.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeInvalid  = "invalid"
	OutcomeDenied   = "denied"
	OutcomeConflict = "conflict"
)

// ServiceConfig carries optional collaborators.
type ServiceConfig struct {
	Logger  *slog.Logger
	Metrics TransitionObserver
}

// Service orchestrates booking reads, creation and lifecycle transitions.
type Service struct {
	repo      Repository
	audit     shared.AuditRecorder
	notifier  Notifier
	metrics   TransitionObserver
	logger    *slog.Logger
	validator *validator.Validate
	now       func() time.Time
}

// NewService constructs a Service. audit and notifier may be nil.
func NewService(repo Repository, audit shared.AuditRecorder, notifier Notifier, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		audit:     audit,
		notifier:  notifier,
		metrics:   cfg.Metrics,
		logger:    logger,
		validator: validator.New(),
		now:       time.Now,
	}
}

// Get retrieves a booking by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of bookings and the total count.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Booking, int, error) {
	if req.Status != nil && !req.Status.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
	}
	return s.repo.List(ctx, req)
}

// Create validates req and stores a new pending booking.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Booking, error) {
	if actor == nil || !actor.HasPermission(rbac.PermBookingsCreate) {
		return nil, fmt.Errorf("%w: requires %s", ErrPermissionDenied, rbac.PermBookingsCreate)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, Booking{
		ID:          uuid.New(),
		ClientID:    req.ClientID,
		EquipmentID: req.EquipmentID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      StatusPending,
		TotalAmount: req.TotalAmount,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	s.recordAudit(ctx, actorID(actor), "booking.create", created.ID, map[string]any{
		"client_id":    created.ClientID,
		"equipment_id": created.EquipmentID,
		"total_amount": created.TotalAmount,
	})
	return created, nil
}

// Transition moves booking id to target on behalf of actor. The returned
// booking is the stored row after the write; a request for the current
// status returns the booking untouched.
func (s *Service) Transition(ctx context.Context, actor Actor, id uuid.UUID, target Status) (*Booking, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var can PermissionChecker
	if actor != nil {
		can = actor.HasPermission
	}
	next, err := Transition(*existing, target, can)
	if err != nil {
		var terr *TransitionError
		if errors.As(err, &terr) && actor != nil {
			if identity, ok := actor.Identity(); ok {
				terr.Role = identity.Role
			}
		}
		outcome := OutcomeInvalid
		if errors.Is(err, ErrPermissionDenied) {
			outcome = OutcomeDenied
		}
		s.observe(existing.Status, target, outcome)
		return nil, err
	}
	if next == existing.Status {
		s.observe(existing.Status, target, OutcomeNoop)
		return existing, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, id, existing.Status, next)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.observe(existing.Status, next, OutcomeConflict)
		}
		return nil, err
	}
	s.observe(existing.Status, next, OutcomeApplied)

	who := actorID(actor)
	s.recordAudit(ctx, who, "booking.transition", id, map[string]any{
		"from": string(existing.Status),
		"to":   string(next),
	})
	if s.notifier != nil {
		change := StatusChange{
			BookingID:   id,
			ClientID:    updated.ClientID,
			EquipmentID: updated.EquipmentID,
			From:        existing.Status,
			To:          next,
			TotalAmount: updated.TotalAmount,
			ActorID:     who,
			At:          s.now().UTC(),
		}
		if err := s.notifier.NotifyStatusChange(ctx, change); err != nil {
			s.logger.Warn("notify booking status change", slog.String("booking_id", id.String()), slog.Any("error", err))
		}
	}
	return updated, nil
}

// AllowedTransitions lists the statuses actor may move booking id to.
func (s *Service) AllowedTransitions(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, []Status, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if actor == nil {
		return b, nil, nil
	}
	return b, AllowedTransitions(b.Status, actor.HasPermission), nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "booking",
		EntityID: id.String(),
		Meta:     meta,
		At:       s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("audit booking", slog.String("action", action), slog.Any("error", err))
	}
}

// unknownStatusLabel replaces caller-supplied statuses outside the lifecycle
// so the metric label set stays bounded.
const unknownStatusLabel = "unknown"

func (s *Service) observe(from, to Status, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveBookingTransition(statusLabel(from), statusLabel(to), outcome)
}

func statusLabel(status Status) string {
	if !status.IsValid() {
		return unknownStatusLabel
	}
	return string(status)
}

func actorID(actor Actor) string {
	if actor == nil {
		return ""
	}
	if identity, ok := actor.Identity(); ok {
		return identity.ID
	}
	return ""
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field() + " failed " + verrs[0].Tag()
	}
	return err.Error()
}
