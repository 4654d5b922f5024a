package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/rbac"
	"github.com/rentdesk/rentdesk/internal/shared"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking

	// Error injection
	getError    error
	updateError error
	updates     int
}

func newMockRepository(seed ...Booking) *mockRepository {
	m := &mockRepository{bookings: make(map[uuid.UUID]*Booking)}
	for _, b := range seed {
		b := b
		m.bookings[b.ID] = &b
	}
	return m
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *b
	return &out, nil
}

func (m *mockRepository) List(ctx context.Context, req ListRequest) ([]Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []Booking{}
	for _, b := range m.bookings {
		if req.Status != nil && b.Status != *req.Status {
			continue
		}
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := len(result)
	if req.Offset >= len(result) {
		return []Booking{}, total, nil
	}
	result = result[req.Offset:]
	if req.Limit > 0 && len(result) > req.Limit {
		result = result[:req.Limit]
	}
	return result, total, nil
}

func (m *mockRepository) Create(ctx context.Context, b Booking) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = &b
	out := b
	return &out, nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateError != nil {
		return nil, m.updateError
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status != from {
		return nil, ErrConflict
	}
	b.Status = to
	m.updates++
	out := *b
	return &out, nil
}

type stubActor struct {
	identity *auth.Identity
	table    rbac.Table
}

func actorWithRole(role rbac.Role) stubActor {
	return stubActor{identity: &auth.Identity{ID: "u-" + string(role), Email: string(role) + "@rentdesk.local", Role: role}, table: rbac.DefaultTable()}
}

func (a stubActor) HasPermission(token string) bool {
	return a.identity != nil && a.table.Allows(a.identity.Role, token)
}

func (a stubActor) Identity() (auth.Identity, bool) {
	if a.identity == nil {
		return auth.Identity{}, false
	}
	return *a.identity, true
}

type recordingAudit struct{ logs []shared.AuditLog }

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type recordingNotifier struct {
	changes []StatusChange
	err     error
}

func (n *recordingNotifier) NotifyStatusChange(ctx context.Context, change StatusChange) error {
	n.changes = append(n.changes, change)
	return n.err
}

type recordingMetrics struct {
	outcomes []string
	targets  []string
}

func (m *recordingMetrics) ObserveBookingTransition(from, to, outcome string) {
	m.outcomes = append(m.outcomes, outcome)
	m.targets = append(m.targets, to)
}

type fixture struct {
	repo     *mockRepository
	audit    *recordingAudit
	notifier *recordingNotifier
	metrics  *recordingMetrics
	svc      *Service
}

func newFixture(seed ...Booking) fixture {
	f := fixture{
		repo:     newMockRepository(seed...),
		audit:    &recordingAudit{},
		notifier: &recordingNotifier{},
		metrics:  &recordingMetrics{},
	}
	f.svc = NewService(f.repo, f.audit, f.notifier, ServiceConfig{Metrics: f.metrics})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func sampleBooking(status Status) Booking {
	return Booking{
		ID:          uuid.New(),
		ClientID:    7,
		EquipmentID: 11,
		StartDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Status:      status,
		TotalAmount: 450,
		CreatedAt:   time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
	}
}

// ============================================================================
// TRANSITIONS
// ============================================================================

func TestServiceTransitionPersistsAndNotifies(t *testing.T) {
	b := sampleBooking(StatusPending)
	f := newFixture(b)

	updated, err := f.svc.Transition(context.Background(), actorWithRole(rbac.RoleOperator), b.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.Equal(t, 1, f.repo.updates)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "booking.transition", f.audit.logs[0].Action)
	assert.Equal(t, "u-operator", f.audit.logs[0].ActorID)

	require.Len(t, f.notifier.changes, 1)
	assert.Equal(t, StatusPending, f.notifier.changes[0].From)
	assert.Equal(t, StatusConfirmed, f.notifier.changes[0].To)
	assert.Equal(t, []string{OutcomeApplied}, f.metrics.outcomes)
}

func TestServiceTransitionNoopSkipsWrite(t *testing.T) {
	b := sampleBooking(StatusActive)
	f := newFixture(b)

	got, err := f.svc.Transition(context.Background(), actorWithRole(rbac.RoleViewer), b.ID, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Zero(t, f.repo.updates)
	assert.Empty(t, f.notifier.changes)
	assert.Equal(t, []string{OutcomeNoop}, f.metrics.outcomes)
}

func TestServiceTransitionDeniedCarriesRole(t *testing.T) {
	b := sampleBooking(StatusPending)
	f := newFixture(b)

	_, err := f.svc.Transition(context.Background(), actorWithRole(rbac.RoleViewer), b.ID, StatusConfirmed)
	require.ErrorIs(t, err, ErrPermissionDenied)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, rbac.RoleViewer, terr.Role)
	assert.Zero(t, f.repo.updates)
	assert.Equal(t, []string{OutcomeDenied}, f.metrics.outcomes)
}

func TestServiceTransitionInvalidIndependentOfRole(t *testing.T) {
	b := sampleBooking(StatusActive)
	f := newFixture(b)

	_, err := f.svc.Transition(context.Background(), actorWithRole(rbac.RoleAdmin), b.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, errors.Is(err, ErrPermissionDenied))
	assert.Equal(t, []string{OutcomeInvalid}, f.metrics.outcomes)
}

func TestServiceTransitionNilActorDenied(t *testing.T) {
	b := sampleBooking(StatusPending)
	f := newFixture(b)
	_, err := f.svc.Transition(context.Background(), nil, b.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestServiceTransitionConflict(t *testing.T) {
	b := sampleBooking(StatusPending)
	f := newFixture(b)
	f.repo.updateError = ErrConflict

	_, err := f.svc.Transition(context.Background(), actorWithRole(rbac.RoleAdmin), b.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, f.notifier.changes)
	assert.Equal(t, []string{OutcomeConflict}, f.metrics.outcomes)
}

func TestServiceTransitionStoreFailureNotApplied(t *testing.T) {
	b := sampleBooking(StatusConfirmed)
	f := newFixture(b)
	f.repo.updateError = errors.New("connection reset")

	_, err := f.svc.Transition(context.Background(), actorWithRole(rbac.RoleAdmin), b.ID, StatusActive)
	require.Error(t, err)
	assert.Empty(t, f.audit.logs)
	assert.Empty(t, f.notifier.changes)

	stored, err := f.repo.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
}

func TestServiceTransitionNotifierFailureIsNotFatal(t *testing.T) {
	b := sampleBooking(StatusActive)
	f := newFixture(b)
	f.notifier.err = errors.New("queue down")

	updated, err := f.svc.Transition(context.Background(), actorWithRole(rbac.RoleOperator), b.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func TestServiceTransitionNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Transition(context.Background(), actorWithRole(rbac.RoleAdmin), uuid.New(), StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceAllowedTransitions(t *testing.T) {
	b := sampleBooking(StatusConfirmed)
	f := newFixture(b)

	_, allowed, err := f.svc.AllowedTransitions(context.Background(), actorWithRole(rbac.RoleOperator), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusActive, StatusCancelled}, allowed)

	_, allowed, err = f.svc.AllowedTransitions(context.Background(), actorWithRole(rbac.RoleViewer), b.ID)
	require.NoError(t, err)
	assert.Empty(t, allowed)
}

// ============================================================================
// CREATE / LIST
// ============================================================================

func validCreateRequest() CreateRequest {
	return CreateRequest{
		ClientID:    3,
		EquipmentID: 9,
		StartDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TotalAmount: 0,
	}
}

func TestServiceCreate(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), actorWithRole(rbac.RoleOperator), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
	assert.NotEqual(t, uuid.Nil, b.ID)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "booking.create", f.audit.logs[0].Action)
}

func TestServiceCreateValidation(t *testing.T) {
	f := newFixture()
	actor := actorWithRole(rbac.RoleAdmin)

	req := validCreateRequest()
	req.EndDate = req.StartDate.Add(-24 * time.Hour)
	_, err := f.svc.Create(context.Background(), actor, req)
	assert.ErrorIs(t, err, ErrValidation)

	req = validCreateRequest()
	req.TotalAmount = -1
	_, err = f.svc.Create(context.Background(), actor, req)
	assert.ErrorIs(t, err, ErrValidation)

	req = validCreateRequest()
	req.ClientID = 0
	_, err = f.svc.Create(context.Background(), actor, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestServiceCreateRequiresPermission(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), actorWithRole(rbac.RoleViewer), validCreateRequest())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, f.repo.bookings)
}

func TestServiceListRejectsUnknownStatus(t *testing.T) {
	f := newFixture(sampleBooking(StatusPending))
	status := Status("archived")
	_, _, err := f.svc.List(context.Background(), ListRequest{Status: &status})
	assert.ErrorIs(t, err, ErrValidation)

	pending := StatusPending
	items, total, err := f.svc.List(context.Background(), ListRequest{Status: &pending, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
}

func TestTransitionUnknownTargetUsesBoundedLabel(t *testing.T) {
	b := sampleBooking(StatusPending)
	f := newFixture(b)
	actor := actorWithRole(rbac.RoleViewer)

	for i := 0; i < 50; i++ {
		_, err := f.svc.Transition(context.Background(), actor, b.ID, Status(fmt.Sprintf("junk-%d", i)))
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
	require.Len(t, f.metrics.targets, 50)
	for _, target := range f.metrics.targets {
		assert.Equal(t, "unknown", target)
	}
	assert.Equal(t, OutcomeInvalid, f.metrics.outcomes[0])
}
