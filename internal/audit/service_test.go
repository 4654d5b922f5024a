package audit

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type stubTimelineRepo struct {
	windowRows     []TimelineRow
	allRows        []TimelineRow
	lastWindowCall QueryParams
	lastAllCall    QueryParams
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, params QueryParams) ([]TimelineRow, error) {
	s.lastWindowCall = params
	return s.windowRows, nil
}

func (s *stubTimelineRepo) TimelineAll(ctx context.Context, params QueryParams) ([]TimelineRow, error) {
	s.lastAllCall = params
	return s.allRows, nil
}

func row(ts, action string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{At: at, ActorID: "1", Action: action, Entity: "booking", EntityID: "b-1"}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		windowRows: []TimelineRow{
			row("2026-03-10T10:00:00Z", "booking.transition"),
			row("2026-03-09T09:00:00Z", "booking.transition"),
			row("2026-03-08T08:00:00Z", "booking.create"),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:     2,
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 3 || result.Paging.PrevPage != 1 {
		t.Fatalf("unexpected paging: %+v", result.Paging)
	}
	if repo.lastWindowCall.Limit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastWindowCall.Limit)
	}
	if repo.lastWindowCall.Offset != 2 {
		t.Fatalf("expected offset 2, got %d", repo.lastWindowCall.Offset)
	}
	wantTo := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if !repo.lastWindowCall.ToAt.Valid || !repo.lastWindowCall.ToAt.Time.Equal(wantTo) {
		t.Fatalf("expected exclusive upper bound %s, got %+v", wantTo, repo.lastWindowCall.ToAt)
	}
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Paging.PageSize != 50 || repo.lastWindowCall.Limit != 51 {
		t.Fatalf("expected clamped page size, got %+v / %d", result.Paging, repo.lastWindowCall.Limit)
	}
	if result.Rows == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestServiceExportPassesFilters(t *testing.T) {
	repo := &stubTimelineRepo{allRows: []TimelineRow{row("2026-03-10T10:00:00Z", "booking.create")}}
	rows, err := NewService(repo).Export(context.Background(), TimelineFilters{
		From:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EntityID: " b-1 ",
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if repo.lastAllCall.Actor != (pgtype.Text{}) {
		t.Fatalf("expected actor filter empty")
	}
	if repo.lastAllCall.EntityID != (pgtype.Text{String: "b-1", Valid: true}) {
		t.Fatalf("expected trimmed entity id, got %+v", repo.lastAllCall.EntityID)
	}
}

func TestServiceWithoutRepository(t *testing.T) {
	if _, err := NewService(nil).Timeline(context.Background(), TimelineFilters{}); err == nil {
		t.Fatal("expected error without repository")
	}
}
