package audithttp

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rentdesk/rentdesk/internal/audit"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newAuditRouter(service *stubTimelineService) http.Handler {
	handler := NewHandler(nil, service)
	handler.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit", handler.MountRoutes)
	return r
}

func TestTimelineReturnsRows(t *testing.T) {
	rows := []audit.TimelineRow{{At: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), ActorID: "2", Action: "booking.transition", Entity: "booking", EntityID: "b-1"}}
	service := &stubTimelineService{result: audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}

	rr := httptest.NewRecorder()
	newAuditRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/?from=2026-03-01&to=2026-03-15&entity=booking", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, `"action":"booking.transition"`) {
		t.Fatalf("expected action in response: %s", body)
	}
	if service.lastFilters.From.Format(time.DateOnly) != "2026-03-01" || service.lastFilters.Entity != "booking" {
		t.Fatalf("unexpected filters: %+v", service.lastFilters)
	}
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	service := &stubTimelineService{}
	rr := httptest.NewRecorder()
	newAuditRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := service.lastFilters.From.Format(time.DateOnly); got != "2026-03-08" {
		t.Fatalf("expected default from 2026-03-08, got %s", got)
	}
	if service.lastFilters.PageSize != defaultPageSize {
		t.Fatalf("expected default page size, got %d", service.lastFilters.PageSize)
	}
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	cases := []string{
		"/audit/?from=2026-03-10&to=2026-03-01",
		"/audit/?from=2025-01-01&to=2026-03-01",
		"/audit/?to=yesterday",
		"/audit/?page=0",
		"/audit/?page_size=abc",
	}
	for _, path := range cases {
		rr := httptest.NewRecorder()
		newAuditRouter(&stubTimelineService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rr.Code)
		}
	}
}

func TestExportCSV(t *testing.T) {
	rows := []audit.TimelineRow{{
		At:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		ActorID:  "2",
		Action:   "booking.transition",
		Entity:   "booking",
		EntityID: "b-1",
		Meta:     map[string]any{"from": "pending", "to": "confirmed"},
	}}
	service := &stubTimelineService{exportRows: rows}

	rr := httptest.NewRecorder()
	newAuditRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/export.csv?from=2026-03-01&to=2026-03-05", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ctype := rr.Header().Get("Content-Type"); !strings.Contains(ctype, "text/csv") {
		t.Fatalf("unexpected content-type: %s", ctype)
	}
	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d", len(records))
	}
	if records[1][0] != "2026-03-10T10:00:00Z" || records[1][5] != `{"from":"pending","to":"confirmed"}` {
		t.Fatalf("unexpected row: %v", records[1])
	}
}

func TestExportIsRateLimited(t *testing.T) {
	router := newAuditRouter(&stubTimelineService{})
	var last int
	for i := 0; i <= rateLimit; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil)
		req.RemoteAddr = "10.0.0.7:5000"
		router.ServeHTTP(rr, req)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after %d exports, got %d", rateLimit, last)
	}
}
