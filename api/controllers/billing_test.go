package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	billingsvc "github.com/farmcrate/farmcrate-backend/internal/billing"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

type stubBillingRunner struct {
	input  billingsvc.RunInput
	result *billingsvc.RunResult
	err    error
}

func (s *stubBillingRunner) RunSeason(ctx context.Context, input billingsvc.RunInput) (*billingsvc.RunResult, error) {
	s.input = input
	return s.result, s.err
}

func TestRunSeasonalBillingSuccess(t *testing.T) {
	t.Parallel()

	svc := &stubBillingRunner{result: &billingsvc.RunResult{
		SeasonYear: 2026,
		Season:     enums.SeasonSummer,
		Processed:  4,
		Invoiced:   3,
		NoCharge:   1,
	}}

	body := `{"season_year": 2026, "season": "summer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/seasonal", strings.NewReader(body))
	rec := httptest.NewRecorder()

	RunSeasonalBilling(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.input.Season != enums.SeasonSummer || svc.input.SeasonYear != 2026 {
		t.Fatalf("unexpected run input: %+v", svc.input)
	}
	if svc.input.Force {
		t.Fatalf("force must default to false")
	}
}

func TestRunSeasonalBillingRejectsUnknownSeason(t *testing.T) {
	t.Parallel()

	svc := &stubBillingRunner{}
	body := `{"season_year": 2026, "season": "monsoon"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/seasonal", strings.NewReader(body))
	rec := httptest.NewRecorder()

	RunSeasonalBilling(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunSeasonalBillingReportsPartialFailure(t *testing.T) {
	t.Parallel()

	svc := &stubBillingRunner{
		result: &billingsvc.RunResult{SeasonYear: 2026, Season: enums.SeasonFall, Processed: 2, Invoiced: 1, Failed: 1},
		err:    context.DeadlineExceeded,
	}
	body := `{"season_year": 2026, "season": "fall", "force": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/seasonal", strings.NewReader(body))
	rec := httptest.NewRecorder()

	RunSeasonalBilling(svc, nil).ServeHTTP(rec, req)

	// A partial failure still reports the per-vendor outcome counts.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with partial-failure body, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"failed":1`) {
		t.Fatalf("expected failed count in body: %s", rec.Body.String())
	}
}
