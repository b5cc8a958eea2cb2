package controllers

import (
	"context"
	"net/http"

	"github.com/farmcrate/farmcrate-backend/api/responses"
	"github.com/farmcrate/farmcrate-backend/api/validators"
	billingsvc "github.com/farmcrate/farmcrate-backend/internal/billing"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

type billingRunner interface {
	RunSeason(ctx context.Context, input billingsvc.RunInput) (*billingsvc.RunResult, error)
}

type seasonalBillingRequest struct {
	SeasonYear int    `json:"season_year" validate:"required,gt=0"`
	Season     string `json:"season" validate:"required"`
	BaseFee    int64  `json:"base_fee" validate:"omitempty,gt=0"`
	Force      bool   `json:"force"`
}

// RunSeasonalBilling triggers a billing run for one season. Admin only; the
// scheduled worker covers the normal cadence and this exists for manual
// re-runs and recovery.
func RunSeasonalBilling(svc billingRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		var payload seasonalBillingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		season, err := enums.ParseSeason(payload.Season)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid season"))
			return
		}

		result, runErr := svc.RunSeason(r.Context(), billingsvc.RunInput{
			SeasonYear: payload.SeasonYear,
			Season:     season,
			BaseFee:    payload.BaseFee,
			Force:      payload.Force,
		})
		if result == nil && runErr != nil {
			responses.WriteError(r.Context(), logg, w, runErr)
			return
		}
		// Partial failures are reported in the result body; the run itself
		// succeeded for the remaining vendors.
		responses.WriteSuccess(w, result)
	}
}
