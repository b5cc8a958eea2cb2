package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/farmcrate/farmcrate-backend/api/middleware"
	"github.com/farmcrate/farmcrate-backend/api/responses"
	connectsvc "github.com/farmcrate/farmcrate-backend/internal/connect"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

func farmerIDFromRequest(r *http.Request) (uuid.UUID, error) {
	farmerID := middleware.FarmerIDFromContext(r.Context())
	if farmerID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "farmer account required")
	}
	return *farmerID, nil
}

// ConnectOnboard starts or resumes payout enrollment for the calling farmer.
func ConnectOnboard(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connect service unavailable"))
			return
		}
		farmerID, err := farmerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Onboard(r.Context(), farmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ConnectBillingSetup prepares the farmer's platform customer for hosting-fee
// invoices.
func ConnectBillingSetup(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connect service unavailable"))
			return
		}
		farmerID, err := farmerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetupBilling(r.Context(), farmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ConnectStatus reports the farmer's payout readiness from the local mirror.
func ConnectStatus(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connect service unavailable"))
			return
		}
		farmerID, err := farmerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), farmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
