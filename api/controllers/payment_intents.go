package controllers

import (
	"net/http"

	"github.com/farmcrate/farmcrate-backend/api/middleware"
	"github.com/farmcrate/farmcrate-backend/api/responses"
	"github.com/farmcrate/farmcrate-backend/api/validators"
	"github.com/farmcrate/farmcrate-backend/internal/cart"
	checkoutsvc "github.com/farmcrate/farmcrate-backend/internal/checkout"
	paymentsvc "github.com/farmcrate/farmcrate-backend/internal/payments"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

type paymentIntentRequest struct {
	Items    []cart.Item                 `json:"items" validate:"required,min=1,dive"`
	Delivery checkoutsvc.DeliveryDetails `json:"delivery" validate:"required"`
}

// CreatePaymentIntents funds a native payment sheet for the submitted cart.
func CreatePaymentIntents(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload paymentIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sheet, err := svc.CreateIntents(r.Context(), paymentsvc.CreateIntentsInput{
			BuyerUserID: middleware.UserIDFromContext(r.Context()),
			BuyerEmail:  middleware.EmailFromContext(r.Context()),
			Items:       payload.Items,
			Delivery:    payload.Delivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sheet)
	}
}
