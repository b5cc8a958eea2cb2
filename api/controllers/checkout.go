package controllers

import (
	"net/http"

	"github.com/farmcrate/farmcrate-backend/api/middleware"
	"github.com/farmcrate/farmcrate-backend/api/responses"
	"github.com/farmcrate/farmcrate-backend/api/validators"
	"github.com/farmcrate/farmcrate-backend/internal/cart"
	checkoutsvc "github.com/farmcrate/farmcrate-backend/internal/checkout"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

type checkoutRequest struct {
	Items            []cart.Item                 `json:"items" validate:"required,min=1,dive"`
	Delivery         checkoutsvc.DeliveryDetails `json:"delivery" validate:"required"`
	DeliveryFeeCents int64                       `json:"delivery_fee_cents" validate:"gte=0"`
	ServiceFeeCents  int64                       `json:"service_fee_cents" validate:"gte=0"`
}

type checkoutResponse struct {
	Sessions []checkoutsvc.VendorSession `json:"sessions"`
}

// CreateCheckoutSessions opens one hosted checkout session per farmer in the
// submitted cart.
func CreateCheckoutSessions(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessions, err := svc.CreateSessions(r.Context(), checkoutsvc.CreateSessionsInput{
			BuyerUserID:      middleware.UserIDFromContext(r.Context()),
			BuyerEmail:       middleware.EmailFromContext(r.Context()),
			Items:            payload.Items,
			Delivery:         payload.Delivery,
			DeliveryFeeCents: payload.DeliveryFeeCents,
			ServiceFeeCents:  payload.ServiceFeeCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{Sessions: sessions})
	}
}
