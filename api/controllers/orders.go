package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/farmcrate/farmcrate-backend/api/middleware"
	"github.com/farmcrate/farmcrate-backend/api/responses"
	ordersvc "github.com/farmcrate/farmcrate-backend/internal/orders"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

func viewerFromRequest(r *http.Request) ordersvc.Viewer {
	return ordersvc.Viewer{
		UserID:   middleware.UserIDFromContext(r.Context()),
		Role:     middleware.RoleFromContext(r.Context()),
		FarmerID: middleware.FarmerIDFromContext(r.Context()),
	}
}

// ListOrders returns the caller's settled orders, buyers seeing their
// purchases and farmers their sales.
func ListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a non-negative integer"))
				return
			}
			limit = parsed
		}

		orders, err := svc.List(r.Context(), viewerFromRequest(r), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// GetOrder returns a single order if the caller is a party to it.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), viewerFromRequest(r), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
