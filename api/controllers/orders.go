package controllers

import (
	"net/http"

	"github.com/groceryscout/storefront-gateway/api/responses"
	"github.com/groceryscout/storefront-gateway/api/validators"
	"github.com/groceryscout/storefront-gateway/internal/orders"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
)

// OrdersList prefers the watcher's cached snapshot and falls back to a
// direct fetch when no poll has completed yet. The snapshot may lag the
// backend by one poll interval; it is never blanked by a failed poll.
func OrdersList(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if snapshot, ok := sess.Watcher.Latest(); ok {
			responses.WriteSuccess(w, snapshot)
			return
		}

		listed, err := sess.Orders.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listed)
	}
}

// PlaceOrderRequest submits an order directly, bypassing the cart.
type PlaceOrderRequest struct {
	DeliveryAddress string           `json:"deliveryAddress" validate:"required,min=1"`
	Items           []PlaceOrderItem `json:"items" validate:"required,min=1,dive"`
}

type PlaceOrderItem struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

func OrdersPlace(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req PlaceOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.PlaceInput{DeliveryAddress: req.DeliveryAddress}
		for _, item := range req.Items {
			input.Items = append(input.Items, orders.PlaceItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		placed, err := sess.Orders.Place(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, placed)
	}
}
