package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/groceryscout/storefront-gateway/api/middleware"
	"github.com/groceryscout/storefront-gateway/api/responses"
	"github.com/groceryscout/storefront-gateway/api/validators"
	cartsvc "github.com/groceryscout/storefront-gateway/internal/cart"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
)

type cartView struct {
	Phase string          `json:"phase"`
	Items []cartsvc.Line  `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type mutationResponse struct {
	Applied bool     `json:"applied"`
	Cart    cartView `json:"cart"`
}

type AddRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type AdjustRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type CheckoutRequest struct {
	DeliveryAddress string `json:"deliveryAddress" validate:"required,min=1"`
}

func newCartView(sync *cartsvc.Synchronizer) cartView {
	return cartView{
		Phase: string(sync.Phase()),
		Items: sync.Lines(),
		Count: sync.Count(),
		Total: sync.Total(),
	}
}

func synchronizerFrom(r *http.Request) (*cartsvc.Synchronizer, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session unavailable")
	}
	return sess.Cart, nil
}

// Fetch refreshes from the backend and returns the resulting view. A failed
// refresh still returns the last known-good lines.
func Fetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sync, err := synchronizerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applied := sync.Fetch(r.Context())
		responses.WriteSuccess(w, mutationResponse{Applied: applied, Cart: newCartView(sync)})
	}
}

// View returns the current cart without touching the backend.
func View(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sync, err := synchronizerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(sync))
	}
}

func Add(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sync, err := synchronizerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied := sync.Add(r.Context(), payload.ProductID, payload.Quantity)
		responses.WriteSuccess(w, mutationResponse{Applied: applied, Cart: newCartView(sync)})
	}
}

func Adjust(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sync, err := synchronizerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParsePathID(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AdjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied := sync.AdjustQuantity(r.Context(), productID, payload.Delta)
		responses.WriteSuccess(w, mutationResponse{Applied: applied, Cart: newCartView(sync)})
	}
}

func Remove(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sync, err := synchronizerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParsePathID(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied := sync.Remove(r.Context(), productID)
		responses.WriteSuccess(w, mutationResponse{Applied: applied, Cart: newCartView(sync)})
	}
}

func Clear(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sync, err := synchronizerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied := sync.Clear(r.Context())
		responses.WriteSuccess(w, mutationResponse{Applied: applied, Cart: newCartView(sync)})
	}
}

// Checkout submits the order. Unlike the other mutations its failure is an
// error response carrying the backend's message, and the cart is untouched.
func Checkout(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sync, err := synchronizerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload CheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := sync.Checkout(r.Context(), payload.DeliveryAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
