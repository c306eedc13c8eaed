package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/groceryscout/storefront-gateway/api/middleware"
	cartsvc "github.com/groceryscout/storefront-gateway/internal/cart"
	"github.com/groceryscout/storefront-gateway/internal/registry"
	"github.com/groceryscout/storefront-gateway/internal/session"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
)

// stubBackend serves a single-product cart over the JSON surface the
// synchronizer and the session store expect.
type stubBackend struct {
	quantity    int
	checkoutErr error
}

func (b *stubBackend) GetJSON(ctx context.Context, path string, out any) error {
	switch path {
	case "/user/cart":
		payload := []map[string]any{}
		if b.quantity > 0 {
			payload = append(payload, map[string]any{
				"product":  map[string]any{"id": 1, "name": "Milk", "price": 3.5, "unit": "liter"},
				"quantity": b.quantity,
			})
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return json.Unmarshal(encoded, out)
	case "/auth/me":
		encoded, _ := json.Marshal(map[string]string{"email": "a@b.c", "role": "CUSTOMER"})
		return json.Unmarshal(encoded, out)
	}
	return fmt.Errorf("unexpected GET %s", path)
}

func (b *stubBackend) PostJSON(ctx context.Context, path string, body, out any) error {
	switch path {
	case "/user/cart/add":
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := json.Unmarshal(encoded, &req); err != nil {
			return err
		}
		b.quantity += req.Quantity
		return nil
	case "/user/cart/checkout":
		if b.checkoutErr != nil {
			return b.checkoutErr
		}
		b.quantity = 0
		if out != nil {
			encoded, _ := json.Marshal(map[string]any{"message": "Order placed successfully", "orderId": 9})
			return json.Unmarshal(encoded, out)
		}
		return nil
	}
	return fmt.Errorf("unexpected POST %s", path)
}

func (b *stubBackend) PostForm(ctx context.Context, path string, values url.Values) error {
	return nil
}

func (b *stubBackend) Delete(ctx context.Context, path string) error {
	b.quantity = 0
	return nil
}

func newTestSession(t *testing.T, backend *stubBackend) *registry.Session {
	t.Helper()
	auth, err := session.NewStore(backend, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sync, err := cartsvc.NewSynchronizer(backend, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &registry.Session{ID: "test", Auth: auth, Cart: sync}
}

func requestWithSession(req *http.Request, sess *registry.Session) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), sess))
}

func TestAddReturnsUpdatedCart(t *testing.T) {
	t.Parallel()

	sess := newTestSession(t, &stubBackend{})
	handler := Add(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":2}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithSession(req, sess))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data mutationResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Applied {
		t.Fatal("expected mutation applied")
	}
	if envelope.Data.Cart.Count != 2 {
		t.Fatalf("expected count 2, got %d", envelope.Data.Cart.Count)
	}
	if envelope.Data.Cart.Phase != string(cartsvc.PhaseReady) {
		t.Fatalf("expected ready phase, got %s", envelope.Data.Cart.Phase)
	}
}

func TestAddRejectsInvalidBody(t *testing.T) {
	t.Parallel()

	sess := newTestSession(t, &stubBackend{})
	handler := Add(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":0}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithSession(req, sess))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdjustRemovesLineAtZero(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{}
	sess := newTestSession(t, backend)
	sess.Cart.Add(context.Background(), 1, 2)

	handler := Adjust(nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/1", strings.NewReader(`{"delta":-2}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productID", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithSession(req, sess))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data mutationResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", envelope.Data.Cart.Items)
	}
}

func TestCheckoutSurfacesBackendMessage(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{checkoutErr: pkgerrors.New(pkgerrors.CodeValidation, "Insufficient inventory for Milk")}
	sess := newTestSession(t, backend)
	sess.Cart.Add(context.Background(), 1, 1)

	handler := Checkout(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", strings.NewReader(`{"deliveryAddress":"12 Main St"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithSession(req, sess))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != "Insufficient inventory for Milk" {
		t.Fatalf("expected backend message verbatim, got %q", envelope.Error.Message)
	}
}

func TestCheckoutSuccessReturnsConfirmation(t *testing.T) {
	t.Parallel()

	sess := newTestSession(t, &stubBackend{})
	sess.Cart.Add(context.Background(), 1, 1)

	handler := Checkout(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", strings.NewReader(`{"deliveryAddress":"12 Main St"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithSession(req, sess))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartsvc.CheckoutResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != 9 {
		t.Fatalf("expected order id 9, got %d", envelope.Data.OrderID)
	}
}

func TestViewWithoutSessionFails(t *testing.T) {
	t.Parallel()

	handler := View(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
