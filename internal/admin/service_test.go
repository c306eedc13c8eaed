package admin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

type stubBackend struct {
	getPaths     []string
	putPaths     []string
	putBodies    []any
	postBodies   []any
	deletedPaths []string
	payloads     map[string]any
}

func (s *stubBackend) GetJSON(ctx context.Context, path string, out any) error {
	s.getPaths = append(s.getPaths, path)
	return s.respond(path, out)
}

func (s *stubBackend) PostJSON(ctx context.Context, path string, body, out any) error {
	s.postBodies = append(s.postBodies, body)
	return s.respond(path, out)
}

func (s *stubBackend) PutJSON(ctx context.Context, path string, body, out any) error {
	s.putPaths = append(s.putPaths, path)
	s.putBodies = append(s.putBodies, body)
	return s.respond(path, out)
}

func (s *stubBackend) Delete(ctx context.Context, path string) error {
	s.deletedPaths = append(s.deletedPaths, path)
	return nil
}

func (s *stubBackend) respond(path string, out any) error {
	payload, ok := s.payloads[path]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}

func TestCreateProductPostsInputAndDecodesResult(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{
		"/admin/products": map[string]any{"id": 8, "name": "Oat milk", "price": 4.25, "isActive": true},
	}}
	svc, err := NewService(backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := ProductInput{
		Name:           "Oat milk",
		Price:          decimal.RequireFromString("4.25"),
		Unit:           "liter",
		InventoryCount: 30,
		IsActive:       true,
	}
	product, err := svc.CreateProduct(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.ID != 8 || product.Name != "Oat milk" {
		t.Fatalf("unexpected product: %+v", product)
	}
	sent, ok := backend.postBodies[0].(ProductInput)
	if !ok || sent.Unit != "liter" {
		t.Fatalf("unexpected payload: %+v", backend.postBodies[0])
	}
}

func TestUpdateProductPutsToProductPath(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{
		"/admin/products/8": map[string]any{"id": 8, "name": "Oat milk", "inventoryCount": 12},
	}}
	svc, _ := NewService(backend)

	input := ProductInput{Name: "Oat milk", Price: decimal.RequireFromString("4.25"), Unit: "liter", InventoryCount: 12}
	product, err := svc.UpdateProduct(context.Background(), 8, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.putPaths[0] != "/admin/products/8" {
		t.Fatalf("unexpected path: %q", backend.putPaths[0])
	}
	if product.InventoryCount != 12 {
		t.Fatalf("unexpected product: %+v", product)
	}
}

func TestDeleteProductTargetsID(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{}}
	svc, _ := NewService(backend)

	if err := svc.DeleteProduct(context.Background(), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.deletedPaths[0] != "/admin/products/3" {
		t.Fatalf("unexpected path: %q", backend.deletedPaths[0])
	}
}

func TestUsersListsAccounts(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{
		"/admin/users": []map[string]any{
			{"id": 1, "email": "shopper@example.com", "role": "CUSTOMER"},
			{"id": 2, "email": "manager@example.com", "role": "MANAGER"},
		},
	}}
	svc, _ := NewService(backend)

	users, err := svc.Users(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[1].Role != "MANAGER" {
		t.Fatalf("unexpected users: %+v", users)
	}
}
