package catalog

import (
	"context"
	"encoding/json"
	"testing"
)

type stubBackend struct {
	paths    []string
	payloads map[string]any
}

func (s *stubBackend) GetJSON(ctx context.Context, path string, out any) error {
	s.paths = append(s.paths, path)
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

func TestListDecodesProducts(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{
		"/public/products": []map[string]any{{"id": 1, "name": "Milk", "price": 3.5, "isActive": true}},
	}}
	svc, err := NewService(backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	products, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Milk" || !products[0].IsActive {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestSearchEscapesQuery(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{}}
	svc, _ := NewService(backend)

	if _, err := svc.Search(context.Background(), "red apples & pears"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "/user/products/search?q=red+apples+%26+pears"
	if backend.paths[0] != want {
		t.Fatalf("expected %q, got %q", want, backend.paths[0])
	}
}

func TestGetBuildsPathFromID(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{
		"/public/products/42": map[string]any{"id": 42, "name": "Eggs"},
	}}
	svc, _ := NewService(backend)

	product, err := svc.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.ID != 42 || product.Name != "Eggs" {
		t.Fatalf("unexpected product: %+v", product)
	}
}
