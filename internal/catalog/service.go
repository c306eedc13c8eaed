package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// Product mirrors the backend catalog entry. Price stays decimal end to end.
type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Unit           string          `json:"unit"`
	Category       string          `json:"category"`
	InventoryCount int             `json:"inventoryCount"`
	WeightInGrams  int             `json:"weightInGrams"`
	ImageURL       string          `json:"imageUrl"`
	IsActive       bool            `json:"isActive"`
}

type backend interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// Service reads the public catalog. It never caches: product snapshots are
// point-in-time by design.
type Service struct {
	api backend
}

func NewService(api backend) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &Service{api: api}, nil
}

// List returns all active products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := s.api.GetJSON(ctx, "/public/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := s.api.GetJSON(ctx, fmt.Sprintf("/public/products/%d", id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Search runs a server-side name search scoped to the signed-in shopper.
func (s *Service) Search(ctx context.Context, query string) ([]Product, error) {
	var products []Product
	path := "/user/products/search?q=" + url.QueryEscape(query)
	if err := s.api.GetJSON(ctx, path, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Categories returns the distinct category names.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := s.api.GetJSON(ctx, "/public/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Trending returns the products trending across the platform.
func (s *Service) Trending(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := s.api.GetJSON(ctx, "/trending/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}
