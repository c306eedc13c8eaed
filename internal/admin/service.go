package admin

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/groceryscout/storefront-gateway/internal/catalog"
)

// ProductInput is the create/update payload for catalog management.
type ProductInput struct {
	Name           string          `json:"name" validate:"required"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price" validate:"required"`
	Unit           string          `json:"unit" validate:"required"`
	Category       string          `json:"category"`
	InventoryCount int             `json:"inventoryCount" validate:"min=0"`
	WeightInGrams  int             `json:"weightInGrams" validate:"min=0"`
	ImageURL       string          `json:"imageUrl"`
	IsActive       bool            `json:"isActive"`
}

// User is a registered account as listed on the admin dashboard.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	ProfileData string `json:"profileData"`
}

type backend interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
	PutJSON(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Service issues one-shot admin mutations. Handlers re-fetch lists after
// each mutation rather than patching local copies.
type Service struct {
	api backend
}

func NewService(api backend) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &Service{api: api}, nil
}

// Products lists the full catalog, inactive entries included.
func (s *Service) Products(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := s.api.GetJSON(ctx, "/admin/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct adds a catalog entry.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (*catalog.Product, error) {
	var product catalog.Product
	if err := s.api.PostJSON(ctx, "/admin/products", input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct replaces a catalog entry.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (*catalog.Product, error) {
	var product catalog.Product
	if err := s.api.PutJSON(ctx, fmt.Sprintf("/admin/products/%d", id), input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct removes a catalog entry.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.api.Delete(ctx, fmt.Sprintf("/admin/products/%d", id))
}

// Users lists every registered account.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.api.GetJSON(ctx, "/admin/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}
