package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item is one line of a placed order, priced at purchase time.
type Item struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Order is a shopper's placed order as reported by the backend.
type Order struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DeliveryAddress string          `json:"deliveryAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	Items           []Item          `json:"items"`
}

type backend interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
}

// Service reads and places orders for the signed-in shopper.
type Service struct {
	api backend
}

func NewService(api backend) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &Service{api: api}, nil
}

// List returns the shopper's order history, newest first per the backend.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.api.GetJSON(ctx, "/user/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// PlaceInput carries a direct order placement that bypasses the cart.
type PlaceInput struct {
	DeliveryAddress string      `json:"deliveryAddress"`
	Items           []PlaceItem `json:"items"`
}

type PlaceItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Place submits an order directly, bypassing the cart.
func (s *Service) Place(ctx context.Context, input PlaceInput) (*Order, error) {
	var order Order
	if err := s.api.PostJSON(ctx, "/user/orders", input, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
