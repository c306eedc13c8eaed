package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/groceryscout/storefront-gateway/internal/orders"
)

// OrderPage is one page of the manager's order history.
type OrderPage struct {
	Content       []orders.Order `json:"content"`
	TotalPages    int            `json:"totalPages"`
	TotalElements int64          `json:"totalElements"`
	CurrentPage   int            `json:"currentPage"`
	HasMore       bool           `json:"hasMore"`
}

type backend interface {
	GetJSON(ctx context.Context, path string, out any) error
	PatchJSON(ctx context.Context, path string, body, out any) error
}

// Service carries the manager dashboard reads and the order status
// transition. Stats and revenue payloads pass through untyped: their shape
// belongs to the backend.
type Service struct {
	api backend
}

func NewService(api backend) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &Service{api: api}, nil
}

// Stats returns the dashboard summary counters.
func (s *Service) Stats(ctx context.Context) (json.RawMessage, error) {
	var stats json.RawMessage
	if err := s.api.GetJSON(ctx, "/manager/stats", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Orders lists all orders, optionally filtered by status.
func (s *Service) Orders(ctx context.Context, status string) ([]orders.Order, error) {
	path := "/manager/orders"
	if trimmed := strings.TrimSpace(status); trimmed != "" {
		path += "?status=" + url.QueryEscape(trimmed)
	}
	var list []orders.Order
	if err := s.api.GetJSON(ctx, path, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PagedOrders returns one page of order history.
func (s *Service) PagedOrders(ctx context.Context, page, size int) (*OrderPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	var result OrderPage
	path := fmt.Sprintf("/manager/orders/paged?page=%d&size=%d", page, size)
	if err := s.api.GetJSON(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateOrderStatus transitions one order to the given status.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status string) (*orders.Order, error) {
	var updated orders.Order
	payload := map[string]string{"status": status}
	if err := s.api.PatchJSON(ctx, fmt.Sprintf("/manager/orders/%d/status", id), payload, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Revenue returns the per-day revenue series for the analytics chart.
func (s *Service) Revenue(ctx context.Context) (json.RawMessage, error) {
	var revenue json.RawMessage
	if err := s.api.GetJSON(ctx, "/manager/analytics/revenue", &revenue); err != nil {
		return nil, err
	}
	return revenue, nil
}
