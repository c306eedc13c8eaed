package manager

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	getPaths    []string
	patchPaths  []string
	patchBodies []any
	payloads    map[string]any
}

func (s *stubBackend) GetJSON(ctx context.Context, path string, out any) error {
	s.getPaths = append(s.getPaths, path)
	return s.respond(path, out)
}

func (s *stubBackend) PatchJSON(ctx context.Context, path string, body, out any) error {
	s.patchPaths = append(s.patchPaths, path)
	s.patchBodies = append(s.patchBodies, body)
	return s.respond(path, out)
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

func TestOrdersStatusFilterIsEscaped(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{}}
	svc, err := NewService(backend)
	require.NoError(t, err)

	_, err = svc.Orders(context.Background(), "  OUT_FOR_DELIVERY ")
	require.NoError(t, err)
	assert.Equal(t, "/manager/orders?status=OUT_FOR_DELIVERY", backend.getPaths[0])

	_, err = svc.Orders(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "/manager/orders", backend.getPaths[1])
}

func TestPagedOrdersClampsPageAndSize(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{
		"/manager/orders/paged?page=0&size=20": map[string]any{
			"content":       []any{},
			"totalPages":    3,
			"totalElements": 41,
			"currentPage":   0,
			"hasMore":       true,
		},
	}}
	svc, err := NewService(backend)
	require.NoError(t, err)

	page, err := svc.PagedOrders(context.Background(), -2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(41), page.TotalElements)
	assert.True(t, page.HasMore)
}

func TestUpdateOrderStatusPatchesStatusPayload(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{
		"/manager/orders/7/status": map[string]any{"id": 7, "status": "CONFIRMED"},
	}}
	svc, err := NewService(backend)
	require.NoError(t, err)

	updated, err := svc.UpdateOrderStatus(context.Background(), 7, "CONFIRMED")
	require.NoError(t, err)
	require.Len(t, backend.patchPaths, 1)
	assert.Equal(t, "/manager/orders/7/status", backend.patchPaths[0])
	assert.Equal(t, map[string]string{"status": "CONFIRMED"}, backend.patchBodies[0])
	assert.Equal(t, int64(7), updated.ID)
	assert.Equal(t, "CONFIRMED", updated.Status)
}

func TestStatsAndRevenuePassThroughUntyped(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{payloads: map[string]any{
		"/manager/stats":             map[string]any{"totalOrders": 12, "pendingOrders": 3},
		"/manager/analytics/revenue": []any{map[string]any{"date": "2025-11-01", "revenue": 412.5}},
	}}
	svc, err := NewService(backend)
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalOrders":12,"pendingOrders":3}`, string(stats))

	revenue, err := svc.Revenue(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2025-11-01","revenue":412.5}]`, string(revenue))
}
