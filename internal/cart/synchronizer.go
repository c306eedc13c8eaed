package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/groceryscout/storefront-gateway/internal/session"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
)

// Phase tracks the synchronizer lifecycle. There is no error phase: a failed
// operation leaves the last known-good state in place.
type Phase string

const (
	PhaseUninitialized Phase = "UNINITIALIZED"
	PhaseLoading       Phase = "LOADING"
	PhaseReady         Phase = "READY"
)

// Snapshot is a point-in-time copy of product display data as returned with
// the cart. It is not live-linked to catalog changes.
type Snapshot struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
	ImageURL string          `json:"imageUrl"`
}

// Line is one product's presence in the cart. Quantity is always positive;
// a line that would reach zero is removed, never kept at zero.
type Line struct {
	ProductID int64    `json:"productId"`
	Snapshot  Snapshot `json:"product"`
	Quantity  int      `json:"quantity"`
}

type backend interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Synchronizer owns the client-visible cart for one session and reconciles
// it against the server after every quantity-changing mutation. The server
// is authoritative: totals are never carried forward from optimistic local
// arithmetic.
type Synchronizer struct {
	api  backend
	logg *logger.Logger

	// op serializes whole operations (request plus refresh) so overlapping
	// mutations cannot interleave an older refresh over a newer one.
	op sync.Mutex

	state sync.RWMutex
	phase Phase
	lines []Line
}

// NewSynchronizer builds an idle synchronizer. It activates when the session
// store reports a present identity.
func NewSynchronizer(api backend, logg *logger.Logger) (*Synchronizer, error) {
	if api == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &Synchronizer{
		api:   api,
		logg:  logg,
		phase: PhaseUninitialized,
	}, nil
}

// IdentityChanged implements session.Listener. A present identity triggers
// the initial load; an absent one clears the cart immediately with no fetch.
func (s *Synchronizer) IdentityChanged(ctx context.Context, identity *session.Identity) {
	if identity == nil {
		s.op.Lock()
		defer s.op.Unlock()
		s.replace(nil, PhaseUninitialized)
		return
	}
	s.Fetch(ctx)
}

// Phase returns the current lifecycle phase.
func (s *Synchronizer) Phase() Phase {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.phase
}

// Lines returns a copy of the current line list, in server order.
func (s *Synchronizer) Lines() []Line {
	s.state.RLock()
	defer s.state.RUnlock()
	copied := make([]Line, len(s.lines))
	copy(copied, s.lines)
	return copied
}

// Count is the sum of all line quantities, recomputed on every call.
func (s *Synchronizer) Count() int {
	s.state.RLock()
	defer s.state.RUnlock()
	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// Total is the sum of quantity times snapshot price, recomputed on every
// call so it can never drift from the line list.
func (s *Synchronizer) Total() decimal.Decimal {
	s.state.RLock()
	defer s.state.RUnlock()
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Snapshot.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Fetch replaces the cart wholesale with the server's current contents.
// Idempotent; failures keep the previously displayed lines.
func (s *Synchronizer) Fetch(ctx context.Context) bool {
	s.op.Lock()
	defer s.op.Unlock()
	return s.refreshLocked(ctx)
}

// Add increments an existing line by qty, or creates one, server-side, then
// refetches. Returns false on any failure without touching local state.
func (s *Synchronizer) Add(ctx context.Context, productID int64, qty int) bool {
	if qty <= 0 {
		s.logOpFailure(ctx, "cart.add", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"))
		return false
	}
	s.op.Lock()
	defer s.op.Unlock()
	return s.sendDeltaLocked(ctx, "cart.add", productID, qty)
}

// AdjustQuantity applies a signed delta to an existing line. Positive and
// negative deltas share one code path: both are sent as increments to the
// add endpoint. A delta that would drive the quantity to zero or below
// removes the line instead. An unknown product is a no-op.
func (s *Synchronizer) AdjustQuantity(ctx context.Context, productID int64, delta int) bool {
	s.op.Lock()
	defer s.op.Unlock()

	current, ok := s.quantityOf(productID)
	if !ok {
		return true
	}
	if current+delta <= 0 {
		return s.removeLocked(ctx, productID)
	}
	return s.sendDeltaLocked(ctx, "cart.adjust", productID, delta)
}

// Remove deletes the line server-side. The post-condition is fully
// determined by the request succeeding, so local state is filtered directly
// with no refetch.
func (s *Synchronizer) Remove(ctx context.Context, productID int64) bool {
	s.op.Lock()
	defer s.op.Unlock()
	return s.removeLocked(ctx, productID)
}

// Clear deletes every line server-side and empties local state directly.
func (s *Synchronizer) Clear(ctx context.Context) bool {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.api.Delete(ctx, "/user/cart"); err != nil {
		s.logOpFailure(ctx, "cart.clear", err)
		return false
	}
	s.replace(nil, PhaseReady)
	return true
}

// CheckoutResult is the backend's order confirmation.
type CheckoutResult struct {
	Message string `json:"message"`
	OrderID int64  `json:"orderId"`
}

// Checkout submits the order. Unlike the other operations it re-throws the
// upstream error so the caller can branch on the specific failure; the cart
// is left exactly as it was.
func (s *Synchronizer) Checkout(ctx context.Context, deliveryAddress string) (*CheckoutResult, error) {
	if deliveryAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}

	s.op.Lock()
	defer s.op.Unlock()

	prev := s.Phase()
	s.setPhase(PhaseLoading)

	var result CheckoutResult
	payload := map[string]string{"deliveryAddress": deliveryAddress}
	if err := s.api.PostJSON(ctx, "/user/cart/checkout", payload, &result); err != nil {
		s.setPhase(prev)
		return nil, err
	}

	s.replace(nil, PhaseReady)
	return &result, nil
}

// sendDeltaLocked posts a quantity delta and refetches. Callers hold op.
func (s *Synchronizer) sendDeltaLocked(ctx context.Context, op string, productID int64, delta int) bool {
	prev := s.Phase()
	s.setPhase(PhaseLoading)

	payload := map[string]any{"productId": productID, "quantity": delta}
	if err := s.api.PostJSON(ctx, "/user/cart/add", payload, nil); err != nil {
		s.setPhase(prev)
		s.logOpFailure(ctx, op, err)
		return false
	}

	if ok := s.fetchInto(ctx); !ok {
		// The mutation committed but the refresh failed; keep the stale
		// lines rather than blanking the cart.
		s.setPhase(prev)
		return false
	}
	return true
}

func (s *Synchronizer) removeLocked(ctx context.Context, productID int64) bool {
	if err := s.api.Delete(ctx, fmt.Sprintf("/user/cart/%d", productID)); err != nil {
		s.logOpFailure(ctx, "cart.remove", err)
		return false
	}

	s.state.Lock()
	filtered := s.lines[:0]
	for _, line := range s.lines {
		if line.ProductID != productID {
			filtered = append(filtered, line)
		}
	}
	s.lines = filtered
	s.phase = PhaseReady
	s.state.Unlock()
	return true
}

func (s *Synchronizer) refreshLocked(ctx context.Context) bool {
	prev := s.Phase()
	s.setPhase(PhaseLoading)
	if ok := s.fetchInto(ctx); !ok {
		s.setPhase(prev)
		return false
	}
	return true
}

// lineWire matches the backend's cart item shape, which nests the product
// snapshot under "product" with its own id.
type lineWire struct {
	Product struct {
		ID       int64           `json:"id"`
		Name     string          `json:"name"`
		Price    decimal.Decimal `json:"price"`
		Unit     string          `json:"unit"`
		ImageURL string          `json:"imageUrl"`
	} `json:"product"`
	Quantity int `json:"quantity"`
}

// fetchInto pulls the server cart and replaces local lines wholesale on
// success. Only a successful fetch may replace displayed state.
func (s *Synchronizer) fetchInto(ctx context.Context) bool {
	var payload []lineWire
	if err := s.api.GetJSON(ctx, "/user/cart", &payload); err != nil {
		s.logOpFailure(ctx, "cart.fetch", err)
		return false
	}

	lines := make([]Line, 0, len(payload))
	for _, item := range payload {
		if item.Quantity <= 0 {
			continue
		}
		lines = append(lines, Line{
			ProductID: item.Product.ID,
			Snapshot: Snapshot{
				Name:     item.Product.Name,
				Price:    item.Product.Price,
				Unit:     item.Product.Unit,
				ImageURL: item.Product.ImageURL,
			},
			Quantity: item.Quantity,
		})
	}
	s.replace(lines, PhaseReady)
	return true
}

func (s *Synchronizer) quantityOf(productID int64) (int, bool) {
	s.state.RLock()
	defer s.state.RUnlock()
	for _, line := range s.lines {
		if line.ProductID == productID {
			return line.Quantity, true
		}
	}
	return 0, false
}

func (s *Synchronizer) replace(lines []Line, phase Phase) {
	s.state.Lock()
	s.lines = lines
	s.phase = phase
	s.state.Unlock()
}

func (s *Synchronizer) setPhase(phase Phase) {
	s.state.Lock()
	s.phase = phase
	s.state.Unlock()
}

func (s *Synchronizer) logOpFailure(ctx context.Context, op string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithField(ctx, "operation", op)
	s.logg.Error(logCtx, "cart.operation_failed", err)
}
