package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/groceryscout/storefront-gateway/pkg/logger"
	"github.com/groceryscout/storefront-gateway/pkg/metrics"
)

type lister interface {
	List(ctx context.Context) ([]Order, error)
}

// Watcher polls the order history on a fixed interval while a shopper has
// the orders screen mounted. A failed poll keeps the previously delivered
// snapshot: stale-but-present beats blank.
type Watcher struct {
	orders   lister
	logg     *logger.Logger
	metrics  *metrics.UpstreamMetrics
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
	latest  []Order
	hasData bool
}

// NewWatcher builds a stopped watcher with the given poll interval.
func NewWatcher(orders lister, logg *logger.Logger, m *metrics.UpstreamMetrics, interval time.Duration) (*Watcher, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watcher{
		orders:   orders,
		logg:     logg,
		metrics:  m,
		interval: interval,
	}, nil
}

// Start begins polling. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.stopped = false
	done := w.done
	w.mu.Unlock()

	go w.run(runCtx, done)
}

// Stop cancels the poll loop and waits for it to exit. After Stop returns,
// no further snapshot is delivered.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Latest returns the most recent successful snapshot and whether one exists.
func (w *Watcher) Latest() ([]Order, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasData {
		return nil, false
	}
	copied := make([]Order, len(w.latest))
	copy(copied, w.latest)
	return copied, true
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	snapshot, err := w.orders.List(ctx)
	if err != nil {
		if w.logg != nil {
			w.logg.Warn(w.logg.WithField(ctx, "error", err.Error()), "orders.watcher.poll_failed")
		}
		w.metrics.IncPoll("failure")
		return
	}

	w.mu.Lock()
	if !w.stopped {
		w.latest = snapshot
		w.hasData = true
	}
	w.mu.Unlock()
	w.metrics.IncPoll("success")
}
