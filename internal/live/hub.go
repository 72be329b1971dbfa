// Package live re-runs read queries whenever a committed write touches the
// collections they read from.
package live

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"wishlist-go/internal/model"
)

// Logger receives refresh failures. wishlist.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}

// Query is a read over one or more collections.
type Query[T any] struct {
	Name        string
	Collections []model.Collection
	Run         func(ctx context.Context) (T, error)
}

type dispatchKey struct{}

// Hub tracks live subscriptions and refreshes them on Notify.
// Deliveries are serialized: at most one goroutine dispatches at a time and
// a Notify returns only after every affected subscriber has been refreshed.
type Hub struct {
	logger Logger

	dispatchMu sync.Mutex

	mu      sync.Mutex
	subs    map[uint64]*subscriber
	nextID  uint64
	pending map[model.Collection]bool
}

type subscriber struct {
	name        string
	collections map[model.Collection]bool
	refresh     func(ctx context.Context) error
	cancelled   atomic.Bool
}

// NewHub creates an empty hub. A nil logger discards refresh errors.
func NewHub(logger Logger) *Hub {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Hub{
		logger:  logger,
		subs:    make(map[uint64]*subscriber),
		pending: make(map[model.Collection]bool),
	}
}

// Notify refreshes every subscription reading any of collections.
// A Notify issued by a query while it is being refreshed is queued and
// delivered by the dispatch already in progress.
func (h *Hub) Notify(ctx context.Context, collections ...model.Collection) {
	if len(collections) == 0 {
		return
	}
	if ctx.Value(dispatchKey{}) == h {
		h.enqueue(collections)
		return
	}

	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()

	h.enqueue(collections)
	dctx := context.WithValue(context.WithoutCancel(ctx), dispatchKey{}, h)
	for {
		subs := h.takePending()
		if subs == nil {
			return
		}
		for _, s := range subs {
			if s.cancelled.Load() {
				continue
			}
			if err := s.refresh(dctx); err != nil {
				h.logger.Error("live query refresh failed", "query", s.name, "error", err)
			}
		}
	}
}

func (h *Hub) enqueue(collections []model.Collection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range collections {
		h.pending[c] = true
	}
}

// takePending drains the pending set and returns the subscribers it affects,
// in subscription order. It returns nil when nothing was pending.
func (h *Hub) takePending() []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.pending) == 0 {
		return nil
	}
	pending := h.pending
	h.pending = make(map[model.Collection]bool)

	ids := make([]uint64, 0, len(h.subs))
	for id, s := range h.subs {
		for c := range s.collections {
			if pending[c] {
				ids = append(ids, id)
				break
			}
		}
	}
	slices.Sort(ids)

	subs := make([]*subscriber, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, h.subs[id])
	}
	return subs
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe(s *subscriber) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.subs[h.nextID] = s
	return &Subscription{hub: h, id: h.nextID, sub: s}
}

// Subscription is a registered live query.
type Subscription struct {
	hub  *Hub
	id   uint64
	sub  *subscriber
	once sync.Once
}

// Cancel stops further deliveries. It is safe to call more than once and
// from inside the subscriber's own callback.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.sub.cancelled.Store(true)
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

// Watch runs q, registers it with h and returns the current result.
// Each later Notify touching one of q's collections re-runs q and passes the
// fresh result to fn. A failed refresh is logged and fn is not called, so the
// subscriber keeps its previous value.
func Watch[T any](ctx context.Context, h *Hub, q Query[T], fn func(T)) (T, *Subscription, error) {
	var zero T

	s := &subscriber{
		name:        q.Name,
		collections: make(map[model.Collection]bool, len(q.Collections)),
	}
	for _, c := range q.Collections {
		s.collections[c] = true
	}
	s.refresh = func(ctx context.Context) error {
		v, err := q.Run(ctx)
		if err != nil {
			return err
		}
		if !s.cancelled.Load() {
			fn(v)
		}
		return nil
	}

	// Register before the first read so a write landing in between is not missed.
	sub := h.subscribe(s)

	v, err := q.Run(ctx)
	if err != nil {
		sub.Cancel()
		return zero, nil, fmt.Errorf("running query %s: %w", q.Name, err)
	}
	return v, sub, nil
}
