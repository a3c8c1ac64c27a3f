package httpapi

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"warimas-orderflow/internal/cart"
	"warimas-orderflow/internal/checkout"
	"warimas-orderflow/internal/events"
	"warimas-orderflow/internal/order"

	"golang.org/x/sync/singleflight"
)

// Backend is the storefront surface a workspace needs.
type Backend interface {
	cart.Remote
	checkout.Remote
}

type RegistryDeps struct {
	Backend   Backend
	Ledger    checkout.Ledger
	Tracker   *order.Tracker
	Redirects checkout.Redirects
	Events    events.Publisher
	// StaleAfter is passed to every checkout; see checkout.StaleAfterFor.
	StaleAfter time.Duration
}

// Workspace is one purchaser's cart store and checkout.
type Workspace struct {
	Cart     *cart.Store
	Checkout *checkout.Orchestrator
	loaded   atomic.Bool
}

// Registry hands out one workspace per purchaser. Workspaces share the order
// tracker, the handoff ledger and the Resume flight group.
type Registry struct {
	deps    RegistryDeps
	flights *singleflight.Group
	loads   singleflight.Group

	mu     sync.Mutex
	spaces map[string]*Workspace
}

func NewRegistry(d RegistryDeps) *Registry {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Ledger == nil {
		d.Ledger = checkout.NewMemoryLedger()
	}
	return &Registry{
		deps:    d,
		flights: &singleflight.Group{},
		spaces:  make(map[string]*Workspace),
	}
}

// Workspace returns the owner's workspace with its cart loaded. A failed load
// is retried on the next call.
func (r *Registry) Workspace(ctx context.Context, owner string) (*Workspace, error) {
	ws := r.lookup(owner)
	if ws.loaded.Load() {
		return ws, nil
	}

	_, err, _ := r.loads.Do(owner, func() (any, error) {
		if ws.loaded.Load() {
			return nil, nil
		}
		if err := ws.Cart.Load(ctx); err != nil {
			return nil, err
		}
		ws.loaded.Store(true)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Unloaded returns the owner's workspace without touching the storefront.
// The payment callback uses it so verification does not depend on the cart
// service being reachable.
func (r *Registry) Unloaded(owner string) *Workspace {
	return r.lookup(owner)
}

func (r *Registry) lookup(owner string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.spaces[owner]; ok {
		return ws
	}

	store := cart.NewStore(owner, r.deps.Backend, r.deps.Events)
	ws := &Workspace{
		Cart: store,
		Checkout: checkout.New(owner, checkout.Deps{
			Remote:     r.deps.Backend,
			Ledger:     r.deps.Ledger,
			Cart:       store,
			Items:      r.deps.Tracker,
			Redirects:  r.deps.Redirects,
			Events:     r.deps.Events,
			Flights:    r.flights,
			StaleAfter: r.deps.StaleAfter,
		}),
	}
	r.spaces[owner] = ws
	return ws
}
