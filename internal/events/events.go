package events

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	KindCartCountChanged     Kind = "cart.count_changed"
	KindCheckoutStageChanged Kind = "checkout.stage_changed"
)

// Event is a notification for UI collaborators. OwnerID scopes it to one
// purchaser.
type Event struct {
	Kind      Kind      `json:"kind"`
	OwnerID   string    `json:"ownerId"`
	CartCount int       `json:"cartCount,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	PrevStage string    `json:"prevStage,omitempty"`
	OrderID   string    `json:"orderId,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Handler func(ctx context.Context, e Event)

// Bus delivers events synchronously to subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Kind]map[int]Handler
	order  map[Kind][]int
}

func NewBus() *Bus {
	return &Bus{
		subs:  make(map[Kind]map[int]Handler),
		order: make(map[Kind][]int),
	}
}

// Subscribe registers h for kind and returns a function that removes it.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	b.subs[kind][id] = h
	b.order[kind] = append(b.order[kind], id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Kind]))
	for _, id := range b.order[e.Kind] {
		if h, ok := b.subs[e.Kind][id]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
