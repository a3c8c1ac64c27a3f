package events

import (
	"context"
	"sync"
)

const defaultFeedSize = 50

// Feed keeps the most recent events per owner so UI collaborators can poll
// for cart count and checkout stage changes.
type Feed struct {
	mu     sync.Mutex
	size   int
	events map[string][]Event
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = defaultFeedSize
	}
	return &Feed{size: size, events: make(map[string][]Event)}
}

// Attach subscribes the feed to every event kind on the bus.
func (f *Feed) Attach(b *Bus) func() {
	unsubCart := b.Subscribe(KindCartCountChanged, f.record)
	unsubStage := b.Subscribe(KindCheckoutStageChanged, f.record)
	return func() {
		unsubCart()
		unsubStage()
	}
}

func (f *Feed) record(_ context.Context, e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := append(f.events[e.OwnerID], e)
	if len(list) > f.size {
		list = list[len(list)-f.size:]
	}
	f.events[e.OwnerID] = list
}

// Recent returns the owner's events, oldest first.
func (f *Feed) Recent(ownerID string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Event, len(f.events[ownerID]))
	copy(out, f.events[ownerID])
	return out
}
