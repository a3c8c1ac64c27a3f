package cart

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"warimas-orderflow/internal/events"
	"warimas-orderflow/internal/logger"

	"go.uber.org/zap"
)

// Remote is the cart service the store keeps in sync with.
type Remote interface {
	GetCart(ctx context.Context) ([]Line, error)
	AddLine(ctx context.Context, productID string, quantity int) (*Line, error)
	// UpdateQuantity sets an absolute quantity; repeating a call with the
	// same target is harmless.
	UpdateQuantity(ctx context.Context, lineID string, quantity int) error
	RemoveLines(ctx context.Context, lineIDs []string) error
}

// mutation is an in-flight quantity change.
type mutation struct {
	seq    uint64
	target int
}

type entry struct {
	line     Line // Quantity holds the last server-confirmed value
	pos      int64
	baseSeq  uint64
	pending  []mutation
	removing bool
}

// visible is the quantity shown to readers: the newest in-flight target that
// is newer than the confirmed value, else the confirmed value.
func (e *entry) visible() Line {
	l := e.line
	if n := len(e.pending); n > 0 && e.pending[n-1].seq > e.baseSeq {
		l.Quantity = e.pending[n-1].target
	}
	return l
}

func (e *entry) drop(seq uint64) {
	for i, m := range e.pending {
		if m.seq == seq {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return
		}
	}
}

// Store holds one purchaser's cart. Mutations are applied locally first and
// rolled back if the cart service rejects them. Safe for concurrent use; no
// lock is held across a remote call.
type Store struct {
	mu      sync.Mutex
	owner   string
	remote  Remote
	events  events.Publisher
	entries map[string]*entry
	adding  map[string]bool
	nextPos int64
	seq     uint64
	gen     uint64
}

func NewStore(owner string, remote Remote, pub events.Publisher) *Store {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Store{
		owner:   owner,
		remote:  remote,
		events:  pub,
		entries: make(map[string]*entry),
		adding:  make(map[string]bool),
	}
}

// Load replaces local state with the cart service's view. Completions of
// mutations dispatched before the load are ignored.
func (s *Store) Load(ctx context.Context) error {
	lines, err := s.remote.GetCart(ctx)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to load cart", zap.String("owner", s.owner), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrFailedGetCart, err)
	}

	s.mu.Lock()
	s.gen++
	s.entries = make(map[string]*entry, len(lines))
	for _, l := range lines {
		s.insertLocked(l)
	}
	count := s.countLocked()
	s.mu.Unlock()

	s.publishCount(ctx, count)
	return nil
}

func (s *Store) insertLocked(l Line) {
	s.nextPos++
	s.entries[l.ID] = &entry{line: l, pos: s.nextPos}
}

// AddLine creates a new line. A product already in the cart is a conflict;
// use ChangeQuantity instead.
func (s *Store) AddLine(ctx context.Context, productID string, quantity int) (Line, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "store"),
		zap.String("method", "AddLine"),
		zap.String("product_id", productID),
	)

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Line{}, ErrInvalidProduct
	}
	if quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	if s.adding[productID] || s.hasProductLocked(productID) {
		s.mu.Unlock()
		return Line{}, ErrCartItemAlreadyExist
	}
	s.adding[productID] = true
	gen := s.gen
	s.mu.Unlock()

	created, err := s.remote.AddLine(ctx, productID, quantity)

	s.mu.Lock()
	delete(s.adding, productID)
	if err != nil {
		s.mu.Unlock()
		log.Warn("add line failed", zap.Error(err))
		return Line{}, fmt.Errorf("%w: %w", ErrFailedCreateCartItem, err)
	}
	if gen == s.gen {
		if _, exists := s.entries[created.ID]; !exists {
			s.insertLocked(*created)
		}
	}
	count := s.countLocked()
	s.mu.Unlock()

	s.publishCount(ctx, count)
	log.Info("cart line added", zap.String("line_id", created.ID))
	return *created, nil
}

func (s *Store) hasProductLocked(productID string) bool {
	for _, e := range s.entries {
		if e.line.ProductID == productID {
			return true
		}
	}
	return false
}

// ChangeQuantity adds delta to the line's current quantity. A result below 1
// is refused without any change. The new quantity is visible immediately; if
// the cart service rejects it, the line falls back to the most recent value
// that is still valid and the remote error is returned.
func (s *Store) ChangeQuantity(ctx context.Context, lineID string, delta int) (Line, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "store"),
		zap.String("method", "ChangeQuantity"),
		zap.String("line_id", lineID),
		zap.Int("delta", delta),
	)

	s.mu.Lock()
	e, ok := s.entries[lineID]
	if !ok || e.removing {
		s.mu.Unlock()
		return Line{}, ErrCartItemNotFound
	}
	current := e.visible()
	target := current.Quantity + delta
	if delta == 0 {
		s.mu.Unlock()
		return current, nil
	}
	if target < 1 {
		s.mu.Unlock()
		return current, ErrInvalidQuantity
	}

	s.seq++
	m := mutation{seq: s.seq, target: target}
	e.pending = append(e.pending, m)
	gen := s.gen
	optimistic := e.visible()
	s.mu.Unlock()

	log.Debug("quantity applied optimistically", zap.Int("quantity", optimistic.Quantity))

	err := s.remote.UpdateQuantity(ctx, lineID, target)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok = s.entries[lineID]
	if gen != s.gen || !ok {
		if err != nil {
			return Line{}, fmt.Errorf("%w: %w", ErrFailedUpdateCart, err)
		}
		return optimistic, nil
	}

	e.drop(m.seq)
	if err != nil {
		after := e.visible()
		log.Warn("quantity update failed, rolled back",
			zap.Int("quantity", after.Quantity),
			zap.Error(err),
		)
		return after, fmt.Errorf("%w: %w", ErrFailedUpdateCart, err)
	}

	if m.seq > e.baseSeq {
		e.line.Quantity = m.target
		e.baseSeq = m.seq
	}
	return e.visible(), nil
}

// RemoveLines removes lines immediately and restores them at their original
// position if the cart service rejects the removal.
func (s *Store) RemoveLines(ctx context.Context, lineIDs []string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "store"),
		zap.String("method", "RemoveLines"),
		zap.Strings("line_ids", lineIDs),
	)

	ids := dedupe(lineIDs)
	if len(ids) == 0 {
		return ErrInvalidRemoveCartInput
	}

	s.mu.Lock()
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok || e.removing {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrCartItemNotFound, id)
		}
	}
	for _, id := range ids {
		s.entries[id].removing = true
	}
	gen := s.gen
	s.mu.Unlock()

	err := s.remote.RemoveLines(ctx, ids)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFailedRemoveCart, err)
		}
		return nil
	}
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok {
			continue
		}
		if err != nil {
			e.removing = false
		} else {
			delete(s.entries, id)
		}
	}
	count := s.countLocked()
	s.mu.Unlock()

	if err != nil {
		log.Warn("remove lines failed, restored", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrFailedRemoveCart, err)
	}

	s.publishCount(ctx, count)
	log.Info("cart lines removed", zap.Int("count", len(ids)))
	return nil
}

// Discard drops lines the server has already deleted, such as lines that
// became part of a paid order. Unknown ids are ignored.
func (s *Store) Discard(ctx context.Context, lineIDs []string) {
	s.mu.Lock()
	removed := 0
	for _, id := range lineIDs {
		if _, ok := s.entries[id]; ok {
			delete(s.entries, id)
			removed++
		}
	}
	count := s.countLocked()
	s.mu.Unlock()

	if removed > 0 {
		s.publishCount(ctx, count)
	}
}

// ListGroups returns the visible lines grouped by merchant. Groups appear in
// the order of their first line; lines keep their cart order.
func (s *Store) ListGroups() []Group {
	lines := s.Lines()

	groups := make([]Group, 0)
	index := make(map[string]int)
	for _, l := range lines {
		i, ok := index[l.MerchantID]
		if !ok {
			i = len(groups)
			index[l.MerchantID] = i
			groups = append(groups, Group{MerchantID: l.MerchantID})
		}
		groups[i].Lines = append(groups[i].Lines, l)
	}
	return groups
}

// Lines returns the visible lines in cart order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.removing {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].pos < list[j].pos })

	lines := make([]Line, 0, len(list))
	for _, e := range list {
		lines = append(lines, e.visible())
	}
	return lines
}

// Snapshot returns the visible state of the given lines, in the given order.
func (s *Store) Snapshot(lineIDs []string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := dedupe(lineIDs)
	out := make([]Line, 0, len(ids))
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok || e.removing {
			return nil, fmt.Errorf("%w: %s", ErrCartItemNotFound, id)
		}
		out = append(out, e.visible())
	}
	return out, nil
}

// Count is the number of visible lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked()
}

func (s *Store) countLocked() int {
	n := 0
	for _, e := range s.entries {
		if !e.removing {
			n++
		}
	}
	return n
}

func (s *Store) publishCount(ctx context.Context, count int) {
	s.events.Publish(ctx, events.Event{
		Kind:      events.KindCartCountChanged,
		OwnerID:   s.owner,
		CartCount: count,
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
