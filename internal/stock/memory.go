package stock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryLedger keeps counters in process memory. Decrements use a per-key
// compare-and-swap loop, so two racing decrements of the same (product, size)
// pair can never drive a counter negative or double-apply.
type MemoryLedger struct {
	levels sync.Map // map[string]*atomic.Int64

	mu        sync.Mutex
	movements []Movement
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func levelKey(productID, size string) string {
	return productID + "/" + size
}

// SetQuantity seeds or overwrites the on-hand quantity for a product/size.
func (m *MemoryLedger) SetQuantity(productID, size string, quantity int) {
	counter, _ := m.levels.LoadOrStore(levelKey(productID, size), &atomic.Int64{})
	counter.(*atomic.Int64).Store(int64(quantity))
}

// Quantity returns the current on-hand quantity, or ErrNotFound.
func (m *MemoryLedger) Quantity(productID, size string) (int, error) {
	counter, ok := m.levels.Load(levelKey(productID, size))
	if !ok {
		return 0, fmt.Errorf("%w: %s size %s", ErrNotFound, productID, size)
	}
	return int(counter.(*atomic.Int64).Load()), nil
}

func (m *MemoryLedger) Decrement(ctx context.Context, productID, size string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", quantity)
	}

	counter, ok := m.levels.Load(levelKey(productID, size))
	if !ok {
		return fmt.Errorf("%w: %s size %s", ErrNotFound, productID, size)
	}

	level := counter.(*atomic.Int64)
	for {
		current := level.Load()
		if current < int64(quantity) {
			return fmt.Errorf("%w: %s size %s has %d, need %d", ErrInsufficientStock, productID, size, current, quantity)
		}
		if level.CompareAndSwap(current, current-int64(quantity)) {
			break
		}
	}

	m.record(Movement{
		ProductID: productID,
		Size:      size,
		Delta:     -quantity,
		Reason:    ReasonSale,
		Actor:     ActorSystem,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *MemoryLedger) Increment(ctx context.Context, productID, size string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", quantity)
	}

	counter, _ := m.levels.LoadOrStore(levelKey(productID, size), &atomic.Int64{})
	counter.(*atomic.Int64).Add(int64(quantity))

	m.record(Movement{
		ProductID: productID,
		Size:      size,
		Delta:     quantity,
		Reason:    ReasonRestock,
		Actor:     ActorAdmin,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *MemoryLedger) Movements(ctx context.Context, productID string) ([]Movement, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	var history []Movement
	for _, movement := range m.movements {
		if movement.ProductID == productID {
			history = append(history, movement)
		}
	}
	return history, nil
}

func (m *MemoryLedger) record(movement Movement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, movement)
}
