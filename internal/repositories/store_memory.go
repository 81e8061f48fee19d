package repositories

import "sync"

// MemoryStore implements Store over the in-memory repositories. A failed unit
// of work restores both repositories to the state they had before it began.
type MemoryStore struct {
	Products *MemoryProductRepository
	Orders   *MemoryOrderRepository
	mu       sync.Mutex
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore(products *MemoryProductRepository, orders *MemoryOrderRepository) *MemoryStore {
	return &MemoryStore{Products: products, Orders: orders}
}

// WithinTransaction runs fn, rolling back on error. Units of work are serialised.
func (s *MemoryStore) WithinTransaction(fn func(products ProductRepository, orders OrderRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.Products.snapshot()
	orders := s.Orders.snapshot()
	if err := fn(s.Products, s.Orders); err != nil {
		s.Products.restore(products)
		s.Orders.restore(orders)
		return err
	}
	return nil
}
