package repositories

import "gorm.io/gorm"

// GORMStore implements Store with a database transaction.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a new instance of GORMStore.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// WithinTransaction runs fn with repositories bound to a single transaction.
func (s *GORMStore) WithinTransaction(fn func(products ProductRepository, orders OrderRepository) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMProductRepository(tx), NewGORMOrderRepository(tx))
	})
}
