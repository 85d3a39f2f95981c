package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
)

// OrderStore keeps saved aggregates in memory, in save order.
type OrderStore struct {
	mu     sync.RWMutex
	orders []*domain.Order

	// FailFor makes SaveOrder fail for the given external reference, for
	// exercising partial-commit paths in tests.
	FailFor string
}

func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

func (s *OrderStore) SaveOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFor != "" && order.ExternalReference == s.FailFor {
		return fmt.Errorf("memory: save order %q: storage unavailable", order.ExternalReference)
	}
	s.orders = append(s.orders, order)
	return nil
}

// Orders returns a snapshot of everything saved so far.
func (s *OrderStore) Orders() []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// StockStore keeps stock counters in a map.
type StockStore struct {
	mu         sync.Mutex
	quantities map[ports.StockKey]int
}

func NewStockStore() *StockStore {
	return &StockStore{quantities: make(map[ports.StockKey]int)}
}

// Set seeds one stock counter.
func (s *StockStore) Set(variantID, warehouseID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quantities[ports.StockKey{VariantID: variantID, WarehouseID: warehouseID}] = quantity
}

// Get reads one counter; ok is false when no row exists.
func (s *StockStore) Get(variantID, warehouseID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quantities[ports.StockKey{VariantID: variantID, WarehouseID: warehouseID}]
	return q, ok
}

func (s *StockStore) Quantities(_ context.Context, keys []ports.StockKey) (map[ports.StockKey]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ports.StockKey]int, len(keys))
	for _, key := range keys {
		if q, ok := s.quantities[key]; ok {
			out[key] = q
		}
	}
	return out, nil
}

func (s *StockStore) Decrement(_ context.Context, demand map[ports.StockKey]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, qty := range demand {
		s.quantities[key] -= qty
	}
	return nil
}

var (
	_ ports.OrderRepository = (*OrderStore)(nil)
	_ ports.StockStore      = (*StockStore)(nil)
)
