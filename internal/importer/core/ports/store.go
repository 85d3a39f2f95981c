package ports

import (
	"context"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
)

// StockKey identifies one stock counter.
type StockKey struct {
	VariantID   string
	WarehouseID string
}

// StockStore reads and conditionally decrements externally-owned stock
// counters. Decrement must be atomic for the whole demand map and must hold
// a row-level lock (or equivalent) per key so concurrent stock-affecting
// operations cannot produce lost updates.
type StockStore interface {
	// Quantities returns current quantities for the given keys. Keys with
	// no stock row are absent from the result, not an error.
	Quantities(ctx context.Context, keys []StockKey) (map[StockKey]int, error)

	// Decrement subtracts demand[key] from each counter. Counters may go
	// negative; policy checks happen before this call.
	Decrement(ctx context.Context, demand map[StockKey]int) error
}

// OrderRepository persists assembled order aggregates. SaveOrder must be
// atomic: the order with all its lines, addresses, events, fulfillments and
// transactions is written in one transaction or not at all. One order's
// failure never rolls back a sibling already saved.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order *domain.Order) error
}
