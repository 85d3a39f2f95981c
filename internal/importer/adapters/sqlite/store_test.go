package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "importer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleOrder() *domain.Order {
	createdAt := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	money := func(s string) decimal.Decimal {
		d, _ := decimal.NewFromString(s)
		return d
	}
	charged := &domain.Money{Amount: money("120.00"), Currency: "PLN"}
	return &domain.Order{
		ID:                "order-1",
		ExternalReference: "legacy-42",
		ChannelID:         "channel-1",
		ChannelSlug:       "channel-pln",
		CreatedAt:         createdAt,
		Status:            domain.StatusDraft,
		Origin:            domain.OrderOriginBulkCreate,
		UserID:            "user-1",
		UserEmail:         "customer@example.com",
		BillingAddress: &domain.Address{
			ID: "addr-1", StreetAddress1: "Teczowa 7", City: "Wroclaw",
			PostalCode: "53-601", Country: "PL",
		},
		LanguageCode:       "pl",
		Currency:           "PLN",
		DisplayGrossPrices: true,
		ShippingMethodID:   "method-1",
		ShippingMethodName: "DHL",
		ShippingTaxRate:    money("0.2"),
		ShippingPrice:      domain.TaxedMoney{Net: money("100.00"), Gross: money("120.00")},
		Total:              domain.TaxedMoney{Net: money("100.00"), Gross: money("120.00")},
		UndiscountedTotal:  domain.TaxedMoney{Net: money("100.00"), Gross: money("120.00")},
		Lines: []domain.OrderLine{{
			ID:                     "line-1",
			VariantID:              "variant-1",
			SKU:                    "SKU-1",
			CreatedAt:              createdAt,
			Currency:               "PLN",
			Quantity:               5,
			QuantityFulfilled:      5,
			UnitPrice:              domain.TaxedMoney{Net: money("20.00"), Gross: money("24.00")},
			TotalPrice:             domain.TaxedMoney{Net: money("100.00"), Gross: money("120.00")},
			UndiscountedUnitPrice:  domain.TaxedMoney{Net: money("20.00"), Gross: money("24.00")},
			UndiscountedTotalPrice: domain.TaxedMoney{Net: money("100.00"), Gross: money("120.00")},
			TaxRate:                money("0.2"),
			WarehouseID:            "warehouse-1",
		}},
		Events: []domain.OrderEvent{{
			ID: "event-1", Type: domain.OrderEventNoteAdded,
			Date: createdAt, Message: "Test message", UserID: "user-1",
		}},
		Fulfillments: []domain.Fulfillment{{
			ID: "fulfillment-1", FulfillmentOrder: 1,
			Status: domain.FulfillmentStatusFulfilled, TrackingCode: "track-1",
			Lines: []domain.FulfillmentLine{{
				ID: "fline-1", OrderLineID: "line-1", OrderLineIndex: 0,
				VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 5,
			}},
		}},
		Transactions: []domain.Transaction{{
			ID: "transaction-1", Status: "Charged", Name: "Credit card",
			PSPReference: "PSP reference - 123", AmountCharged: charged,
		}},
	}
}

func TestSaveOrderAndReadBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveOrder(ctx, sampleOrder()))

	got, err := store.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", got.ID)
	assert.Equal(t, "legacy-42", got.ExternalReference)
	assert.Equal(t, "channel-pln", got.ChannelSlug)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.Equal(t, domain.OrderOriginBulkCreate, got.Origin)
	assert.Equal(t, "customer@example.com", got.UserEmail)
	assert.Equal(t, "PLN", got.Currency)
	assert.True(t, got.CreatedAt.Equal(time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, "100", got.Total.Net.String())
	assert.Equal(t, "120", got.Total.Gross.String())

	count, err := store.CountOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetOrderNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetOrder(context.Background(), "non-existing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestSaveOrderDuplicateIDRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveOrder(ctx, sampleOrder()))
	// Same primary key again: the whole second aggregate must be refused.
	assert.Error(t, store.SaveOrder(ctx, sampleOrder()))

	count, err := store.CountOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStockQuantitiesAndDecrement(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	key1 := ports.StockKey{VariantID: "variant-1", WarehouseID: "warehouse-1"}
	key2 := ports.StockKey{VariantID: "variant-2", WarehouseID: "warehouse-1"}
	missing := ports.StockKey{VariantID: "variant-3", WarehouseID: "warehouse-1"}

	require.NoError(t, store.SeedStock(ctx, key1.VariantID, key1.WarehouseID, 100))
	require.NoError(t, store.SeedStock(ctx, key2.VariantID, key2.WarehouseID, 10))

	available, err := store.Quantities(ctx, []ports.StockKey{key1, key2, missing})
	require.NoError(t, err)
	assert.Equal(t, map[ports.StockKey]int{key1: 100, key2: 10}, available)

	require.NoError(t, store.Decrement(ctx, map[ports.StockKey]int{key1: 30, key2: 15}))

	available, err = store.Quantities(ctx, []ports.StockKey{key1, key2})
	require.NoError(t, err)
	assert.Equal(t, 70, available[key1])
	// FORCE may push counters below zero; the store does not clamp.
	assert.Equal(t, -5, available[key2])
}

func TestSeedStockReplacesExistingCounter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedStock(ctx, "variant-1", "warehouse-1", 5))
	require.NoError(t, store.SeedStock(ctx, "variant-1", "warehouse-1", 50))

	key := ports.StockKey{VariantID: "variant-1", WarehouseID: "warehouse-1"}
	available, err := store.Quantities(ctx, []ports.StockKey{key})
	require.NoError(t, err)
	assert.Equal(t, 50, available[key])
}
