package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-importer/internal/importer/adapters/memory"
	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
	"github.com/jcmexdev/order-importer/internal/importer/resolve"
)

func testResolver() *resolve.Resolver {
	dir := memory.NewDirectory()
	dir.AddVariant(domain.ProductVariant{ID: "variant-1", SKU: "SKU-1"})
	dir.AddVariant(domain.ProductVariant{ID: "variant-2", SKU: "SKU-2"})
	dir.AddWarehouse(domain.Warehouse{ID: "warehouse-1"})
	dir.AddWarehouse(domain.Warehouse{ID: "warehouse-2"})
	return resolve.New(dir.Directories())
}

func orderLines() []domain.OrderLine {
	return []domain.OrderLine{
		{ID: "line-0", VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 5},
		{ID: "line-1", VariantID: "variant-2", WarehouseID: "warehouse-2", Quantity: 2},
	}
}

func TestFulfillmentsHappyPath(t *testing.T) {
	lines := orderLines()
	inputs := []domain.FulfillmentInput{
		{TrackingCode: "track-1", Lines: []domain.FulfillmentLineInput{
			{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 3, OrderLineIndex: 0},
		}},
		{TrackingCode: "track-2", Lines: []domain.FulfillmentLineInput{
			{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 2, OrderLineIndex: 0},
			{VariantID: "variant-2", WarehouseID: "warehouse-2", Quantity: 2, OrderLineIndex: 1},
		}},
	}

	fulfillments, errs := Fulfillments(context.Background(), testResolver(), lines, inputs)
	require.Empty(t, errs)
	require.Len(t, fulfillments, 2)

	assert.Equal(t, 1, fulfillments[0].FulfillmentOrder)
	assert.Equal(t, 2, fulfillments[1].FulfillmentOrder)
	assert.Equal(t, domain.FulfillmentStatusFulfilled, fulfillments[0].Status)
	assert.Equal(t, "track-1", fulfillments[0].TrackingCode)
	assert.Equal(t, "line-0", fulfillments[0].Lines[0].OrderLineID)

	assert.Equal(t, 5, lines[0].QuantityFulfilled)
	assert.Equal(t, 2, lines[1].QuantityFulfilled)
}

func TestFulfillmentsBadLineIndex(t *testing.T) {
	lines := orderLines()
	inputs := []domain.FulfillmentInput{
		{Lines: []domain.FulfillmentLineInput{
			{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 1, OrderLineIndex: 5},
		}},
	}

	_, errs := Fulfillments(context.Background(), testResolver(), lines, inputs)
	require.Len(t, errs, 1)
	assert.Equal(t, "There is no order line with index: 5.", errs[0].Message)
	assert.Equal(t, "order_line_index", errs[0].Field)
	assert.Equal(t, domain.CodeNoRelatedOrderLine, errs[0].Code)
}

func TestFulfillmentsWarehouseMismatchCheckedBeforeVariant(t *testing.T) {
	lines := orderLines()
	// Both the warehouse and the variant differ from line 0.
	inputs := []domain.FulfillmentInput{
		{Lines: []domain.FulfillmentLineInput{
			{VariantID: "variant-2", WarehouseID: "warehouse-2", Quantity: 1, OrderLineIndex: 0},
		}},
	}

	_, errs := Fulfillments(context.Background(), testResolver(), lines, inputs)
	require.Len(t, errs, 1)
	assert.Equal(t, "Fulfillment line's warehouse is different then order line's warehouse.", errs[0].Message)
	assert.Equal(t, "warehouse", errs[0].Field)
	assert.Equal(t, domain.CodeOrderLineFulfillmentLineMismatch, errs[0].Code)
}

func TestFulfillmentsVariantMismatch(t *testing.T) {
	lines := orderLines()
	inputs := []domain.FulfillmentInput{
		{Lines: []domain.FulfillmentLineInput{
			{VariantID: "variant-2", WarehouseID: "warehouse-1", Quantity: 1, OrderLineIndex: 0},
		}},
	}

	_, errs := Fulfillments(context.Background(), testResolver(), lines, inputs)
	require.Len(t, errs, 1)
	assert.Equal(t, "Fulfillment line's product variant is different then order line's product variant.", errs[0].Message)
	assert.Equal(t, "variant_id", errs[0].Field)
}

func TestFulfillmentsOverOrderedQuantity(t *testing.T) {
	lines := orderLines()
	inputs := []domain.FulfillmentInput{
		{Lines: []domain.FulfillmentLineInput{
			{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 4, OrderLineIndex: 0},
			{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 4, OrderLineIndex: 0},
		}},
	}

	_, errs := Fulfillments(context.Background(), testResolver(), lines, inputs)
	require.Len(t, errs, 1)
	assert.Equal(t,
		"There is more fulfillments, than ordered quantity for order line with variant: variant-1 and warehouse: warehouse-1",
		errs[0].Message)
	assert.Equal(t, "order_line", errs[0].Field)
	assert.Equal(t, domain.CodeInvalidQuantity, errs[0].Code)
	assert.Equal(t, 0, lines[0].QuantityFulfilled)
}

func key(variant, warehouse string) ports.StockKey {
	return ports.StockKey{VariantID: variant, WarehouseID: warehouse}
}

func TestDemandAggregatesAcrossOrders(t *testing.T) {
	orders := []*domain.Order{
		{Lines: []domain.OrderLine{
			{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 3},
			{VariantID: "variant-2", WarehouseID: "warehouse-1", Quantity: 1},
		}},
		{Lines: []domain.OrderLine{
			{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 4},
		}},
	}

	demand := Demand(orders)
	assert.Equal(t, map[ports.StockKey]int{
		key("variant-1", "warehouse-1"): 7,
		key("variant-2", "warehouse-1"): 1,
	}, demand)
}

func TestEvaluateSkipNeverFails(t *testing.T) {
	demand := map[ports.StockKey]int{key("variant-1", "warehouse-1"): 100}
	assert.Nil(t, Evaluate(demand, nil, domain.StockUpdateSkip))
}

func TestEvaluateUpdate(t *testing.T) {
	demand := map[ports.StockKey]int{
		key("variant-1", "warehouse-1"): 5,
		key("variant-2", "warehouse-1"): 5,
		key("variant-3", "warehouse-1"): 5,
	}
	available := map[ports.StockKey]int{
		key("variant-1", "warehouse-1"): 5,
		key("variant-2", "warehouse-1"): 4,
	}

	failing := Evaluate(demand, available, domain.StockUpdateUpdate)
	require.Len(t, failing, 2)

	insufficient := failing[key("variant-2", "warehouse-1")]
	assert.Equal(t, "Insufficient stock for product variant: variant-2 and warehouse: warehouse-1.", insufficient.Message)
	assert.Equal(t, "order_line", insufficient.Field)
	assert.Equal(t, domain.CodeInsufficientStock, insufficient.Code)

	missing := failing[key("variant-3", "warehouse-1")]
	assert.Equal(t, "There is no stock for given product variant: variant-3 and warehouse: warehouse-1.", missing.Message)
	assert.Equal(t, domain.CodeNonExistingStock, missing.Code)
}

func TestEvaluateForceAllowsNegativeButNotMissing(t *testing.T) {
	demand := map[ports.StockKey]int{
		key("variant-1", "warehouse-1"): 100,
		key("variant-3", "warehouse-1"): 1,
	}
	available := map[ports.StockKey]int{
		key("variant-1", "warehouse-1"): 5,
	}

	failing := Evaluate(demand, available, domain.StockUpdateForce)
	require.Len(t, failing, 1)
	assert.Equal(t, domain.CodeNonExistingStock, failing[key("variant-3", "warehouse-1")].Code)
}

func TestTouches(t *testing.T) {
	order := &domain.Order{Lines: []domain.OrderLine{
		{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 1},
		{VariantID: "variant-1", WarehouseID: "warehouse-1", Quantity: 2},
	}}
	failing := map[ports.StockKey]domain.BulkError{
		key("variant-1", "warehouse-1"): {Code: domain.CodeInsufficientStock},
	}

	// The same failing key is reported once even when hit by two lines.
	errs := Touches(order, failing)
	assert.Len(t, errs, 1)

	other := &domain.Order{Lines: []domain.OrderLine{
		{VariantID: "variant-2", WarehouseID: "warehouse-1", Quantity: 1},
	}}
	assert.Empty(t, Touches(other, failing))
}
