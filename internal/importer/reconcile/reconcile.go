// Package reconcile cross-validates fulfillments against order lines and
// computes batch-wide stock effects. The stock side is two-phase: Demand and
// Evaluate are pure so they can be re-run and tested without touching
// storage; the actual decrement is performed by the coordinator through the
// StockStore port.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
	"github.com/jcmexdev/order-importer/internal/importer/resolve"
)

// Fulfillments validates the fulfillment inputs of one order against its
// already-assembled lines and builds the fulfillment entities. Each
// fulfillment line must point (by 0-based index) at an existing order line
// whose warehouse and variant match; the cumulative fulfilled quantity per
// order line must not exceed the ordered quantity. Lines are mutated in
// place: QuantityFulfilled receives the per-line total.
func Fulfillments(
	ctx context.Context,
	r *resolve.Resolver,
	lines []domain.OrderLine,
	inputs []domain.FulfillmentInput,
) ([]domain.Fulfillment, []domain.BulkError) {
	var (
		fulfillments []domain.Fulfillment
		errs         []domain.BulkError
	)
	fulfilled := make([]int, len(lines))

	for i, in := range inputs {
		fulfillment := domain.Fulfillment{
			ID:               uuid.NewString(),
			FulfillmentOrder: i + 1,
			Status:           domain.FulfillmentStatusFulfilled,
			TrackingCode:     in.TrackingCode,
		}

		for _, lineIn := range in.Lines {
			idx := lineIn.OrderLineIndex
			if idx < 0 || idx >= len(lines) {
				errs = append(errs, domain.BulkError{
					Message: fmt.Sprintf("There is no order line with index: %d.", idx),
					Field:   "order_line_index",
					Code:    domain.CodeNoRelatedOrderLine,
				})
				continue
			}
			orderLine := &lines[idx]

			warehouse, werr := r.Warehouse(ctx, lineIn.WarehouseID)
			if werr != nil {
				errs = append(errs, *werr)
				continue
			}
			variant, verr := r.Variant(ctx, lineIn.VariantID, lineIn.VariantExternalReference, lineIn.VariantSKU)
			if verr != nil {
				errs = append(errs, *verr)
				continue
			}

			if warehouse.ID != orderLine.WarehouseID {
				errs = append(errs, domain.BulkError{
					Message: "Fulfillment line's warehouse is different then order line's warehouse.",
					Field:   "warehouse",
					Code:    domain.CodeOrderLineFulfillmentLineMismatch,
				})
				continue
			}
			if variant.ID != orderLine.VariantID {
				errs = append(errs, domain.BulkError{
					Message: "Fulfillment line's product variant is different then order line's product variant.",
					Field:   "variant_id",
					Code:    domain.CodeOrderLineFulfillmentLineMismatch,
				})
				continue
			}

			fulfilled[idx] += lineIn.Quantity
			fulfillment.Lines = append(fulfillment.Lines, domain.FulfillmentLine{
				ID:             uuid.NewString(),
				OrderLineID:    orderLine.ID,
				OrderLineIndex: idx,
				VariantID:      variant.ID,
				WarehouseID:    warehouse.ID,
				Quantity:       lineIn.Quantity,
			})
		}

		fulfillments = append(fulfillments, fulfillment)
	}

	for idx := range lines {
		if fulfilled[idx] > lines[idx].Quantity {
			errs = append(errs, domain.BulkError{
				Message: fmt.Sprintf(
					"There is more fulfillments, than ordered quantity for order line with variant: %s and warehouse: %s",
					lines[idx].VariantID, lines[idx].WarehouseID,
				),
				Field: "order_line",
				Code:  domain.CodeInvalidQuantity,
			})
			continue
		}
		lines[idx].QuantityFulfilled = fulfilled[idx]
	}

	return fulfillments, errs
}

// Demand aggregates ordered quantities per (variant, warehouse) pair across
// all given orders. Pure; safe to re-run after orders drop out.
func Demand(orders []*domain.Order) map[ports.StockKey]int {
	demand := make(map[ports.StockKey]int)
	for _, o := range orders {
		for _, line := range o.Lines {
			key := ports.StockKey{VariantID: line.VariantID, WarehouseID: line.WarehouseID}
			demand[key] += line.Quantity
		}
	}
	return demand
}

// Evaluate compares aggregated demand with available stock under the given
// policy and returns one error per failing pair. SKIP never fails; UPDATE
// fails on missing rows and on insufficient quantity; FORCE fails on
// missing rows only.
func Evaluate(
	demand map[ports.StockKey]int,
	available map[ports.StockKey]int,
	policy domain.StockUpdatePolicy,
) map[ports.StockKey]domain.BulkError {
	if policy == domain.StockUpdateSkip {
		return nil
	}
	failing := make(map[ports.StockKey]domain.BulkError)
	for key, needed := range demand {
		quantity, exists := available[key]
		switch {
		case !exists:
			failing[key] = domain.BulkError{
				Message: fmt.Sprintf(
					"There is no stock for given product variant: %s and warehouse: %s.",
					key.VariantID, key.WarehouseID,
				),
				Field: "order_line",
				Code:  domain.CodeNonExistingStock,
			}
		case policy == domain.StockUpdateUpdate && needed > quantity:
			failing[key] = domain.BulkError{
				Message: fmt.Sprintf(
					"Insufficient stock for product variant: %s and warehouse: %s.",
					key.VariantID, key.WarehouseID,
				),
				Field: "order_line",
				Code:  domain.CodeInsufficientStock,
			}
		}
	}
	if len(failing) == 0 {
		return nil
	}
	return failing
}

// Touches reports whether the order has any line hitting one of the keys.
func Touches(order *domain.Order, keys map[ports.StockKey]domain.BulkError) []domain.BulkError {
	var errs []domain.BulkError
	seen := make(map[ports.StockKey]bool)
	for _, line := range order.Lines {
		key := ports.StockKey{VariantID: line.VariantID, WarehouseID: line.WarehouseID}
		if err, ok := keys[key]; ok && !seen[key] {
			seen[key] = true
			errs = append(errs, err)
		}
	}
	return errs
}
