// Package batch coordinates a bulk import: assemble every order, apply the
// batch error policy, verify and adjust stock, and commit the survivors.
// A batch moves through VALIDATING into either COMMITTING or REJECTED; the
// stock decision and the per-order persistence happen only in COMMITTING.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/order-importer/internal/importer/assemble"
	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
	"github.com/jcmexdev/order-importer/internal/importer/reconcile"
	"github.com/jcmexdev/order-importer/internal/importer/resolve"
	"github.com/jcmexdev/order-importer/internal/importer/validate"
	"github.com/jcmexdev/order-importer/internal/pkg/auth"
	"github.com/jcmexdev/order-importer/internal/pkg/metrics"
)

// MaxOrders caps the batch size; larger batches are refused outright.
const MaxOrders = 50

// State is the lifecycle state of one batch.
type State string

const (
	StateValidating State = "VALIDATING"
	StateCommitting State = "COMMITTING"
	StateRejected   State = "REJECTED"
)

// Request is one bulk import call. Empty policies take the defaults.
type Request struct {
	Orders            []domain.OrderInput      `json:"orders"`
	ErrorPolicy       domain.ErrorPolicy       `json:"errorPolicy,omitempty"`
	StockUpdatePolicy domain.StockUpdatePolicy `json:"stockUpdatePolicy,omitempty"`
}

// OrderResult reports one input order's outcome, in input order. A rejected
// order carries a nil Order and at least one error; a committed order may
// still carry soft errors under IGNORE_FAILED.
type OrderResult struct {
	Order  *domain.Order      `json:"order"`
	Errors []domain.BulkError `json:"errors,omitempty"`
}

// Result is the outcome of a whole batch. Count is the number of orders
// actually persisted.
type Result struct {
	Count   int           `json:"count"`
	Results []OrderResult `json:"results"`
}

// Config wires the coordinator's collaborators. Clock and Logger are
// optional; nil means real time and the default logger.
type Config struct {
	Directories ports.Directories
	Orders      ports.OrderRepository
	Stock       ports.StockStore
	Clock       clockz.Clock
	Logger      *slog.Logger
}

// Coordinator runs bulk imports. Safe for concurrent use; all per-batch
// state lives in Import's locals.
type Coordinator struct {
	dirs   ports.Directories
	orders ports.OrderRepository
	stock  ports.StockStore
	clock  clockz.Clock
	logger *slog.Logger
}

func New(cfg Config) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clockz.RealClock
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		dirs:   cfg.Directories,
		orders: cfg.Orders,
		stock:  cfg.Stock,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

var tracer = otel.Tracer("importer/batch")

// Import runs one batch end to end. It returns a non-nil Result whenever the
// batch was processed, even if every order was rejected; an error return
// means the batch as a whole could not be handled (bad policy, missing
// permission, storage breakdown during stock adjustment).
func (c *Coordinator) Import(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "batch.Import")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.orders", len(req.Orders)))

	if err := auth.Require(ctx, auth.PermissionManageOrders, auth.PermissionManageOrdersImport); err != nil {
		return nil, err
	}

	errorPolicy := req.ErrorPolicy
	if errorPolicy == "" {
		errorPolicy = domain.DefaultErrorPolicy
	}
	if !errorPolicy.Valid() {
		return nil, fmt.Errorf("batch: invalid error policy %q", req.ErrorPolicy)
	}
	stockPolicy := req.StockUpdatePolicy
	if stockPolicy == "" {
		stockPolicy = domain.DefaultStockUpdatePolicy
	}
	if !stockPolicy.Valid() {
		return nil, fmt.Errorf("batch: invalid stock update policy %q", req.StockUpdatePolicy)
	}

	if len(req.Orders) > MaxOrders {
		return &Result{
			Count: 0,
			Results: []OrderResult{{
				Errors: []domain.BulkError{{
					Message: fmt.Sprintf("Number of orders exceeds limit: %d.", MaxOrders),
					Code:    domain.CodeInvalid,
				}},
			}},
		}, nil
	}

	c.logger.InfoContext(ctx, "batch state change",
		"state", StateValidating,
		"orders", len(req.Orders),
		"error_policy", errorPolicy,
		"stock_update_policy", stockPolicy,
	)

	// One resolver per batch: lookups memoized across all orders.
	resolver := resolve.New(c.dirs)
	assembler := assemble.New(resolver, validate.NewChecker(c.clock))

	assembled := make([]*assemble.AssembledOrder, len(req.Orders))
	rejected := make([]bool, len(req.Orders))
	for i, orderInput := range req.Orders {
		assembled[i] = assembler.Assemble(ctx, orderInput)
		rejected[i] = assembled[i].Rejected(errorPolicy)
	}

	if stockPolicy != domain.StockUpdateSkip {
		if err := c.applyStockVerdicts(ctx, assembled, rejected, stockPolicy); err != nil {
			return nil, err
		}
	}

	if errorPolicy == domain.ErrorPolicyRejectEverything && anyTrue(rejected) {
		for i := range rejected {
			rejected[i] = true
		}
		c.logger.InfoContext(ctx, "batch state change", "state", StateRejected)
		metrics.RecordBatch(0, len(req.Orders))
		return c.finish(assembled, rejected), nil
	}

	c.logger.InfoContext(ctx, "batch state change", "state", StateCommitting)

	for i, res := range assembled {
		if rejected[i] {
			continue
		}
		if err := c.orders.SaveOrder(ctx, res.Order); err != nil {
			c.logger.ErrorContext(ctx, "order save failed",
				"order_id", res.Order.ID, "error", err)
			res.StockErrors = append(res.StockErrors, domain.BulkError{
				Message: fmt.Sprintf("Can't save order: %s.", err),
				Code:    domain.CodeGraphQLError,
			})
			rejected[i] = true
		}
	}

	if stockPolicy != domain.StockUpdateSkip {
		demand := reconcile.Demand(survivors(assembled, rejected))
		if len(demand) > 0 {
			if err := c.stock.Decrement(ctx, demand); err != nil {
				return nil, fmt.Errorf("batch: decrement stock: %w", err)
			}
		}
	}

	result := c.finish(assembled, rejected)
	c.logger.InfoContext(ctx, "batch committed",
		"count", result.Count, "rejected", len(result.Results)-result.Count)
	metrics.RecordBatch(result.Count, len(result.Results)-result.Count)
	return result, nil
}

// applyStockVerdicts checks aggregated demand of the currently surviving
// orders against availability and rejects every order touching a failing
// stock counter.
func (c *Coordinator) applyStockVerdicts(
	ctx context.Context,
	assembled []*assemble.AssembledOrder,
	rejected []bool,
	policy domain.StockUpdatePolicy,
) error {
	demand := reconcile.Demand(survivors(assembled, rejected))
	if len(demand) == 0 {
		return nil
	}
	keys := make([]ports.StockKey, 0, len(demand))
	for key := range demand {
		keys = append(keys, key)
	}
	available, err := c.stock.Quantities(ctx, keys)
	if err != nil {
		return fmt.Errorf("batch: read stock quantities: %w", err)
	}

	failing := reconcile.Evaluate(demand, available, policy)
	if len(failing) == 0 {
		return nil
	}
	for i, res := range assembled {
		if rejected[i] {
			continue
		}
		if errs := reconcile.Touches(res.Order, failing); len(errs) > 0 {
			res.StockErrors = append(res.StockErrors, errs...)
			rejected[i] = true
		}
	}
	return nil
}

// finish builds the result list: committed orders keep their aggregate,
// rejected ones surface only their errors.
func (c *Coordinator) finish(assembled []*assemble.AssembledOrder, rejected []bool) *Result {
	result := &Result{Results: make([]OrderResult, len(assembled))}
	for i, res := range assembled {
		out := OrderResult{Errors: res.Errors()}
		if !rejected[i] {
			out.Order = res.Order
			result.Count++
		}
		result.Results[i] = out
	}
	return result
}

func survivors(assembled []*assemble.AssembledOrder, rejected []bool) []*domain.Order {
	var orders []*domain.Order
	for i, res := range assembled {
		if !rejected[i] {
			orders = append(orders, res.Order)
		}
	}
	return orders
}

func anyTrue(flags []bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}
