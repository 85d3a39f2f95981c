// Package sqlite persists imported order aggregates and stock counters.
//
// WAL mode is enabled on Open so that readers never block writers: the import
// handler writes while a status or reporting query may be reading.
// SaveOrder writes the whole aggregate in one transaction: a
// rejected or failed order leaves no partial rows behind.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"

	// Register the pure-Go SQLite driver.
	// modernc.org/sqlite avoids CGO, which keeps Docker (Alpine) builds simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup.
// Monetary amounts are stored as TEXT to keep decimal exactness; timestamps
// are RFC3339 TEXT (SQLite idiom); JSON columns hold addresses and metadata.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id                         TEXT PRIMARY KEY,
    external_reference         TEXT NOT NULL DEFAULT '',
    channel_id                 TEXT NOT NULL,
    channel_slug               TEXT NOT NULL,
    created_at                 TEXT NOT NULL,
    status                     TEXT NOT NULL,
    origin                     TEXT NOT NULL,
    user_id                    TEXT NOT NULL DEFAULT '',
    user_email                 TEXT NOT NULL DEFAULT '',

    -- JSON snapshots of the order-owned addresses.
    billing_address            TEXT NOT NULL,
    shipping_address           TEXT,

    language_code              TEXT NOT NULL DEFAULT '',
    currency                   TEXT NOT NULL,
    display_gross_prices       INTEGER NOT NULL DEFAULT 1,
    weight                     TEXT NOT NULL DEFAULT '0',
    tracking_client_id         TEXT NOT NULL DEFAULT '',
    redirect_url               TEXT NOT NULL DEFAULT '',
    customer_note              TEXT NOT NULL DEFAULT '',
    metadata                   TEXT,
    private_metadata           TEXT,

    -- Delivery snapshot: either the collection point pair or the shipping
    -- method group is populated, never both.
    collection_point_id        TEXT NOT NULL DEFAULT '',
    collection_point_name      TEXT NOT NULL DEFAULT '',
    shipping_method_id         TEXT NOT NULL DEFAULT '',
    shipping_method_name       TEXT NOT NULL DEFAULT '',
    shipping_tax_class_id      TEXT NOT NULL DEFAULT '',
    shipping_tax_class_name    TEXT NOT NULL DEFAULT '',
    shipping_tax_class_metadata         TEXT,
    shipping_tax_class_private_metadata TEXT,
    shipping_tax_rate          TEXT NOT NULL DEFAULT '0',
    shipping_price_net         TEXT NOT NULL DEFAULT '0',
    shipping_price_gross       TEXT NOT NULL DEFAULT '0',

    total_net                  TEXT NOT NULL,
    total_gross                TEXT NOT NULL,
    undiscounted_total_net     TEXT NOT NULL,
    undiscounted_total_gross   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_external_reference
    ON orders(external_reference);

CREATE TABLE IF NOT EXISTS order_lines (
    id                         TEXT PRIMARY KEY,
    order_id                   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,

    -- 0-based input position; line order is stable and queryable.
    position                   INTEGER NOT NULL,

    variant_id                 TEXT NOT NULL,
    sku                        TEXT NOT NULL DEFAULT '',
    product_name               TEXT NOT NULL DEFAULT '',
    variant_name               TEXT NOT NULL DEFAULT '',
    translated_product_name    TEXT NOT NULL DEFAULT '',
    translated_variant_name    TEXT NOT NULL DEFAULT '',
    created_at                 TEXT NOT NULL,
    is_shipping_required       INTEGER NOT NULL DEFAULT 0,
    is_gift_card               INTEGER NOT NULL DEFAULT 0,
    currency                   TEXT NOT NULL,
    quantity                   INTEGER NOT NULL,
    quantity_fulfilled         INTEGER NOT NULL DEFAULT 0,
    unit_price_net             TEXT NOT NULL,
    unit_price_gross           TEXT NOT NULL,
    total_price_net            TEXT NOT NULL,
    total_price_gross          TEXT NOT NULL,
    undiscounted_unit_price_net    TEXT NOT NULL,
    undiscounted_unit_price_gross  TEXT NOT NULL,
    undiscounted_total_price_net   TEXT NOT NULL,
    undiscounted_total_price_gross TEXT NOT NULL,
    tax_rate                   TEXT NOT NULL DEFAULT '0',
    tax_class_id               TEXT NOT NULL DEFAULT '',
    tax_class_name             TEXT NOT NULL DEFAULT '',
    tax_class_metadata         TEXT,
    tax_class_private_metadata TEXT,
    warehouse_id               TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_lines_order_id
    ON order_lines(order_id, position);

CREATE TABLE IF NOT EXISTS order_events (
    id          TEXT PRIMARY KEY,
    order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    type        TEXT NOT NULL,
    date        TEXT NOT NULL,
    message     TEXT NOT NULL,
    user_id     TEXT NOT NULL DEFAULT '',
    app_id      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS fulfillments (
    id                 TEXT PRIMARY KEY,
    order_id           TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    fulfillment_order  INTEGER NOT NULL,
    status             TEXT NOT NULL,
    tracking_code      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS fulfillment_lines (
    id                TEXT PRIMARY KEY,
    fulfillment_id    TEXT NOT NULL REFERENCES fulfillments(id) ON DELETE CASCADE,
    order_line_id     TEXT NOT NULL,
    order_line_index  INTEGER NOT NULL,
    variant_id        TEXT NOT NULL,
    warehouse_id      TEXT NOT NULL,
    quantity          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id                TEXT PRIMARY KEY,
    order_id          TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    status            TEXT NOT NULL DEFAULT '',
    name              TEXT NOT NULL DEFAULT '',
    psp_reference     TEXT NOT NULL DEFAULT '',

    -- Amounts as TEXT decimals; NULL when not supplied.
    amount_authorized TEXT,
    amount_charged    TEXT,
    amount_refunded   TEXT,
    amount_voided     TEXT,
    currency          TEXT NOT NULL,
    metadata          TEXT,
    private_metadata  TEXT
);

-- Stock counters adjusted by the UPDATE/FORCE policies.
CREATE TABLE IF NOT EXISTS stocks (
    variant_id    TEXT NOT NULL,
    warehouse_id  TEXT NOT NULL,
    quantity      INTEGER NOT NULL,
    PRIMARY KEY (variant_id, warehouse_id)
);
`

// Store is the SQLite implementation of the order repository and the stock
// store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema. WAL mode is enabled for better concurrent read/write
// performance.
//
//	store, err := sqlite.Open("./data/importer.db")
func Open(path string) (*Store, error) {
	// The pure-Go driver takes _pragma query parameters for connection state.
	// busy_timeout waits for locks instead of failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3" for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveOrder writes the aggregate in a single transaction.
func (s *Store) SaveOrder(ctx context.Context, order *domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin save for %q: %w", order.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertOrder(ctx, tx, order); err != nil {
		return err
	}
	for i, line := range order.Lines {
		if err := insertLine(ctx, tx, order.ID, i, &line); err != nil {
			return err
		}
	}
	for _, event := range order.Events {
		if err := insertEvent(ctx, tx, order.ID, &event); err != nil {
			return err
		}
	}
	for _, fulfillment := range order.Fulfillments {
		if err := insertFulfillment(ctx, tx, order.ID, &fulfillment); err != nil {
			return err
		}
	}
	for _, transaction := range order.Transactions {
		if err := insertTransaction(ctx, tx, order.ID, order.Currency, &transaction); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit order %q: %w", order.ID, err)
	}
	return nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	const q = `
		INSERT INTO orders
			(id, external_reference, channel_id, channel_slug, created_at, status,
			 origin, user_id, user_email, billing_address, shipping_address,
			 language_code, currency, display_gross_prices, weight,
			 tracking_client_id, redirect_url, customer_note, metadata,
			 private_metadata, collection_point_id, collection_point_name,
			 shipping_method_id, shipping_method_name, shipping_tax_class_id,
			 shipping_tax_class_name, shipping_tax_class_metadata,
			 shipping_tax_class_private_metadata, shipping_tax_rate,
			 shipping_price_net, shipping_price_gross, total_net, total_gross,
			 undiscounted_total_net, undiscounted_total_gross)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			 ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	billing, err := marshalAddress(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("sqlite: marshal billing address for %q: %w", o.ID, err)
	}
	shipping, err := marshalAddress(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("sqlite: marshal shipping address for %q: %w", o.ID, err)
	}

	_, err = tx.ExecContext(ctx, q,
		o.ID,
		o.ExternalReference,
		o.ChannelID,
		o.ChannelSlug,
		formatTime(o.CreatedAt),
		string(o.Status),
		o.Origin,
		o.UserID,
		o.UserEmail,
		billing,
		shipping,
		o.LanguageCode,
		o.Currency,
		boolToInt(o.DisplayGrossPrices),
		o.Weight.String(),
		o.TrackingClientID,
		o.RedirectURL,
		o.CustomerNote,
		marshalMap(o.Metadata),
		marshalMap(o.PrivateMetadata),
		o.CollectionPointID,
		o.CollectionPointName,
		o.ShippingMethodID,
		o.ShippingMethodName,
		o.ShippingTaxClassID,
		o.ShippingTaxClassName,
		marshalMap(o.ShippingTaxClassMetadata),
		marshalMap(o.ShippingTaxClassPrivateMetadata),
		o.ShippingTaxRate.String(),
		o.ShippingPrice.Net.String(),
		o.ShippingPrice.Gross.String(),
		o.Total.Net.String(),
		o.Total.Gross.String(),
		o.UndiscountedTotal.Net.String(),
		o.UndiscountedTotal.Gross.String(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert order %q: %w", o.ID, err)
	}
	return nil
}

func insertLine(ctx context.Context, tx *sql.Tx, orderID string, position int, l *domain.OrderLine) error {
	const q = `
		INSERT INTO order_lines
			(id, order_id, position, variant_id, sku, product_name, variant_name,
			 translated_product_name, translated_variant_name, created_at,
			 is_shipping_required, is_gift_card, currency, quantity,
			 quantity_fulfilled, unit_price_net, unit_price_gross,
			 total_price_net, total_price_gross, undiscounted_unit_price_net,
			 undiscounted_unit_price_gross, undiscounted_total_price_net,
			 undiscounted_total_price_gross, tax_rate, tax_class_id,
			 tax_class_name, tax_class_metadata, tax_class_private_metadata,
			 warehouse_id)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			 ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, q,
		l.ID,
		orderID,
		position,
		l.VariantID,
		l.SKU,
		l.ProductName,
		l.VariantName,
		l.TranslatedProductName,
		l.TranslatedVariantName,
		formatTime(l.CreatedAt),
		boolToInt(l.IsShippingRequired),
		boolToInt(l.IsGiftCard),
		l.Currency,
		l.Quantity,
		l.QuantityFulfilled,
		l.UnitPrice.Net.String(),
		l.UnitPrice.Gross.String(),
		l.TotalPrice.Net.String(),
		l.TotalPrice.Gross.String(),
		l.UndiscountedUnitPrice.Net.String(),
		l.UndiscountedUnitPrice.Gross.String(),
		l.UndiscountedTotalPrice.Net.String(),
		l.UndiscountedTotalPrice.Gross.String(),
		l.TaxRate.String(),
		l.TaxClassID,
		l.TaxClassName,
		marshalMap(l.TaxClassMetadata),
		marshalMap(l.TaxClassPrivateMetadata),
		l.WarehouseID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert line %q: %w", l.ID, err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, orderID string, e *domain.OrderEvent) error {
	const q = `
		INSERT INTO order_events (id, order_id, type, date, message, user_id, app_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, q,
		e.ID, orderID, e.Type, formatTime(e.Date), e.Message, e.UserID, e.AppID)
	if err != nil {
		return fmt.Errorf("sqlite: insert event %q: %w", e.ID, err)
	}
	return nil
}

func insertFulfillment(ctx context.Context, tx *sql.Tx, orderID string, f *domain.Fulfillment) error {
	const q = `
		INSERT INTO fulfillments (id, order_id, fulfillment_order, status, tracking_code)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, q,
		f.ID, orderID, f.FulfillmentOrder, f.Status, f.TrackingCode); err != nil {
		return fmt.Errorf("sqlite: insert fulfillment %q: %w", f.ID, err)
	}

	const lq = `
		INSERT INTO fulfillment_lines
			(id, fulfillment_id, order_line_id, order_line_index, variant_id,
			 warehouse_id, quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, line := range f.Lines {
		if _, err := tx.ExecContext(ctx, lq,
			line.ID, f.ID, line.OrderLineID, line.OrderLineIndex,
			line.VariantID, line.WarehouseID, line.Quantity); err != nil {
			return fmt.Errorf("sqlite: insert fulfillment line %q: %w", line.ID, err)
		}
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, orderID, currency string, t *domain.Transaction) error {
	const q = `
		INSERT INTO transactions
			(id, order_id, status, name, psp_reference, amount_authorized,
			 amount_charged, amount_refunded, amount_voided, currency, metadata,
			 private_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, q,
		t.ID,
		orderID,
		t.Status,
		t.Name,
		t.PSPReference,
		nullableAmount(t.AmountAuthorized),
		nullableAmount(t.AmountCharged),
		nullableAmount(t.AmountRefunded),
		nullableAmount(t.AmountVoided),
		currency,
		marshalMap(t.Metadata),
		marshalMap(t.PrivateMetadata),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert transaction %q: %w", t.ID, err)
	}
	return nil
}

// Quantities reads current counters for the given keys. Missing rows are
// simply absent from the result.
func (s *Store) Quantities(ctx context.Context, keys []ports.StockKey) (map[ports.StockKey]int, error) {
	const q = `SELECT quantity FROM stocks WHERE variant_id = ? AND warehouse_id = ?`

	out := make(map[ports.StockKey]int, len(keys))
	for _, key := range keys {
		var quantity int
		err := s.db.QueryRowContext(ctx, q, key.VariantID, key.WarehouseID).Scan(&quantity)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite: read stock %s/%s: %w", key.VariantID, key.WarehouseID, err)
		}
		out[key] = quantity
	}
	return out, nil
}

// Decrement subtracts the demanded quantities in one transaction. The single
// writer connection serializes concurrent batches, so read-check-decrement
// sequences cannot interleave.
func (s *Store) Decrement(ctx context.Context, demand map[ports.StockKey]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin stock decrement: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `UPDATE stocks SET quantity = quantity - ? WHERE variant_id = ? AND warehouse_id = ?`
	for key, qty := range demand {
		if _, err := tx.ExecContext(ctx, q, qty, key.VariantID, key.WarehouseID); err != nil {
			return fmt.Errorf("sqlite: decrement stock %s/%s: %w", key.VariantID, key.WarehouseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit stock decrement: %w", err)
	}
	return nil
}

// GetOrder reads one order's header row back, without child entities.
// Backs the status endpoint; the full aggregate is write-only here.
func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
		SELECT id, external_reference, channel_id, channel_slug, created_at,
		       status, origin, user_id, user_email, currency,
		       total_net, total_gross
		FROM   orders
		WHERE  id = ?`

	var (
		o          domain.Order
		createdAt  string
		totalNet   string
		totalGross string
		status     string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID,
		&o.ExternalReference,
		&o.ChannelID,
		&o.ChannelSlug,
		&createdAt,
		&status,
		&o.Origin,
		&o.UserID,
		&o.UserEmail,
		&o.Currency,
		&totalNet,
		&totalGross,
	)
	if err == sql.ErrNoRows {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %q: %w", id, err)
	}
	o.Status = domain.OrderStatus(status)
	if o.CreatedAt, err = parseRFC3339(createdAt); err != nil {
		return nil, err
	}
	if o.Total.Net, err = decimal.NewFromString(totalNet); err != nil {
		return nil, fmt.Errorf("sqlite: parse total net for %q: %w", id, err)
	}
	if o.Total.Gross, err = decimal.NewFromString(totalGross); err != nil {
		return nil, fmt.Errorf("sqlite: parse total gross for %q: %w", id, err)
	}
	return &o, nil
}

// SeedStock creates or replaces one stock counter. Used by the development
// seed path and tests.
func (s *Store) SeedStock(ctx context.Context, variantID, warehouseID string, quantity int) error {
	const q = `
		INSERT INTO stocks (variant_id, warehouse_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT (variant_id, warehouse_id) DO UPDATE SET quantity = excluded.quantity`

	if _, err := s.db.ExecContext(ctx, q, variantID, warehouseID, quantity); err != nil {
		return fmt.Errorf("sqlite: seed stock %s/%s: %w", variantID, warehouseID, err)
	}
	return nil
}

// CountOrders returns the number of persisted orders.
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count orders: %w", err)
	}
	return n, nil
}

func marshalAddress(a *domain.Address) (any, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// marshalMap returns nil for empty maps so SQLite stores NULL instead of an
// empty JSON object.
func marshalMap(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func nullableAmount(m *domain.Money) any {
	if m == nil {
		return nil
	}
	return m.Amount.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	_ ports.OrderRepository = (*Store)(nil)
	_ ports.StockStore      = (*Store)(nil)
)
