// Package ports defines the interfaces the import engine depends on. The
// engine only knows these abstractions; adapters (sqlite, memory) implement
// them, so the pipeline can be exercised without a database.
package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
)

// ErrNotFound is returned by directory lookups when no entity matches the
// given key. The resolver maps it to a NOT_FOUND validation error; any other
// error is treated as an infrastructure failure.
var ErrNotFound = errors.New("not found")

// UserDirectory resolves customers. All lookups are read-only.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (*domain.User, error)
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByExternalReference(ctx context.Context, ref string) (*domain.User, error)
}

// AppDirectory resolves apps referenced as note authors.
type AppDirectory interface {
	AppByID(ctx context.Context, id string) (*domain.App, error)
}

// ChannelDirectory resolves sales channels by slug.
type ChannelDirectory interface {
	ChannelBySlug(ctx context.Context, slug string) (*domain.Channel, error)
}

// VariantDirectory resolves product variants.
type VariantDirectory interface {
	VariantByID(ctx context.Context, id string) (*domain.ProductVariant, error)
	VariantBySKU(ctx context.Context, sku string) (*domain.ProductVariant, error)
	VariantByExternalReference(ctx context.Context, ref string) (*domain.ProductVariant, error)
}

// WarehouseDirectory resolves warehouses.
type WarehouseDirectory interface {
	WarehouseByID(ctx context.Context, id string) (*domain.Warehouse, error)
}

// ShippingDirectory resolves shipping methods and their per-channel listing
// prices, used to default the shipping price when the input omits it.
type ShippingDirectory interface {
	ShippingMethodByID(ctx context.Context, id string) (*domain.ShippingMethod, error)
	ChannelListingPrice(ctx context.Context, shippingMethodID, channelID string) (decimal.Decimal, error)
}

// TaxClassDirectory resolves tax classes.
type TaxClassDirectory interface {
	TaxClassByID(ctx context.Context, id string) (*domain.TaxClass, error)
}

// Directories bundles every read-only lookup service the pipeline needs.
type Directories struct {
	Users      UserDirectory
	Apps       AppDirectory
	Channels   ChannelDirectory
	Variants   VariantDirectory
	Warehouses WarehouseDirectory
	Shipping   ShippingDirectory
	TaxClasses TaxClassDirectory
}
