// Package resolve maps external identifying keys (global ids, emails, SKUs,
// external references) to directory entities. Every lookup is read-only.
// Resolution results are memoized for the lifetime of one Resolver, which is
// scoped to a single batch, so repeated references across a batch hit the
// directory once.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
)

// Key is one candidate identifying key for an entity.
type Key struct {
	Name  string
	Value string
}

// Resolver resolves external references against the configured directories.
// Not safe for concurrent use; create one per batch.
type Resolver struct {
	dirs ports.Directories
	memo map[string]any
}

func New(dirs ports.Directories) *Resolver {
	return &Resolver{dirs: dirs, memo: make(map[string]any)}
}

// pick enforces the exactly-one-of-N identifier contract shared by all
// resolvers. With optional set, providing no key at all is valid and yields
// ok=false.
func pick(entity string, keys []Key, optional bool) (Key, bool, *domain.BulkError) {
	var chosen Key
	provided := 0
	for _, k := range keys {
		if k.Value != "" {
			chosen = k
			provided++
		}
	}
	switch {
	case provided == 0 && optional:
		return Key{}, false, nil
	case provided == 0:
		return Key{}, false, &domain.BulkError{
			Message: fmt.Sprintf(
				"One of [%s] arguments must be provided to resolve %s instance.",
				keyNames(keys), entity,
			),
			Code: domain.CodeRequired,
		}
	case provided > 1:
		return Key{}, false, &domain.BulkError{
			Message: fmt.Sprintf(
				"Only one of [%s] arguments can be provided to resolve %s instance.",
				keyNames(keys), entity,
			),
			Code: domain.CodeTooManyIdentifiers,
		}
	}
	return chosen, true, nil
}

func keyNames(keys []Key) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name
	}
	return strings.Join(names, ", ")
}

// fetch runs one memoized directory lookup and translates failures into
// validation errors.
func fetch[T any](
	r *Resolver,
	ctx context.Context,
	entity string,
	k Key,
	find func(context.Context, string) (*T, error),
) (*T, *domain.BulkError) {
	cacheKey := entity + "_" + k.Name + "_" + k.Value
	if v, ok := r.memo[cacheKey]; ok {
		return v.(*T), nil
	}
	v, err := find(ctx, k.Value)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, &domain.BulkError{
			Message: fmt.Sprintf("%s instance with %s=%s doesn't exist.", entity, k.Name, k.Value),
			Code:    domain.CodeNotFound,
		}
	}
	if err != nil {
		return nil, &domain.BulkError{
			Message: fmt.Sprintf("Can't resolve %s instance: %s.", entity, err),
			Code:    domain.CodeGraphQLError,
		}
	}
	r.memo[cacheKey] = v
	return v, nil
}

// User resolves an order's customer. An empty reference is valid and means
// an anonymous order.
func (r *Resolver) User(ctx context.Context, ref domain.UserRef) (*domain.User, *domain.BulkError) {
	return r.user(ctx, ref.ID, ref.Email, ref.ExternalReference, true)
}

// NoteUser resolves a note author referenced by any user key. Unlike User,
// the caller only invokes it when at least one key is present.
func (r *Resolver) NoteUser(ctx context.Context, id, email, externalReference string) (*domain.User, *domain.BulkError) {
	return r.user(ctx, id, email, externalReference, false)
}

func (r *Resolver) user(ctx context.Context, id, email, ref string, optional bool) (*domain.User, *domain.BulkError) {
	keys := []Key{{"id", id}, {"email", email}, {"external_reference", ref}}
	k, ok, err := pick("User", keys, optional)
	if err != nil || !ok {
		return nil, err
	}
	switch k.Name {
	case "id":
		return fetch(r, ctx, "User", k, r.dirs.Users.UserByID)
	case "email":
		return fetch(r, ctx, "User", k, r.dirs.Users.UserByEmail)
	default:
		return fetch(r, ctx, "User", k, r.dirs.Users.UserByExternalReference)
	}
}

func (r *Resolver) App(ctx context.Context, id string) (*domain.App, *domain.BulkError) {
	k, _, err := pick("App", []Key{{"id", id}}, false)
	if err != nil {
		return nil, err
	}
	return fetch(r, ctx, "App", k, r.dirs.Apps.AppByID)
}

func (r *Resolver) Channel(ctx context.Context, slug string) (*domain.Channel, *domain.BulkError) {
	k, _, err := pick("Channel", []Key{{"slug", slug}}, false)
	if err != nil {
		return nil, err
	}
	return fetch(r, ctx, "Channel", k, r.dirs.Channels.ChannelBySlug)
}

// Variant resolves a product variant by exactly one of id, external
// reference or SKU.
func (r *Resolver) Variant(ctx context.Context, id, externalReference, sku string) (*domain.ProductVariant, *domain.BulkError) {
	keys := []Key{{"id", id}, {"external_reference", externalReference}, {"sku", sku}}
	k, _, err := pick("ProductVariant", keys, false)
	if err != nil {
		return nil, err
	}
	switch k.Name {
	case "id":
		return fetch(r, ctx, "ProductVariant", k, r.dirs.Variants.VariantByID)
	case "external_reference":
		return fetch(r, ctx, "ProductVariant", k, r.dirs.Variants.VariantByExternalReference)
	default:
		return fetch(r, ctx, "ProductVariant", k, r.dirs.Variants.VariantBySKU)
	}
}

func (r *Resolver) Warehouse(ctx context.Context, id string) (*domain.Warehouse, *domain.BulkError) {
	k, _, err := pick("Warehouse", []Key{{"id", id}}, false)
	if err != nil {
		return nil, err
	}
	return fetch(r, ctx, "Warehouse", k, r.dirs.Warehouses.WarehouseByID)
}

func (r *Resolver) ShippingMethod(ctx context.Context, id string) (*domain.ShippingMethod, *domain.BulkError) {
	k, _, err := pick("ShippingMethod", []Key{{"id", id}}, false)
	if err != nil {
		return nil, err
	}
	return fetch(r, ctx, "ShippingMethod", k, r.dirs.Shipping.ShippingMethodByID)
}

func (r *Resolver) TaxClass(ctx context.Context, id string) (*domain.TaxClass, *domain.BulkError) {
	k, _, err := pick("TaxClass", []Key{{"id", id}}, false)
	if err != nil {
		return nil, err
	}
	return fetch(r, ctx, "TaxClass", k, r.dirs.TaxClasses.TaxClassByID)
}

// ShippingPrice looks up the channel listing price for a shipping method.
// Returns ok=false when the method has no listing in the channel.
func (r *Resolver) ShippingPrice(ctx context.Context, shippingMethodID, channelID string) (decimal.Decimal, bool, *domain.BulkError) {
	cacheKey := "shipping_price_" + shippingMethodID + "_" + channelID
	if v, ok := r.memo[cacheKey]; ok {
		return v.(decimal.Decimal), true, nil
	}
	price, err := r.dirs.Shipping.ChannelListingPrice(ctx, shippingMethodID, channelID)
	if errors.Is(err, ports.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, &domain.BulkError{
			Message: fmt.Sprintf("Can't resolve shipping price: %s.", err),
			Code:    domain.CodeGraphQLError,
		}
	}
	r.memo[cacheKey] = price
	return price, true, nil
}
