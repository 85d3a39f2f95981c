package resolve

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-importer/internal/importer/adapters/memory"
	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
)

func seededDirectory() *memory.Directory {
	dir := memory.NewDirectory()
	dir.AddUser(domain.User{ID: "user-1", Email: "customer@example.com", ExternalReference: "user-ref"})
	dir.AddApp(domain.App{ID: "app-1", Name: "importer"})
	dir.AddChannel(domain.Channel{ID: "channel-1", Slug: "channel-pln", CurrencyCode: "PLN"})
	dir.AddVariant(domain.ProductVariant{ID: "variant-1", SKU: "SKU-1", ExternalReference: "variant-ref", Name: "Blue Shirt"})
	dir.AddWarehouse(domain.Warehouse{ID: "warehouse-1", Name: "Main Warehouse"})
	dir.AddShippingMethod(domain.ShippingMethod{ID: "method-1", Name: "DHL"})
	dir.AddTaxClass(domain.TaxClass{ID: "tax-1", Name: "Standard"})
	return dir
}

func TestUserResolvedByEachKey(t *testing.T) {
	r := New(seededDirectory().Directories())
	ctx := context.Background()

	for _, ref := range []domain.UserRef{
		{ID: "user-1"},
		{Email: "customer@example.com"},
		{ExternalReference: "user-ref"},
	} {
		user, err := r.User(ctx, ref)
		require.Nil(t, err)
		assert.Equal(t, "user-1", user.ID)
	}
}

func TestUserAnonymousWhenNoKey(t *testing.T) {
	r := New(seededDirectory().Directories())

	user, err := r.User(context.Background(), domain.UserRef{})
	assert.Nil(t, err)
	assert.Nil(t, user)
}

func TestUserTooManyKeys(t *testing.T) {
	r := New(seededDirectory().Directories())

	_, err := r.User(context.Background(), domain.UserRef{ID: "user-1", Email: "customer@example.com"})
	require.NotNil(t, err)
	assert.Equal(t,
		"Only one of [id, email, external_reference] arguments can be provided to resolve User instance.",
		err.Message)
	assert.Equal(t, domain.CodeTooManyIdentifiers, err.Code)
}

func TestNoteUserRequiresAKey(t *testing.T) {
	r := New(seededDirectory().Directories())

	_, err := r.NoteUser(context.Background(), "", "", "")
	require.NotNil(t, err)
	assert.Equal(t,
		"One of [id, email, external_reference] arguments must be provided to resolve User instance.",
		err.Message)
	assert.Equal(t, domain.CodeRequired, err.Code)
}

func TestUserNotFound(t *testing.T) {
	r := New(seededDirectory().Directories())

	_, err := r.User(context.Background(), domain.UserRef{Email: "non-existing-user@example.com"})
	require.NotNil(t, err)
	assert.Equal(t, "User instance with email=non-existing-user@example.com doesn't exist.", err.Message)
	assert.Equal(t, domain.CodeNotFound, err.Code)
}

func TestVariantNotFoundBySKU(t *testing.T) {
	r := New(seededDirectory().Directories())

	_, err := r.Variant(context.Background(), "", "", "non-existing-sku")
	require.NotNil(t, err)
	assert.Equal(t, "ProductVariant instance with sku=non-existing-sku doesn't exist.", err.Message)
	assert.Equal(t, domain.CodeNotFound, err.Code)
}

// countingVariants wraps a directory and counts lookups to prove memoization.
type countingVariants struct {
	ports.VariantDirectory
	calls atomic.Int64
}

func (c *countingVariants) VariantBySKU(ctx context.Context, sku string) (*domain.ProductVariant, error) {
	c.calls.Add(1)
	return c.VariantDirectory.VariantBySKU(ctx, sku)
}

func TestLookupsAreMemoizedPerResolver(t *testing.T) {
	dirs := seededDirectory().Directories()
	counting := &countingVariants{VariantDirectory: dirs.Variants}
	dirs.Variants = counting

	r := New(dirs)
	ctx := context.Background()
	for range 5 {
		variant, err := r.Variant(ctx, "", "", "SKU-1")
		require.Nil(t, err)
		assert.Equal(t, "variant-1", variant.ID)
	}
	assert.Equal(t, int64(1), counting.calls.Load())
}

func TestShippingPrice(t *testing.T) {
	dir := seededDirectory()
	dir.AddChannelListing("method-1", "channel-1", decimal.NewFromInt(10))
	r := New(dir.Directories())
	ctx := context.Background()

	price, ok, err := r.ShippingPrice(ctx, "method-1", "channel-1")
	require.Nil(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(10)))

	// No listing in this channel: not an error, just absent.
	_, ok, err = r.ShippingPrice(ctx, "method-1", "other-channel")
	require.Nil(t, err)
	assert.False(t, ok)
}
