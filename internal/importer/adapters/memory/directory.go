// Package memory provides in-memory adapters for every port of the import
// engine. They back the test suites and the local development mode of the
// service; production deployments swap in the sqlite adapters.
package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
)

// Directory is a map-backed implementation of all directory ports. Seed it
// with the Add* methods, then hand its Directories() bundle to the engine.
type Directory struct {
	mu sync.RWMutex

	usersByID    map[string]*domain.User
	usersByEmail map[string]*domain.User
	usersByRef   map[string]*domain.User

	apps     map[string]*domain.App
	channels map[string]*domain.Channel

	variantsByID  map[string]*domain.ProductVariant
	variantsBySKU map[string]*domain.ProductVariant
	variantsByRef map[string]*domain.ProductVariant

	warehouses map[string]*domain.Warehouse
	methods    map[string]*domain.ShippingMethod
	taxClasses map[string]*domain.TaxClass

	// listings maps shippingMethodID -> channelID -> net price.
	listings map[string]map[string]decimal.Decimal
}

func NewDirectory() *Directory {
	return &Directory{
		usersByID:     make(map[string]*domain.User),
		usersByEmail:  make(map[string]*domain.User),
		usersByRef:    make(map[string]*domain.User),
		apps:          make(map[string]*domain.App),
		channels:      make(map[string]*domain.Channel),
		variantsByID:  make(map[string]*domain.ProductVariant),
		variantsBySKU: make(map[string]*domain.ProductVariant),
		variantsByRef: make(map[string]*domain.ProductVariant),
		warehouses:    make(map[string]*domain.Warehouse),
		methods:       make(map[string]*domain.ShippingMethod),
		taxClasses:    make(map[string]*domain.TaxClass),
		listings:      make(map[string]map[string]decimal.Decimal),
	}
}

// Directories bundles this directory for the engine.
func (d *Directory) Directories() ports.Directories {
	return ports.Directories{
		Users:      d,
		Apps:       d,
		Channels:   d,
		Variants:   d,
		Warehouses: d,
		Shipping:   d,
		TaxClasses: d,
	}
}

func (d *Directory) AddUser(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.usersByID[u.ID] = &u
	if u.Email != "" {
		d.usersByEmail[u.Email] = &u
	}
	if u.ExternalReference != "" {
		d.usersByRef[u.ExternalReference] = &u
	}
}

func (d *Directory) AddApp(a domain.App) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apps[a.ID] = &a
}

func (d *Directory) AddChannel(c domain.Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[c.Slug] = &c
}

func (d *Directory) AddVariant(v domain.ProductVariant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.variantsByID[v.ID] = &v
	if v.SKU != "" {
		d.variantsBySKU[v.SKU] = &v
	}
	if v.ExternalReference != "" {
		d.variantsByRef[v.ExternalReference] = &v
	}
}

func (d *Directory) AddWarehouse(w domain.Warehouse) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warehouses[w.ID] = &w
}

func (d *Directory) AddShippingMethod(m domain.ShippingMethod) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.methods[m.ID] = &m
}

// AddChannelListing sets the net listing price of a shipping method in a
// channel.
func (d *Directory) AddChannelListing(shippingMethodID, channelID string, price decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listings[shippingMethodID] == nil {
		d.listings[shippingMethodID] = make(map[string]decimal.Decimal)
	}
	d.listings[shippingMethodID][channelID] = price
}

func (d *Directory) AddTaxClass(t domain.TaxClass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.taxClasses[t.ID] = &t
}

func (d *Directory) UserByID(_ context.Context, id string) (*domain.User, error) {
	return lookup(d, d.usersByID, id)
}

func (d *Directory) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	return lookup(d, d.usersByEmail, email)
}

func (d *Directory) UserByExternalReference(_ context.Context, ref string) (*domain.User, error) {
	return lookup(d, d.usersByRef, ref)
}

func (d *Directory) AppByID(_ context.Context, id string) (*domain.App, error) {
	return lookup(d, d.apps, id)
}

func (d *Directory) ChannelBySlug(_ context.Context, slug string) (*domain.Channel, error) {
	return lookup(d, d.channels, slug)
}

func (d *Directory) VariantByID(_ context.Context, id string) (*domain.ProductVariant, error) {
	return lookup(d, d.variantsByID, id)
}

func (d *Directory) VariantBySKU(_ context.Context, sku string) (*domain.ProductVariant, error) {
	return lookup(d, d.variantsBySKU, sku)
}

func (d *Directory) VariantByExternalReference(_ context.Context, ref string) (*domain.ProductVariant, error) {
	return lookup(d, d.variantsByRef, ref)
}

func (d *Directory) WarehouseByID(_ context.Context, id string) (*domain.Warehouse, error) {
	return lookup(d, d.warehouses, id)
}

func (d *Directory) ShippingMethodByID(_ context.Context, id string) (*domain.ShippingMethod, error) {
	return lookup(d, d.methods, id)
}

func (d *Directory) ChannelListingPrice(_ context.Context, shippingMethodID, channelID string) (decimal.Decimal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	price, ok := d.listings[shippingMethodID][channelID]
	if !ok {
		return decimal.Zero, ports.ErrNotFound
	}
	return price, nil
}

func (d *Directory) TaxClassByID(_ context.Context, id string) (*domain.TaxClass, error) {
	return lookup(d, d.taxClasses, id)
}

func lookup[T any](d *Directory, m map[string]*T, key string) (*T, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := m[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return v, nil
}

var (
	_ ports.UserDirectory      = (*Directory)(nil)
	_ ports.AppDirectory       = (*Directory)(nil)
	_ ports.ChannelDirectory   = (*Directory)(nil)
	_ ports.VariantDirectory   = (*Directory)(nil)
	_ ports.WarehouseDirectory = (*Directory)(nil)
	_ ports.ShippingDirectory  = (*Directory)(nil)
	_ ports.TaxClassDirectory  = (*Directory)(nil)
)
