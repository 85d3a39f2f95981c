package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle status an imported order is created with.
// Backfilled orders commonly arrive as DRAFT.
type OrderStatus string

const (
	StatusDraft       OrderStatus = "DRAFT"
	StatusUnconfirmed OrderStatus = "UNCONFIRMED"
	StatusUnfulfilled OrderStatus = "UNFULFILLED"
	StatusFulfilled   OrderStatus = "FULFILLED"
	StatusCanceled    OrderStatus = "CANCELED"
)

// OrderOriginBulkCreate tags every order created through this engine.
const OrderOriginBulkCreate = "bulk-create"

// OrderEventNoteAdded is the event type recorded for each imported note.
const OrderEventNoteAdded = "NOTE_ADDED"

// FulfillmentStatusFulfilled marks fulfillments reconciled during import.
const FulfillmentStatusFulfilled = "FULFILLED"

// Directory entities. These are owned by the catalog/warehouse/user
// directories the pipeline looks up against; the engine only reads them.
type (
	User struct {
		ID                string `json:"id"`
		Email             string `json:"email"`
		ExternalReference string `json:"externalReference,omitempty"`
	}

	App struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Channel struct {
		ID           string `json:"id"`
		Slug         string `json:"slug"`
		Name         string `json:"name"`
		CurrencyCode string `json:"currencyCode"`
	}

	ProductVariant struct {
		ID                string `json:"id"`
		SKU               string `json:"sku"`
		ExternalReference string `json:"externalReference,omitempty"`
		Name              string `json:"name"`
	}

	Warehouse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	ShippingMethod struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	TaxClass struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

// Address is an order-owned copy of a validated address. Addresses are
// duplicated per order even when identical to another order's.
type Address struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	CompanyName    string `json:"companyName,omitempty"`
	StreetAddress1 string `json:"streetAddress1"`
	StreetAddress2 string `json:"streetAddress2,omitempty"`
	City           string `json:"city"`
	CityArea       string `json:"cityArea,omitempty"`
	PostalCode     string `json:"postalCode"`
	Country        string `json:"country"`
	CountryArea    string `json:"countryArea,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

// OrderLine is one resolved, priced line of an imported order. Line order
// matches input order and is stable.
type OrderLine struct {
	ID                      string            `json:"id"`
	VariantID               string            `json:"variantId"`
	SKU                     string            `json:"sku,omitempty"`
	ProductName             string            `json:"productName,omitempty"`
	VariantName             string            `json:"variantName,omitempty"`
	TranslatedProductName   string            `json:"translatedProductName,omitempty"`
	TranslatedVariantName   string            `json:"translatedVariantName,omitempty"`
	CreatedAt               time.Time         `json:"createdAt"`
	IsShippingRequired      bool              `json:"isShippingRequired"`
	IsGiftCard              bool              `json:"isGiftCard"`
	Currency                string            `json:"currency"`
	Quantity                int               `json:"quantity"`
	QuantityFulfilled       int               `json:"quantityFulfilled"`
	UnitPrice               TaxedMoney        `json:"unitPrice"`
	TotalPrice              TaxedMoney        `json:"totalPrice"`
	UndiscountedUnitPrice   TaxedMoney        `json:"undiscountedUnitPrice"`
	UndiscountedTotalPrice  TaxedMoney        `json:"undiscountedTotalPrice"`
	TaxRate                 decimal.Decimal   `json:"taxRate"`
	TaxClassID              string            `json:"taxClassId,omitempty"`
	TaxClassName            string            `json:"taxClassName,omitempty"`
	TaxClassMetadata        map[string]string `json:"taxClassMetadata,omitempty"`
	TaxClassPrivateMetadata map[string]string `json:"taxClassPrivateMetadata,omitempty"`
	WarehouseID             string            `json:"warehouseId"`
}

// OrderEvent is a historical event attached to an imported order; bulk
// import produces one NOTE_ADDED event per accepted note.
type OrderEvent struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	UserID  string    `json:"userId,omitempty"`
	AppID   string    `json:"appId,omitempty"`
}

// FulfillmentLine ties a fulfilled quantity to one order line.
type FulfillmentLine struct {
	ID             string `json:"id"`
	OrderLineID    string `json:"orderLineId"`
	OrderLineIndex int    `json:"orderLineIndex"`
	VariantID      string `json:"variantId"`
	WarehouseID    string `json:"warehouseId"`
	Quantity       int    `json:"quantity"`
}

// Fulfillment groups fulfillment lines under a tracking code.
// FulfillmentOrder is a 1-based sequence per order, in input order.
type Fulfillment struct {
	ID               string            `json:"id"`
	FulfillmentOrder int               `json:"fulfillmentOrder"`
	Status           string            `json:"status"`
	TrackingCode     string            `json:"trackingCode,omitempty"`
	Lines            []FulfillmentLine `json:"lines"`
}

// Transaction is an imported payment transaction record.
type Transaction struct {
	ID               string            `json:"id"`
	Status           string            `json:"status,omitempty"`
	Name             string            `json:"name,omitempty"`
	PSPReference     string            `json:"pspReference,omitempty"`
	AmountAuthorized *Money            `json:"amountAuthorized,omitempty"`
	AmountCharged    *Money            `json:"amountCharged,omitempty"`
	AmountRefunded   *Money            `json:"amountRefunded,omitempty"`
	AmountVoided     *Money            `json:"amountVoided,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	PrivateMetadata  map[string]string `json:"privateMetadata,omitempty"`
}

// Order is the fully assembled aggregate. All child entities are owned
// exclusively by the order and are discarded with it when the order is
// rejected before commit.
type Order struct {
	ID                 string            `json:"id"`
	ExternalReference  string            `json:"externalReference,omitempty"`
	ChannelID          string            `json:"channelId"`
	ChannelSlug        string            `json:"channelSlug"`
	CreatedAt          time.Time         `json:"createdAt"`
	Status             OrderStatus       `json:"status"`
	Origin             string            `json:"origin"`
	UserID             string            `json:"userId,omitempty"`
	UserEmail          string            `json:"userEmail,omitempty"`
	BillingAddress     *Address          `json:"billingAddress"`
	ShippingAddress    *Address          `json:"shippingAddress,omitempty"`
	LanguageCode       string            `json:"languageCode"`
	Currency           string            `json:"currency"`
	DisplayGrossPrices bool              `json:"displayGrossPrices"`
	Weight             decimal.Decimal   `json:"weight"`
	TrackingClientID   string            `json:"trackingClientId,omitempty"`
	RedirectURL        string            `json:"redirectUrl,omitempty"`
	CustomerNote       string            `json:"customerNote,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	PrivateMetadata    map[string]string `json:"privateMetadata,omitempty"`

	// Delivery snapshot: exactly one of the collection point (warehouse
	// pickup) or shipping method group is populated.
	CollectionPointID   string `json:"collectionPointId,omitempty"`
	CollectionPointName string `json:"collectionPointName,omitempty"`
	ShippingMethodID    string `json:"shippingMethodId,omitempty"`
	ShippingMethodName  string `json:"shippingMethodName,omitempty"`

	ShippingTaxClassID              string            `json:"shippingTaxClassId,omitempty"`
	ShippingTaxClassName            string            `json:"shippingTaxClassName,omitempty"`
	ShippingTaxClassMetadata        map[string]string `json:"shippingTaxClassMetadata,omitempty"`
	ShippingTaxClassPrivateMetadata map[string]string `json:"shippingTaxClassPrivateMetadata,omitempty"`
	ShippingTaxRate                 decimal.Decimal   `json:"shippingTaxRate"`
	ShippingPrice                   TaxedMoney        `json:"shippingPrice"`

	Total             TaxedMoney `json:"total"`
	UndiscountedTotal TaxedMoney `json:"undiscountedTotal"`

	Lines        []OrderLine   `json:"lines"`
	Events       []OrderEvent  `json:"events,omitempty"`
	Fulfillments []Fulfillment `json:"fulfillments,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
}
