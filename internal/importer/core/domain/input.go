package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetadataEntry is a single key/value pair of public or private metadata.
type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UserRef identifies a customer by exactly one external key. All fields
// empty means an anonymous order.
type UserRef struct {
	ID                string `json:"id,omitempty"`
	Email             string `json:"email,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

// AddressInput is the raw address payload as supplied by the source system.
type AddressInput struct {
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	CompanyName    string `json:"companyName,omitempty"`
	StreetAddress1 string `json:"streetAddress1,omitempty"`
	StreetAddress2 string `json:"streetAddress2,omitempty"`
	City           string `json:"city,omitempty"`
	CityArea       string `json:"cityArea,omitempty"`
	PostalCode     string `json:"postalCode,omitempty"`
	Country        string `json:"country,omitempty"`
	CountryArea    string `json:"countryArea,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

// TaxedMoneyInput is a gross/net amount pair from the source system.
type TaxedMoneyInput struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
}

// OrderLineInput describes one ordered line. The variant is referenced by
// exactly one of id, sku or external reference. Quantity arrives as a
// decimal so that non-integer input can be rejected instead of silently
// truncated.
type OrderLineInput struct {
	VariantID                string           `json:"variantId,omitempty"`
	VariantSKU               string           `json:"variantSku,omitempty"`
	VariantExternalReference string           `json:"variantExternalReference,omitempty"`
	ProductName              string           `json:"productName,omitempty"`
	VariantName              string           `json:"variantName,omitempty"`
	TranslatedProductName    string           `json:"translatedProductName,omitempty"`
	TranslatedVariantName    string           `json:"translatedVariantName,omitempty"`
	CreatedAt                time.Time        `json:"createdAt"`
	IsShippingRequired       bool             `json:"isShippingRequired"`
	IsGiftCard               bool             `json:"isGiftCard"`
	Quantity                 decimal.Decimal  `json:"quantity"`
	TotalPrice               TaxedMoneyInput  `json:"totalPrice"`
	UndiscountedTotalPrice   TaxedMoneyInput  `json:"undiscountedTotalPrice"`
	WarehouseID              string           `json:"warehouse"`
	TaxRate                  *decimal.Decimal `json:"taxRate,omitempty"`
	TaxClassID               string           `json:"taxClassId,omitempty"`
	TaxClassName             string           `json:"taxClassName,omitempty"`
	TaxClassMetadata         []MetadataEntry  `json:"taxClassMetadata,omitempty"`
	TaxClassPrivateMetadata  []MetadataEntry  `json:"taxClassPrivateMetadata,omitempty"`
}

// NoteInput is a historical remark imported as a NOTE_ADDED order event.
// The author is at most one of user (by any key) or app; neither means an
// anonymous note.
type NoteInput struct {
	Message               string     `json:"message"`
	Date                  *time.Time `json:"date,omitempty"`
	UserID                string     `json:"userId,omitempty"`
	UserEmail             string     `json:"userEmail,omitempty"`
	UserExternalReference string     `json:"userExternalReference,omitempty"`
	AppID                 string     `json:"appId,omitempty"`
}

// FulfillmentLineInput ties a fulfilled quantity to one order line by
// position. OrderLineIndex is a 0-based index into the order's line list,
// not a stable id.
type FulfillmentLineInput struct {
	VariantID                string `json:"variantId,omitempty"`
	VariantSKU               string `json:"variantSku,omitempty"`
	VariantExternalReference string `json:"variantExternalReference,omitempty"`
	WarehouseID              string `json:"warehouse"`
	Quantity                 int    `json:"quantity"`
	OrderLineIndex           int    `json:"orderLineIndex"`
}

// FulfillmentInput records that part of the order was already shipped.
type FulfillmentInput struct {
	TrackingCode string                 `json:"trackingCode,omitempty"`
	Lines        []FulfillmentLineInput `json:"lines"`
}

// TransactionInput is an imported payment transaction. Every provided
// amount must be in the order's currency.
type TransactionInput struct {
	Status           string          `json:"status,omitempty"`
	Type             string          `json:"type,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	AmountAuthorized *Money          `json:"amountAuthorized,omitempty"`
	AmountCharged    *Money          `json:"amountCharged,omitempty"`
	AmountRefunded   *Money          `json:"amountRefunded,omitempty"`
	AmountVoided     *Money          `json:"amountVoided,omitempty"`
	Metadata         []MetadataEntry `json:"metadata,omitempty"`
	PrivateMetadata  []MetadataEntry `json:"privateMetadata,omitempty"`
}

// DeliveryMethodInput selects exactly one of warehouse pickup or shipping
// method delivery. Shipping price and tax snapshot fields apply only to the
// shipping method path; when the price pair is absent it is defaulted from
// the method's channel listing.
type DeliveryMethodInput struct {
	WarehouseID                     string           `json:"warehouseId,omitempty"`
	WarehouseName                   string           `json:"warehouseName,omitempty"`
	ShippingMethodID                string           `json:"shippingMethodId,omitempty"`
	ShippingMethodName              string           `json:"shippingMethodName,omitempty"`
	ShippingPrice                   *TaxedMoneyInput `json:"shippingPrice,omitempty"`
	ShippingTaxRate                 *decimal.Decimal `json:"shippingTaxRate,omitempty"`
	ShippingTaxClassID              string           `json:"shippingTaxClassId,omitempty"`
	ShippingTaxClassName            string           `json:"shippingTaxClassName,omitempty"`
	ShippingTaxClassMetadata        []MetadataEntry  `json:"shippingTaxClassMetadata,omitempty"`
	ShippingTaxClassPrivateMetadata []MetadataEntry  `json:"shippingTaxClassPrivateMetadata,omitempty"`
}

// OrderInput is one externally-sourced order of a bulk import batch. It is
// immutable once validation begins and consumed exactly once: either the
// assembled aggregate is persisted or only the errors survive.
type OrderInput struct {
	ExternalReference  string              `json:"externalReference,omitempty"`
	Channel            string              `json:"channel"`
	CreatedAt          time.Time           `json:"createdAt"`
	Status             OrderStatus         `json:"status,omitempty"`
	User               UserRef             `json:"user"`
	TrackingClientID   string              `json:"trackingClientId,omitempty"`
	BillingAddress     *AddressInput       `json:"billingAddress"`
	ShippingAddress    *AddressInput       `json:"shippingAddress,omitempty"`
	Currency           string              `json:"currency"`
	Metadata           []MetadataEntry     `json:"metadata,omitempty"`
	PrivateMetadata    []MetadataEntry     `json:"privateMetadata,omitempty"`
	CustomerNote       string              `json:"customerNote,omitempty"`
	Notes              []NoteInput         `json:"notes,omitempty"`
	LanguageCode       string              `json:"languageCode"`
	DisplayGrossPrices *bool               `json:"displayGrossPrices,omitempty"`
	Weight             *decimal.Decimal    `json:"weight,omitempty"`
	RedirectURL        string              `json:"redirectUrl,omitempty"`
	Lines              []OrderLineInput    `json:"lines"`
	DeliveryMethod     DeliveryMethodInput `json:"deliveryMethod"`
	Fulfillments       []FulfillmentInput  `json:"fulfillments,omitempty"`
	Transactions       []TransactionInput  `json:"transactions,omitempty"`
}
