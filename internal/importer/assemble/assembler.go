// Package assemble builds one order aggregate per batch item. The assembler
// never stops at the first failure: every resolver, validator and pricing
// error of one order is collected into ordered buckets so that callers can
// apply their error policy to the complete picture.
package assemble

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/pricing"
	"github.com/jcmexdev/order-importer/internal/importer/reconcile"
	"github.com/jcmexdev/order-importer/internal/importer/resolve"
	"github.com/jcmexdev/order-importer/internal/importer/validate"
)

// AssembledOrder is the outcome of assembling one batch item. Order is nil
// when an essential piece (customer, channel, billing address, delivery
// method or any line) could not be built; in that case only the errors
// survive. Error buckets preserve encounter order within each bucket and are
// reported order-level first, then lines, notes, transactions, fulfillments,
// with stock errors appended last by the coordinator.
type AssembledOrder struct {
	Order *domain.Order

	OrderErrors       []domain.BulkError
	LineErrors        []domain.BulkError
	NoteErrors        []domain.BulkError
	TransactionErrors []domain.BulkError
	FulfillmentErrors []domain.BulkError
	StockErrors       []domain.BulkError
}

// Errors concatenates all buckets in reporting order.
func (a *AssembledOrder) Errors() []domain.BulkError {
	out := make([]domain.BulkError, 0,
		len(a.OrderErrors)+len(a.LineErrors)+len(a.NoteErrors)+
			len(a.TransactionErrors)+len(a.FulfillmentErrors)+len(a.StockErrors))
	out = append(out, a.OrderErrors...)
	out = append(out, a.LineErrors...)
	out = append(out, a.NoteErrors...)
	out = append(out, a.TransactionErrors...)
	out = append(out, a.FulfillmentErrors...)
	out = append(out, a.StockErrors...)
	return out
}

// Rejected reports whether this order cannot be committed under policy.
func (a *AssembledOrder) Rejected(policy domain.ErrorPolicy) bool {
	return a.Order == nil || domain.HasHard(a.Errors(), policy)
}

// Assembler composes order aggregates for one batch. It shares the batch's
// resolver so repeated references are looked up once.
type Assembler struct {
	resolver *resolve.Resolver
	checker  *validate.Checker
}

func New(resolver *resolve.Resolver, checker *validate.Checker) *Assembler {
	return &Assembler{resolver: resolver, checker: checker}
}

// Assemble builds the aggregate for one order input, collecting every
// validation failure on the way.
func (a *Assembler) Assemble(ctx context.Context, in domain.OrderInput) *AssembledOrder {
	res := &AssembledOrder{}
	broken := false

	a.validateOrderInput(in, res)

	user, uerr := a.resolver.User(ctx, in.User)
	if uerr != nil {
		res.OrderErrors = append(res.OrderErrors, *uerr)
		broken = true
	}
	channel, cherr := a.resolver.Channel(ctx, in.Channel)
	if cherr != nil {
		res.OrderErrors = append(res.OrderErrors, *cherr)
		broken = true
	}

	billing := a.address(in.BillingAddress, "billing_address", "billing", res)
	if billing == nil {
		broken = true
	}
	var shipping *domain.Address
	if in.ShippingAddress != nil {
		shipping = a.address(in.ShippingAddress, "shipping_address", "shipping", res)
	}

	order := &domain.Order{
		ID:                uuid.NewString(),
		ExternalReference: in.ExternalReference,
		CreatedAt:         in.CreatedAt,
		Status:            orderStatus(in.Status),
		Origin:            domain.OrderOriginBulkCreate,
		BillingAddress:    billing,
		ShippingAddress:   shipping,
		LanguageCode:      in.LanguageCode,
		Currency:          in.Currency,
		TrackingClientID:  in.TrackingClientID,
		RedirectURL:       in.RedirectURL,
		CustomerNote:      in.CustomerNote,
		Metadata:          validate.MetadataMap(in.Metadata),
		PrivateMetadata:   validate.MetadataMap(in.PrivateMetadata),
	}
	if in.Weight != nil {
		order.Weight = *in.Weight
	}
	order.DisplayGrossPrices = in.DisplayGrossPrices == nil || *in.DisplayGrossPrices
	if user != nil {
		order.UserID = user.ID
		order.UserEmail = user.Email
	}
	if channel != nil {
		order.ChannelID = channel.ID
		order.ChannelSlug = channel.Slug
	}

	if !a.delivery(ctx, in.DeliveryMethod, channel, order, res) {
		broken = true
	}

	lines, linesOK := a.lines(ctx, in, res)
	if !linesOK {
		broken = true
	}
	order.Lines = lines
	for _, line := range lines {
		order.Total = order.Total.Add(line.TotalPrice)
		order.UndiscountedTotal = order.UndiscountedTotal.Add(line.UndiscountedTotalPrice)
	}

	order.Events = a.notes(ctx, in.Notes, res)
	order.Transactions = a.transactions(in, res)

	fulfillments, ferrs := reconcile.Fulfillments(ctx, a.resolver, order.Lines, in.Fulfillments)
	res.FulfillmentErrors = append(res.FulfillmentErrors, ferrs...)
	order.Fulfillments = fulfillments

	if !broken {
		res.Order = order
	}
	return res
}

func (a *Assembler) validateOrderInput(in domain.OrderInput, res *AssembledOrder) {
	if in.Weight != nil && in.Weight.IsNegative() {
		res.OrderErrors = append(res.OrderErrors, domain.BulkError{
			Message: "Product can't have negative weight.",
			Field:   "weight",
			Code:    domain.CodeInvalid,
		})
	}
	if !a.checker.DateValid(in.CreatedAt) {
		res.OrderErrors = append(res.OrderErrors, domain.BulkError{
			Message: "Order input contains future date.",
			Field:   "created_at",
			Code:    domain.CodeFutureDate,
		})
	}
	if in.RedirectURL != "" {
		if err := validate.RedirectURL(in.RedirectURL); err != nil {
			res.OrderErrors = append(res.OrderErrors, *err)
		}
	}
	if err := validate.MetadataKeys(in.Metadata, "metadata", "Metadata key cannot be empty."); err != nil {
		res.OrderErrors = append(res.OrderErrors, *err)
	}
	if err := validate.MetadataKeys(in.PrivateMetadata, "private_metadata", "Private metadata key cannot be empty."); err != nil {
		res.OrderErrors = append(res.OrderErrors, *err)
	}
}

func (a *Assembler) address(in *domain.AddressInput, field, label string, res *AssembledOrder) *domain.Address {
	if err := validate.Address(in, field, label); err != nil {
		res.OrderErrors = append(res.OrderErrors, *err)
		return nil
	}
	return &domain.Address{
		ID:             uuid.NewString(),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		CompanyName:    in.CompanyName,
		StreetAddress1: in.StreetAddress1,
		StreetAddress2: in.StreetAddress2,
		City:           in.City,
		CityArea:       in.CityArea,
		PostalCode:     in.PostalCode,
		Country:        in.Country,
		CountryArea:    in.CountryArea,
		Phone:          in.Phone,
	}
}

// delivery resolves the warehouse-pickup XOR shipping-method choice and
// snapshots it onto the order. Reports false when the order has no usable
// delivery method.
func (a *Assembler) delivery(
	ctx context.Context,
	in domain.DeliveryMethodInput,
	channel *domain.Channel,
	order *domain.Order,
	res *AssembledOrder,
) bool {
	switch {
	case in.WarehouseID != "" && in.ShippingMethodID != "":
		res.OrderErrors = append(res.OrderErrors, domain.BulkError{
			Message: "Can't provide both warehouse and shipping method IDs.",
			Field:   "delivery_method",
			Code:    domain.CodeTooManyIdentifiers,
		})
		return false
	case in.WarehouseID == "" && in.ShippingMethodID == "":
		res.OrderErrors = append(res.OrderErrors, domain.BulkError{
			Message: "No delivery method provided.",
			Field:   "delivery_method",
			Code:    domain.CodeRequired,
		})
		return false
	}

	if in.WarehouseID != "" {
		warehouse, werr := a.resolver.Warehouse(ctx, in.WarehouseID)
		if werr != nil {
			res.OrderErrors = append(res.OrderErrors, *werr)
			return false
		}
		order.CollectionPointID = warehouse.ID
		order.CollectionPointName = fallback(in.WarehouseName, warehouse.Name)
		return true
	}

	method, merr := a.resolver.ShippingMethod(ctx, in.ShippingMethodID)
	if merr != nil {
		res.OrderErrors = append(res.OrderErrors, *merr)
		return false
	}
	order.ShippingMethodID = method.ID
	order.ShippingMethodName = fallback(in.ShippingMethodName, method.Name)

	if in.ShippingTaxClassID != "" {
		taxClass, terr := a.resolver.TaxClass(ctx, in.ShippingTaxClassID)
		if terr != nil {
			res.OrderErrors = append(res.OrderErrors, *terr)
		} else {
			order.ShippingTaxClassID = taxClass.ID
			order.ShippingTaxClassName = fallback(in.ShippingTaxClassName, taxClass.Name)
		}
	} else {
		order.ShippingTaxClassName = in.ShippingTaxClassName
	}

	if err := validate.MetadataKeys(in.ShippingTaxClassMetadata,
		"shipping_tax_class_metadata", "Metadata key cannot be empty."); err != nil {
		res.OrderErrors = append(res.OrderErrors, *err)
	} else {
		order.ShippingTaxClassMetadata = validate.MetadataMap(in.ShippingTaxClassMetadata)
	}
	if err := validate.MetadataKeys(in.ShippingTaxClassPrivateMetadata,
		"shipping_tax_class_private_metadata", "Private metadata key cannot be empty."); err != nil {
		res.OrderErrors = append(res.OrderErrors, *err)
	} else {
		order.ShippingTaxClassPrivateMetadata = validate.MetadataMap(in.ShippingTaxClassPrivateMetadata)
	}

	// Price snapshot: the given pair wins; otherwise the net comes from the
	// method's channel listing and the gross is derived from the tax rate.
	switch {
	case in.ShippingPrice != nil:
		order.ShippingPrice = domain.TaxedMoney{
			Gross: in.ShippingPrice.Gross,
			Net:   in.ShippingPrice.Net,
		}.Quantize()
		order.ShippingTaxRate = taxRateFor(in.ShippingTaxRate, order.ShippingPrice)
	case channel != nil:
		price, ok, perr := a.resolver.ShippingPrice(ctx, method.ID, channel.ID)
		if perr != nil {
			res.OrderErrors = append(res.OrderErrors, *perr)
			return false
		}
		if ok {
			rate := decimal.Zero
			if in.ShippingTaxRate != nil {
				rate = *in.ShippingTaxRate
			}
			net := price
			gross := net.Add(net.Mul(rate))
			order.ShippingPrice = domain.TaxedMoney{Gross: gross, Net: net}.Quantize()
			order.ShippingTaxRate = rate
		}
	}
	return true
}

// lines assembles every order line; ok is false when any line failed, which
// makes the whole order unbuildable.
func (a *Assembler) lines(ctx context.Context, in domain.OrderInput, res *AssembledOrder) ([]domain.OrderLine, bool) {
	if len(in.Lines) == 0 {
		res.OrderErrors = append(res.OrderErrors, domain.BulkError{
			Message: "At least one order line must be provided.",
			Field:   "lines",
			Code:    domain.CodeRequired,
		})
		return nil, false
	}

	ok := true
	lines := make([]domain.OrderLine, 0, len(in.Lines))
	for _, lineIn := range in.Lines {
		line, errs := a.line(ctx, in, lineIn)
		res.LineErrors = append(res.LineErrors, errs...)
		if line == nil {
			ok = false
			continue
		}
		lines = append(lines, *line)
	}
	if !ok {
		return nil, false
	}
	return lines, true
}

func (a *Assembler) line(ctx context.Context, in domain.OrderInput, lineIn domain.OrderLineInput) (*domain.OrderLine, []domain.BulkError) {
	var errs []domain.BulkError

	variant, verr := a.resolver.Variant(ctx,
		lineIn.VariantID, lineIn.VariantExternalReference, lineIn.VariantSKU)
	if verr != nil {
		errs = append(errs, *verr)
	}
	warehouse, werr := a.resolver.Warehouse(ctx, lineIn.WarehouseID)
	if werr != nil {
		errs = append(errs, *werr)
	}

	amounts, perrs := pricing.Calculate(lineIn)
	errs = append(errs, perrs...)

	line := &domain.OrderLine{
		ID:                    uuid.NewString(),
		ProductName:           lineIn.ProductName,
		VariantName:           lineIn.VariantName,
		TranslatedProductName: lineIn.TranslatedProductName,
		TranslatedVariantName: lineIn.TranslatedVariantName,
		CreatedAt:             lineIn.CreatedAt,
		IsShippingRequired:    lineIn.IsShippingRequired,
		IsGiftCard:            lineIn.IsGiftCard,
		Currency:              in.Currency,
		TaxClassName:          lineIn.TaxClassName,
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = in.CreatedAt
	}
	if variant != nil {
		line.VariantID = variant.ID
		line.SKU = variant.SKU
		if line.VariantName == "" {
			line.VariantName = variant.Name
		}
	}
	if warehouse != nil {
		line.WarehouseID = warehouse.ID
	}

	if lineIn.TaxClassID != "" {
		taxClass, terr := a.resolver.TaxClass(ctx, lineIn.TaxClassID)
		if terr != nil {
			errs = append(errs, *terr)
		} else {
			line.TaxClassID = taxClass.ID
			if line.TaxClassName == "" {
				line.TaxClassName = taxClass.Name
			}
		}
	}

	if err := validate.MetadataKeys(lineIn.TaxClassMetadata,
		"tax_class_metadata", "Metadata key cannot be empty."); err != nil {
		errs = append(errs, *err)
	} else {
		line.TaxClassMetadata = validate.MetadataMap(lineIn.TaxClassMetadata)
	}
	if err := validate.MetadataKeys(lineIn.TaxClassPrivateMetadata,
		"tax_class_private_metadata", "Private metadata key cannot be empty."); err != nil {
		errs = append(errs, *err)
	} else {
		line.TaxClassPrivateMetadata = validate.MetadataMap(lineIn.TaxClassPrivateMetadata)
	}

	if amounts != nil {
		line.Quantity = amounts.Quantity
		line.TotalPrice = amounts.TotalPrice
		line.UnitPrice = amounts.UnitPrice
		line.UndiscountedTotalPrice = amounts.UndiscountedTotalPrice
		line.UndiscountedUnitPrice = amounts.UndiscountedUnitPrice
		line.TaxRate = amounts.TaxRate
	}

	// Tax-class snapshot metadata failures are the only tolerable line
	// errors: the snapshot is dropped, the line survives.
	for _, e := range errs {
		if e.Code != domain.CodeMetadataKeyRequired {
			return nil, errs
		}
	}
	return line, errs
}

// notes turns accepted notes into NOTE_ADDED events. A failing note is
// dropped; its error decides the order's fate only through the policy.
func (a *Assembler) notes(ctx context.Context, notes []domain.NoteInput, res *AssembledOrder) []domain.OrderEvent {
	var events []domain.OrderEvent
	for _, note := range notes {
		if err := validate.NoteLength(note.Message); err != nil {
			res.NoteErrors = append(res.NoteErrors, *err)
			continue
		}
		date := a.checker.Now()
		if note.Date != nil {
			if !a.checker.DateValid(*note.Date) {
				res.NoteErrors = append(res.NoteErrors, domain.BulkError{
					Message: "Note input contains future date.",
					Field:   "date",
					Code:    domain.CodeFutureDate,
				})
				continue
			}
			date = *note.Date
		}

		event := domain.OrderEvent{
			ID:      uuid.NewString(),
			Type:    domain.OrderEventNoteAdded,
			Date:    date,
			Message: note.Message,
		}

		var user *domain.User
		if note.UserID != "" || note.UserEmail != "" || note.UserExternalReference != "" {
			u, uerr := a.resolver.NoteUser(ctx, note.UserID, note.UserEmail, note.UserExternalReference)
			if uerr != nil {
				res.NoteErrors = append(res.NoteErrors, *uerr)
				continue
			}
			user = u
		}
		var app *domain.App
		if note.AppID != "" {
			ap, aerr := a.resolver.App(ctx, note.AppID)
			if aerr != nil {
				res.NoteErrors = append(res.NoteErrors, *aerr)
				continue
			}
			app = ap
		}
		if user != nil && app != nil {
			res.NoteErrors = append(res.NoteErrors, domain.BulkError{
				Message: "Note input contains both user and app identifier.",
				Field:   "notes",
				Code:    domain.CodeTooManyIdentifiers,
			})
			continue
		}
		if user != nil {
			event.UserID = user.ID
		}
		if app != nil {
			event.AppID = app.ID
		}
		events = append(events, event)
	}
	return events
}

func (a *Assembler) transactions(in domain.OrderInput, res *AssembledOrder) []domain.Transaction {
	var transactions []domain.Transaction
	for _, txIn := range in.Transactions {
		failed := false
		amounts := []struct {
			money *domain.Money
			field string
		}{
			{txIn.AmountAuthorized, "amount_authorized"},
			{txIn.AmountCharged, "amount_charged"},
			{txIn.AmountRefunded, "amount_refunded"},
			{txIn.AmountVoided, "amount_voided"},
		}
		for _, amt := range amounts {
			if err := validate.TransactionCurrency(amt.money, in.Currency, amt.field); err != nil {
				res.TransactionErrors = append(res.TransactionErrors, *err)
				failed = true
			}
		}
		if err := validate.MetadataKeys(txIn.Metadata, "transaction", "metadata key cannot be empty."); err != nil {
			res.TransactionErrors = append(res.TransactionErrors, *err)
			failed = true
		}
		if err := validate.MetadataKeys(txIn.PrivateMetadata, "transaction", "metadata key cannot be empty."); err != nil {
			res.TransactionErrors = append(res.TransactionErrors, *err)
			failed = true
		}
		if failed {
			continue
		}

		transactions = append(transactions, domain.Transaction{
			ID:               uuid.NewString(),
			Status:           txIn.Status,
			Name:             txIn.Type,
			PSPReference:     txIn.Reference,
			AmountAuthorized: quantizeMoney(txIn.AmountAuthorized),
			AmountCharged:    quantizeMoney(txIn.AmountCharged),
			AmountRefunded:   quantizeMoney(txIn.AmountRefunded),
			AmountVoided:     quantizeMoney(txIn.AmountVoided),
			Metadata:         validate.MetadataMap(txIn.Metadata),
			PrivateMetadata:  validate.MetadataMap(txIn.PrivateMetadata),
		})
	}
	return transactions
}

func orderStatus(s domain.OrderStatus) domain.OrderStatus {
	if s == "" {
		return domain.StatusDraft
	}
	return s
}

func taxRateFor(given *decimal.Decimal, price domain.TaxedMoney) decimal.Decimal {
	if given != nil {
		return *given
	}
	if price.Net.IsPositive() {
		return price.Gross.Div(price.Net).Sub(decimal.NewFromInt(1))
	}
	return decimal.Zero
}

func fallback(given, resolved string) string {
	if given != "" {
		return given
	}
	return resolved
}

func quantizeMoney(m *domain.Money) *domain.Money {
	if m == nil {
		return nil
	}
	return &domain.Money{
		Amount:   m.Amount.Round(domain.CurrencyPrecision),
		Currency: m.Currency,
	}
}
