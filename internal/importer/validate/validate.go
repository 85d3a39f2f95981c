// Package validate holds the stateless field checks of the import pipeline:
// date sanity, URL shape, address completeness, metadata keys, note length.
// Checks that need a clock take it through clockz so tests can pin "now".
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
)

const (
	// FutureDateTolerance absorbs clock skew between the source system and
	// this service; anything further in the future is rejected.
	FutureDateTolerance = 5 * time.Minute

	// MaxNoteLength caps imported note messages.
	MaxNoteLength = 200
)

// Checker bundles the validations that depend on wall-clock time.
type Checker struct {
	clock clockz.Clock
}

// NewChecker returns a Checker using the given clock; nil means real time.
func NewChecker(clock clockz.Clock) *Checker {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Checker{clock: clock}
}

// Now exposes the checker's clock for callers that default timestamps.
func (c *Checker) Now() time.Time {
	return c.clock.Now()
}

// DateValid reports whether ts is not in the future beyond the tolerance.
func (c *Checker) DateValid(ts time.Time) bool {
	return ts.Before(c.clock.Now().Add(FutureDateTolerance))
}

// RedirectURL checks that raw parses as an absolute http(s) URL.
func RedirectURL(raw string) *domain.BulkError {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &domain.BulkError{
			Message: fmt.Sprintf("Invalid redirect url: %s.", raw),
			Field:   "redirect_url",
			Code:    domain.CodeInvalid,
		}
	}
	return nil
}

var countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)

// postalCodeRes carries per-country postal code shapes for the countries
// the legacy sources actually ship from. Unknown countries only require a
// non-empty code.
var postalCodeRes = map[string]*regexp.Regexp{
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	"PL": regexp.MustCompile(`^\d{2}-\d{3}$`),
	"DE": regexp.MustCompile(`^\d{5}$`),
	"GB": regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]? ?\d[A-Z]{2}$`),
}

// Address checks the minimum required field set of an address payload.
// field names the order field ("billing_address" or "shipping_address") so
// both addresses surface independent errors.
func Address(in *domain.AddressInput, field, label string) *domain.BulkError {
	invalid := &domain.BulkError{
		Message: fmt.Sprintf("Invalid %s address.", label),
		Field:   field,
		Code:    domain.CodeInvalid,
	}
	if in == nil {
		return invalid
	}
	if in.StreetAddress1 == "" || in.City == "" || in.PostalCode == "" {
		return invalid
	}
	if !countryCodeRe.MatchString(in.Country) {
		return invalid
	}
	if re, ok := postalCodeRes[in.Country]; ok && !re.MatchString(in.PostalCode) {
		return invalid
	}
	return nil
}

// MetadataKeys checks that no entry of a metadata list has an empty key.
// message and field are caller-provided because the same check is scoped
// differently per metadata holder (order, transaction, tax-class snapshot).
func MetadataKeys(entries []domain.MetadataEntry, field, message string) *domain.BulkError {
	for _, e := range entries {
		if e.Key == "" {
			return &domain.BulkError{
				Message: message,
				Field:   field,
				Code:    domain.CodeMetadataKeyRequired,
			}
		}
	}
	return nil
}

// NoteLength checks an imported note message against the length cap.
func NoteLength(message string) *domain.BulkError {
	if len(message) > MaxNoteLength {
		return &domain.BulkError{
			Message: fmt.Sprintf("Note message exceeds character limit: %d.", MaxNoteLength),
			Field:   "message",
			Code:    domain.CodeNoteLength,
		}
	}
	return nil
}

// TransactionCurrency checks one transaction amount against the order
// currency; field names the specific amount (amount_authorized, ...).
func TransactionCurrency(amount *domain.Money, orderCurrency, field string) *domain.BulkError {
	if amount == nil || amount.Currency == orderCurrency {
		return nil
	}
	return &domain.BulkError{
		Message: fmt.Sprintf("Currency needs to be the same as for order: %s", orderCurrency),
		Field:   field,
		Code:    domain.CodeIncorrectCurrency,
	}
}

// MetadataMap converts validated entries into the map shape stored on
// entities. Returns nil for empty input so omitted metadata stays omitted.
func MetadataMap(entries []domain.MetadataEntry) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}
