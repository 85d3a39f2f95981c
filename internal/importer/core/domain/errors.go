// Package domain defines the entities, inputs and error vocabulary of the
// bulk order import engine. Everything here is storage-agnostic: adapters and
// the HTTP layer depend on this package, never the other way around.
package domain

// ErrorCode is the closed enumeration of validation failure codes reported
// per order in a bulk import result.
type ErrorCode string

const (
	CodeRequired                         ErrorCode = "REQUIRED"
	CodeNotFound                         ErrorCode = "NOT_FOUND"
	CodeTooManyIdentifiers               ErrorCode = "TOO_MANY_IDENTIFIERS"
	CodeInvalid                          ErrorCode = "INVALID"
	CodeInvalidQuantity                  ErrorCode = "INVALID_QUANTITY"
	CodeFutureDate                       ErrorCode = "FUTURE_DATE"
	CodeNoteLength                       ErrorCode = "NOTE_LENGTH"
	CodeIncorrectCurrency                ErrorCode = "INCORRECT_CURRENCY"
	CodeMetadataKeyRequired              ErrorCode = "METADATA_KEY_REQUIRED"
	CodePriceError                       ErrorCode = "PRICE_ERROR"
	CodeInsufficientStock                ErrorCode = "INSUFFICIENT_STOCK"
	CodeNonExistingStock                 ErrorCode = "NON_EXISTING_STOCK"
	CodeNoRelatedOrderLine               ErrorCode = "NO_RELATED_ORDER_LINE"
	CodeOrderLineFulfillmentLineMismatch ErrorCode = "ORDER_LINE_FULFILLMENT_LINE_MISMATCH"

	// CodeGraphQLError is the catch-all for unexpected failures (storage
	// errors, broken directory lookups) that are not a validation verdict.
	CodeGraphQLError ErrorCode = "GRAPHQL_ERROR"
)

// BulkError is a single validation failure scoped to one order of a batch.
// It is result data, not a Go error: orders accumulate every failure before
// the accept/reject decision is made.
type BulkError struct {
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
}

// Severity decides whether a validation failure rejects its order.
type Severity int

const (
	// SeverityHard rejects the order.
	SeverityHard Severity = iota
	// SeveritySoft drops the offending sub-entity but keeps the order.
	SeveritySoft
)

// softMetadataFields are the metadata scopes whose empty-key failures are
// tolerable: the snapshot metadata is dropped, the order survives.
// Transaction and order-level metadata failures stay hard.
var softMetadataFields = map[string]bool{
	"tax_class_metadata":                  true,
	"tax_class_private_metadata":          true,
	"shipping_tax_class_metadata":         true,
	"shipping_tax_class_private_metadata": true,
}

// ErrorSeverity classifies err under the given batch policy. Over-length
// notes and empty keys on tax-class snapshot metadata are soft only when the
// policy is IGNORE_FAILED; under the reject policies every failure is hard.
func ErrorSeverity(err BulkError, policy ErrorPolicy) Severity {
	if policy != ErrorPolicyIgnoreFailed {
		return SeverityHard
	}
	switch {
	case err.Code == CodeNoteLength:
		return SeveritySoft
	case err.Code == CodeMetadataKeyRequired && softMetadataFields[err.Field]:
		return SeveritySoft
	}
	return SeverityHard
}

// HasHard reports whether any of errs rejects an order under policy.
func HasHard(errs []BulkError, policy ErrorPolicy) bool {
	for _, e := range errs {
		if ErrorSeverity(e, policy) == SeverityHard {
			return true
		}
	}
	return false
}
