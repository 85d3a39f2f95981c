package domain

// ErrorPolicy controls how validation failures affect the batch as a whole.
type ErrorPolicy string

const (
	// ErrorPolicyRejectEverything persists nothing if any order fails.
	ErrorPolicyRejectEverything ErrorPolicy = "REJECT_EVERYTHING"
	// ErrorPolicyRejectFailedRows skips failed orders, persists the rest.
	ErrorPolicyRejectFailedRows ErrorPolicy = "REJECT_FAILED_ROWS"
	// ErrorPolicyIgnoreFailed additionally downgrades soft failures: the
	// offending sub-entity is dropped and the order still commits.
	ErrorPolicyIgnoreFailed ErrorPolicy = "IGNORE_FAILED"
)

// DefaultErrorPolicy applies when the request does not name a policy.
const DefaultErrorPolicy = ErrorPolicyRejectEverything

func (p ErrorPolicy) Valid() bool {
	switch p {
	case ErrorPolicyRejectEverything, ErrorPolicyRejectFailedRows, ErrorPolicyIgnoreFailed:
		return true
	}
	return false
}

// StockUpdatePolicy controls whether and how importing a batch adjusts
// inventory counters.
type StockUpdatePolicy string

const (
	// StockUpdateSkip leaves stock untouched and never fails on stock.
	StockUpdateSkip StockUpdatePolicy = "SKIP"
	// StockUpdateUpdate decrements stock and rejects orders whose demand
	// exceeds availability or hits a missing stock row.
	StockUpdateUpdate StockUpdatePolicy = "UPDATE"
	// StockUpdateForce decrements stock even below zero; only a missing
	// stock row still rejects.
	StockUpdateForce StockUpdatePolicy = "FORCE"
)

// DefaultStockUpdatePolicy applies when the request does not name a policy.
const DefaultStockUpdatePolicy = StockUpdateSkip

func (p StockUpdatePolicy) Valid() bool {
	switch p {
	case StockUpdateSkip, StockUpdateUpdate, StockUpdateForce:
		return true
	}
	return false
}
