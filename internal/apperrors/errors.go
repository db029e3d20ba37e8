package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrWalletNotFound indicates that no transactions exist for the given wallet ID.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidTransaction indicates that a single ledger transaction was rejected
	// during normalization. It is fatal to that transaction only, never to the batch.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrPrecisionOverflow indicates that a value carries more fractional digits
	// than the configured scale. Values are never silently truncated.
	ErrPrecisionOverflow = errors.New("precision overflow")

	// ErrDivisionByZero indicates a decimal division with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnknownMethod indicates a cost-basis method outside fifo, lifo and average_cost.
	ErrUnknownMethod = errors.New("unknown cost-basis method")

	// ErrUnknownDirection indicates a transaction direction that is neither an acquisition nor a disposal.
	ErrUnknownDirection = errors.New("unknown transaction direction")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrInvalidYear indicates a tax year filter outside the supported range.
	ErrInvalidYear = errors.New("invalid tax year")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Operation failure errors represent system-level failures when retrieving or persisting data.
var (
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToStoreTransactions    = errors.New("failed to store transactions")
	ErrFailedToRetrieveTaxRecords   = errors.New("failed to retrieve tax records")
	ErrFailedToStoreTaxRecords      = errors.New("failed to store tax records")
	ErrInvalidCSVHeaders            = errors.New("invalid CSV headers")
)
