package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrImmutable indicates an attempt to change immutable fields
	ErrImmutable = errors.New("immutable")

	// Transaction validation
	ErrTooFewEntries    = errors.New("too_few_entries")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidSide      = errors.New("invalid_side")
	ErrUnbalanced       = errors.New("unbalanced_transaction")
	ErrUnknownLedger    = errors.New("unknown_ledger")
	ErrInactiveLedger   = errors.New("inactive_ledger")
	ErrCurrencyMismatch = errors.New("currency_mismatch")

	// ErrAlreadyTerminal indicates a transition attempted on an approved or
	// rejected transaction (HTTP 409).
	ErrAlreadyTerminal = errors.New("already_terminal")

	// ErrUpstream indicates a failed or timed-out collaborator call (HTTP 502).
	ErrUpstream = errors.New("upstream_error")
)
