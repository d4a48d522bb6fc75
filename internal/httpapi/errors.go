package httpapi

import (
	"errors"
	"net/http"

	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/service/ledger"
)

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, envelope{Success: false, Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "validation_error")
}

func notFound(w http.ResponseWriter) {
	writeErr(w, http.StatusNotFound, "not_found", "not_found")
}

// writeDomainErr maps a service error to its HTTP status and error code.
func writeDomainErr(w http.ResponseWriter, err error) {
	status, code := mapError(err)
	writeErr(w, status, err.Error(), code)
}

// mapError normalizes domain errors into a status and a stable code. Every
// service wraps its sentinels with %w, so errors.Is is the whole story here.
func mapError(err error) (status int, code string) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrAlreadyTerminal):
		return http.StatusConflict, "already_terminal"
	case errors.Is(err, errs.ErrImmutable):
		return http.StatusConflict, "immutable"
	case errors.Is(err, ledger.ErrNameExists):
		return http.StatusConflict, "name_exists"
	case errors.Is(err, ledger.ErrCodeExists):
		return http.StatusConflict, "code_exists"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, errs.ErrTooFewEntries):
		return http.StatusBadRequest, "too_few_entries"
	case errors.Is(err, errs.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, errs.ErrInvalidSide):
		return http.StatusBadRequest, "invalid_side"
	case errors.Is(err, errs.ErrUnbalanced):
		return http.StatusBadRequest, "unbalanced_transaction"
	case errors.Is(err, errs.ErrUnknownLedger):
		return http.StatusBadRequest, "unknown_ledger"
	case errors.Is(err, errs.ErrInactiveLedger):
		return http.StatusBadRequest, "inactive_ledger"
	case errors.Is(err, errs.ErrCurrencyMismatch):
		return http.StatusBadRequest, "currency_mismatch"
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, errs.ErrUnprocessable):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, errs.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
