package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/finance"
)

// IdempotencyStore replays a prior create when the same Idempotency-Key is
// presented again. The stored body hash lets the handler reject a reused key
// whose payload diverges from the first request.
type IdempotencyStore interface {
	GetTransactionByIdempotencyKey(ctx context.Context, key string) (tx finance.Transaction, bodyHash string, found bool, err error)
	SaveIdempotencyKey(ctx context.Context, key string, txID uuid.UUID, bodyHash string) error
}

// ReadyChecker reports whether the backing store can serve requests.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
