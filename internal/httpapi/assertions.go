package httpapi

import "github.com/storeops/finledger/internal/storage/memory"

// Compile-time interface assertions for the in-memory Store against HTTP API interfaces.
var (
	_ IdempotencyStore = (*memory.Store)(nil)
	_ ReadyChecker     = (*memory.Store)(nil)
)
