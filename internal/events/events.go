// Package events defines the outbound event surface of the finance engine.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TopicTransactionApproved carries one event per successful approval.
const TopicTransactionApproved = "finance.transaction.approved"

// Publisher emits domain events to downstream consumers. Publishing is
// fire-and-forget from the caller's perspective: a failed publish never
// rolls back the state change it announces.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// TransactionApproved announces that a transaction was posted to the ledger.
type TransactionApproved struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	Type          string     `json:"type"`
	Date          time.Time  `json:"date"`
	Currency      string     `json:"currency"`
	TotalMinor    int64      `json:"total_minor"`
	ApprovedBy    string     `json:"approved_by"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

type noop struct{}

func (noop) Publish(context.Context, string, any) error { return nil }
func (noop) Close() error                               { return nil }

// Noop returns a publisher that drops every event. Used when no broker is
// configured and in tests.
func Noop() Publisher { return noop{} }
