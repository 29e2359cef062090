// Package store holds the account store implementations backing the ledger.
package store

import (
	"context"
	"math"

	"github.com/schoolpoints/backend/internal/models"
)

// AccountStore owns accounts, their balances and the transaction journal.
//
// ApplyDelta is the only operation that changes a balance. Implementations must
// serialize it per account and commit the new balance together with the journal
// entry, so that no reader observes one without the other.
type AccountStore interface {
	// FindByScanCode resolves an account by its external scan code.
	FindByScanCode(ctx context.Context, code string) (*models.Account, error)
	// FindByID resolves an account by id.
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	// Create opens a new account.
	Create(ctx context.Context, acc models.NewAccount) (*models.Account, error)
	// ApplyDelta adds delta to the balance and appends entry in the same commit.
	// entry.ID, entry.CreatedAt and entry.BalanceAfter are filled in on success.
	ApplyDelta(ctx context.Context, id int64, delta int64, entry *models.JournalEntry) (int64, error)
	// Entries returns the account's journal in insertion order.
	Entries(ctx context.Context, id int64) ([]models.JournalEntry, error)
	// Statement returns the account together with its journal, read so that
	// the balance reflects exactly the returned entries.
	Statement(ctx context.Context, id int64) (*models.Account, []models.JournalEntry, error)
	// Delete removes an account that no journal entry references.
	Delete(ctx context.Context, id int64) error
	// Close releases the underlying resources.
	Close() error
}

// checkDelta validates the result of applying delta to balance.
// A credit that would overflow the balance is an invalid amount.
func checkDelta(balance, delta int64) (int64, error) {
	if delta > 0 && balance > math.MaxInt64-delta {
		return balance, models.ErrInvalidAmount
	}
	next := balance + delta
	if next < 0 {
		return balance, models.ErrInsufficientFunds
	}
	return next, nil
}
