package models

import (
	"time"
)

// EntryKind is the direction of a journal entry.
type EntryKind string

const (
	EntryCredit EntryKind = "credit"
	EntryDebit  EntryKind = "debit"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	return k == EntryCredit || k == EntryDebit
}

// Signed returns amount with the sign this kind applies to a balance.
func (k EntryKind) Signed(amount int64) int64 {
	if k == EntryDebit {
		return -amount
	}
	return amount
}

// JournalEntry is one immutable credit or debit record.
//
// ID and CreatedAt are assigned by the store when the entry commits.
type JournalEntry struct {
	ID           int64     `json:"id" db:"id"`
	AccountID    int64     `json:"accountId" db:"account_id"`
	Kind         EntryKind `json:"kind" db:"kind"`
	Amount       int64     `json:"amount" db:"amount"`
	Reference    string    `json:"reference" db:"reference"`
	BalanceAfter int64     `json:"balanceAfter" db:"balance_after"`
	CreatedAt    time.Time `json:"timestamp" db:"created_at"`
}

// Reconciliation compares a stored balance with a replay of the journal.
type Reconciliation struct {
	AccountID      int64 `json:"accountId"`
	InitialBalance int64 `json:"initialBalance"`
	StoredBalance  int64 `json:"storedBalance"`
	JournalBalance int64 `json:"journalBalance"`
	Entries        int   `json:"entries"`
	Consistent     bool  `json:"consistent"`
}

// Replay folds entries over the opening balance in insertion order.
func Replay(initial int64, entries []JournalEntry) int64 {
	balance := initial
	for _, e := range entries {
		balance += e.Kind.Signed(e.Amount)
	}
	return balance
}
