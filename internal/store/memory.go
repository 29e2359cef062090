package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schoolpoints/backend/internal/models"
)

// Recorder persists store mutations before they become visible.
// *wal.WAL satisfies it.
type Recorder interface {
	Write(v any) error
	ReadAll(callback func(raw []byte) error) error
}

const (
	opOpen  = "open"
	opPost  = "post"
	opClose = "close"
)

// walRecord is one line of the memory store's write-ahead log.
type walRecord struct {
	Op        string               `json:"op"`
	Account   *models.Account      `json:"account,omitempty"`
	Entry     *models.JournalEntry `json:"entry,omitempty"`
	AccountID int64                `json:"accountId,omitempty"`
}

// accountSlot serializes every balance change of a single account.
type accountSlot struct {
	mu      sync.Mutex
	account models.Account
	deleted bool
}

// MemoryStore keeps accounts and the journal in memory.
//
// Lock order: mu -> slot.mu -> journalMu. Operations on different accounts only
// meet on journalMu, which is held for id assignment and the log write.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[int64]*accountSlot
	byScanCode    map[string]int64
	nextAccountID int64

	journalMu   sync.RWMutex
	journal     []models.JournalEntry
	byAccount   map[int64][]int
	nextEntryID int64
	lastStamp   time.Time

	recorder Recorder
	now      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithRecorder makes the store durable through rec (usually a *wal.WAL).
// Existing records are replayed when the store is created.
func WithRecorder(rec Recorder) MemoryOption {
	return func(m *MemoryStore) {
		m.recorder = rec
	}
}

// WithClock overrides the time source used for journal timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// NewMemoryStore builds a memory store and replays its recorder, if any.
func NewMemoryStore(opts ...MemoryOption) (*MemoryStore, error) {
	m := &MemoryStore{
		accounts:   make(map[int64]*accountSlot),
		byScanCode: make(map[string]int64),
		byAccount:  make(map[int64][]int),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.recorder != nil {
		if err := m.replay(); err != nil {
			return nil, fmt.Errorf("replay write-ahead log: %w", err)
		}
	}
	return m, nil
}

// replay rebuilds state from the recorder. Called before the store is shared.
func (m *MemoryStore) replay() error {
	return m.recorder.ReadAll(func(raw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		switch rec.Op {
		case opOpen:
			if rec.Account == nil {
				return fmt.Errorf("open record without account")
			}
			m.insertAccount(*rec.Account)
		case opPost:
			if rec.Entry == nil {
				return fmt.Errorf("post record without entry")
			}
			slot, ok := m.accounts[rec.Entry.AccountID]
			if !ok {
				return fmt.Errorf("entry %d references unknown account %d", rec.Entry.ID, rec.Entry.AccountID)
			}
			slot.account.Balance += rec.Entry.Kind.Signed(rec.Entry.Amount)
			slot.account.UpdatedAt = rec.Entry.CreatedAt
			m.appendEntry(*rec.Entry)
		case opClose:
			m.removeAccount(rec.AccountID)
		default:
			return fmt.Errorf("unknown record op %q", rec.Op)
		}
		return nil
	})
}

func (m *MemoryStore) insertAccount(acc models.Account) {
	m.accounts[acc.ID] = &accountSlot{account: acc}
	m.byScanCode[acc.ScanCode] = acc.ID
	if acc.ID > m.nextAccountID {
		m.nextAccountID = acc.ID
	}
}

func (m *MemoryStore) removeAccount(id int64) {
	slot, ok := m.accounts[id]
	if !ok {
		return
	}
	slot.deleted = true
	delete(m.byScanCode, slot.account.ScanCode)
	delete(m.accounts, id)
}

// appendEntry requires journalMu (or single-threaded replay).
func (m *MemoryStore) appendEntry(e models.JournalEntry) {
	m.journal = append(m.journal, e)
	m.byAccount[e.AccountID] = append(m.byAccount[e.AccountID], len(m.journal)-1)
	m.nextEntryID = e.ID
	m.lastStamp = e.CreatedAt
}

// stamp returns a timestamp never earlier than the previous entry's.
func (m *MemoryStore) stamp() time.Time {
	now := m.now().UTC()
	if now.Before(m.lastStamp) {
		return m.lastStamp
	}
	return now
}

func (m *MemoryStore) record(rec walRecord) error {
	if m.recorder == nil {
		return nil
	}
	if err := m.recorder.Write(rec); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (m *MemoryStore) slot(id int64) (*accountSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return slot, nil
}

// FindByScanCode returns a snapshot of the account holding code.
func (m *MemoryStore) FindByScanCode(ctx context.Context, code string) (*models.Account, error) {
	m.mu.RLock()
	id, ok := m.byScanCode[code]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return m.FindByID(ctx, id)
}

// FindByID returns a snapshot of the account.
func (m *MemoryStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	slot, err := m.slot(id)
	if err != nil {
		return nil, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.deleted {
		return nil, models.ErrNotFound
	}
	return slot.account.Clone(), nil
}

// Create opens an account with a unique scan code.
func (m *MemoryStore) Create(ctx context.Context, acc models.NewAccount) (*models.Account, error) {
	if acc.InitialBalance < 0 {
		return nil, models.ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byScanCode[acc.ScanCode]; exists {
		return nil, models.ErrDuplicateScanCode
	}

	now := m.now().UTC()
	account := models.Account{
		ID:             m.nextAccountID + 1,
		ScanCode:       acc.ScanCode,
		DisplayName:    acc.DisplayName,
		GroupLabel:     acc.GroupLabel,
		Balance:        acc.InitialBalance,
		InitialBalance: acc.InitialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.record(walRecord{Op: opOpen, Account: &account}); err != nil {
		return nil, err
	}
	m.insertAccount(account)
	return account.Clone(), nil
}

// ApplyDelta commits a balance change and its journal entry under the account lock.
func (m *MemoryStore) ApplyDelta(ctx context.Context, id int64, delta int64, entry *models.JournalEntry) (int64, error) {
	slot, err := m.slot(id)
	if err != nil {
		return 0, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.deleted {
		return 0, models.ErrNotFound
	}

	next, err := checkDelta(slot.account.Balance, delta)
	if err != nil {
		return slot.account.Balance, err
	}

	m.journalMu.Lock()
	defer m.journalMu.Unlock()

	committed := *entry
	committed.ID = m.nextEntryID + 1
	committed.AccountID = id
	committed.BalanceAfter = next
	committed.CreatedAt = m.stamp()

	if err := m.record(walRecord{Op: opPost, Entry: &committed}); err != nil {
		return slot.account.Balance, err
	}

	m.appendEntry(committed)
	slot.account.Balance = next
	slot.account.UpdatedAt = committed.CreatedAt

	*entry = committed
	return next, nil
}

// Entries returns the account's journal.
func (m *MemoryStore) Entries(ctx context.Context, id int64) ([]models.JournalEntry, error) {
	_, entries, err := m.Statement(ctx, id)
	return entries, err
}

// Statement reads the account and its journal under the account lock, so no
// commit for the account can interleave.
func (m *MemoryStore) Statement(ctx context.Context, id int64) (*models.Account, []models.JournalEntry, error) {
	slot, err := m.slot(id)
	if err != nil {
		return nil, nil, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.deleted {
		return nil, nil, models.ErrNotFound
	}

	m.journalMu.RLock()
	defer m.journalMu.RUnlock()

	idx := m.byAccount[id]
	entries := make([]models.JournalEntry, 0, len(idx))
	for _, i := range idx {
		entries = append(entries, m.journal[i])
	}
	return slot.account.Clone(), entries, nil
}

// Delete removes an account without journal entries.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()

	m.journalMu.RLock()
	referenced := len(m.byAccount[id]) > 0
	m.journalMu.RUnlock()
	if referenced {
		return models.ErrAccountInUse
	}

	if err := m.record(walRecord{Op: opClose, AccountID: id}); err != nil {
		return err
	}
	m.removeAccount(id)
	return nil
}

// Close closes the recorder when it owns a file.
func (m *MemoryStore) Close() error {
	if c, ok := m.recorder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ AccountStore = (*MemoryStore)(nil)
