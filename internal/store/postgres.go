package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/schoolpoints/backend/internal/models"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// journalLockKey is the advisory lock held while a journal entry is stamped.
const journalLockKey int64 = 0x706f696e7473

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              BIGSERIAL PRIMARY KEY,
	scan_code       TEXT        NOT NULL UNIQUE,
	display_name    TEXT        NOT NULL DEFAULT '',
	group_label     TEXT        NOT NULL DEFAULT '',
	balance         BIGINT      NOT NULL CHECK (balance >= 0),
	initial_balance BIGINT      NOT NULL CHECK (initial_balance >= 0),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS transactions (
	id            BIGSERIAL PRIMARY KEY,
	account_id    BIGINT      NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
	kind          TEXT        NOT NULL CHECK (kind IN ('credit', 'debit')),
	amount        BIGINT      NOT NULL CHECK (amount > 0),
	reference     TEXT        NOT NULL,
	balance_after BIGINT      NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS transactions_account_id_idx ON transactions (account_id, id);
`

const accountColumns = `id, scan_code, display_name, group_label, balance, initial_balance, created_at, updated_at`

// PostgresStore keeps accounts and the journal in PostgreSQL.
// Per-account serialization comes from SELECT ... FOR UPDATE row locks.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: time.Now,
	}
}

// EnsureSchema creates the accounts and transactions tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return storageErr(err)
	}
	return nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var acc models.Account
	err := row.Scan(&acc.ID, &acc.ScanCode, &acc.DisplayName, &acc.GroupLabel,
		&acc.Balance, &acc.InitialBalance, &acc.CreatedAt, &acc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &acc, nil
}

// FindByScanCode looks an account up by scan code.
func (s *PostgresStore) FindByScanCode(ctx context.Context, code string) (*models.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE scan_code = $1`, code))
}

// FindByID looks an account up by id.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// Create inserts a new account; the unique index on scan_code rejects duplicates.
func (s *PostgresStore) Create(ctx context.Context, acc models.NewAccount) (*models.Account, error) {
	if acc.InitialBalance < 0 {
		return nil, models.ErrInvalidAmount
	}

	now := s.now()
	account := &models.Account{
		ScanCode:       acc.ScanCode,
		DisplayName:    acc.DisplayName,
		GroupLabel:     acc.GroupLabel,
		Balance:        acc.InitialBalance,
		InitialBalance: acc.InitialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (scan_code, display_name, group_label, balance, initial_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, $5, $5)
		RETURNING id`,
		acc.ScanCode, acc.DisplayName, acc.GroupLabel, acc.InitialBalance, now).Scan(&account.ID)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return nil, models.ErrDuplicateScanCode
		}
		return nil, storageErr(err)
	}
	return account, nil
}

// ApplyDelta locks the account row, checks the result and writes balance and
// journal entry in one transaction. Any failure rolls both back.
// Postings on different accounts only wait on each other for the journal insert.
func (s *PostgresStore) ApplyDelta(ctx context.Context, id int64, delta int64, entry *models.JournalEntry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr(err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, storageErr(err)
	}

	next, err := checkDelta(balance, delta)
	if err != nil {
		return balance, err
	}

	// ids and timestamps are handed out under one lock, so journal order and
	// time order agree across accounts
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, journalLockKey); err != nil {
		return balance, storageErr(err)
	}

	committed := *entry
	committed.AccountID = id
	committed.BalanceAfter = next
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (account_id, kind, amount, reference, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5,
			GREATEST($6::timestamptz, COALESCE((SELECT created_at FROM transactions ORDER BY id DESC LIMIT 1), $6::timestamptz)))
		RETURNING id, created_at`,
		id, string(committed.Kind), committed.Amount, committed.Reference, next, s.now()).
		Scan(&committed.ID, &committed.CreatedAt)
	if err != nil {
		return balance, storageErr(err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`,
		next, committed.CreatedAt, id); err != nil {
		return balance, storageErr(err)
	}

	if err := tx.Commit(); err != nil {
		return balance, storageErr(err)
	}

	*entry = committed
	return next, nil
}

// Entries returns the account's journal in id order.
func (s *PostgresStore) Entries(ctx context.Context, id int64) ([]models.JournalEntry, error) {
	_, entries, err := s.Statement(ctx, id)
	return entries, err
}

// Statement reads the account and its journal from one snapshot.
func (s *PostgresStore) Statement(ctx context.Context, id int64) (*models.Account, []models.JournalEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, storageErr(err)
	}
	defer tx.Rollback()

	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, account_id, kind, amount, reference, balance_after, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.AccountID, &kind, &e.Amount, &e.Reference, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, nil, storageErr(err)
		}
		e.Kind = models.EntryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, storageErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, storageErr(err)
	}
	return account, entries, nil
}

// Delete removes an account; the foreign key keeps referenced accounts in place.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return models.ErrAccountInUse
		}
		return storageErr(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ AccountStore = (*PostgresStore)(nil)
