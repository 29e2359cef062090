package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/schoolpoints/backend/internal/models"
)

// sqliteAccount maps the accounts table
type sqliteAccount struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	ScanCode       string `gorm:"uniqueIndex;not null"`
	DisplayName    string `gorm:"not null;default:''"`
	GroupLabel     string `gorm:"not null;default:''"`
	Balance        int64  `gorm:"not null"`
	InitialBalance int64  `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (*sqliteAccount) TableName() string {
	return "accounts"
}

func (a *sqliteAccount) toModel() *models.Account {
	return &models.Account{
		ID:             a.ID,
		ScanCode:       a.ScanCode,
		DisplayName:    a.DisplayName,
		GroupLabel:     a.GroupLabel,
		Balance:        a.Balance,
		InitialBalance: a.InitialBalance,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// sqliteTransaction maps the transactions table
type sqliteTransaction struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	AccountID    int64  `gorm:"not null;index"`
	Kind         string `gorm:"type:varchar(6);not null"`
	Amount       int64  `gorm:"not null"`
	Reference    string `gorm:"not null"`
	BalanceAfter int64  `gorm:"not null"`
	CreatedAt    time.Time
}

func (*sqliteTransaction) TableName() string {
	return "transactions"
}

func (t *sqliteTransaction) toModel() models.JournalEntry {
	return models.JournalEntry{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Kind:         models.EntryKind(t.Kind),
		Amount:       t.Amount,
		Reference:    t.Reference,
		BalanceAfter: t.BalanceAfter,
		CreatedAt:    t.CreatedAt,
	}
}

// SQLiteStore keeps accounts and the journal in a SQLite file through gorm.
//
// SQLite allows a single writer, so the pool is limited to one connection and
// every ApplyDelta runs as one gorm transaction on it.
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLiteStore migrates the schema and returns the store.
func NewSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&sqliteAccount{}, &sqliteTransaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// classify passes ledger errors through and marks everything else as a storage failure.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrDuplicateScanCode),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrAccountInUse),
		errors.Is(err, models.ErrStorageUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.ErrDuplicateScanCode
	default:
		return storageErr(err)
	}
}

func (s *SQLiteStore) find(ctx context.Context, query string, arg any) (*models.Account, error) {
	var acc sqliteAccount
	if err := s.db.WithContext(ctx).Where(query, arg).First(&acc).Error; err != nil {
		return nil, classify(err)
	}
	return acc.toModel(), nil
}

// FindByScanCode looks an account up by scan code.
func (s *SQLiteStore) FindByScanCode(ctx context.Context, code string) (*models.Account, error) {
	return s.find(ctx, "scan_code = ?", code)
}

// FindByID looks an account up by id.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.find(ctx, "id = ?", id)
}

// Create inserts a new account.
func (s *SQLiteStore) Create(ctx context.Context, acc models.NewAccount) (*models.Account, error) {
	if acc.InitialBalance < 0 {
		return nil, models.ErrInvalidAmount
	}

	now := s.now()
	row := sqliteAccount{
		ScanCode:       acc.ScanCode,
		DisplayName:    acc.DisplayName,
		GroupLabel:     acc.GroupLabel,
		Balance:        acc.InitialBalance,
		InitialBalance: acc.InitialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&sqliteAccount{}).Where("scan_code = ?", acc.ScanCode).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.ErrDuplicateScanCode
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, classify(err)
	}
	return row.toModel(), nil
}

// ApplyDelta updates the balance and inserts the journal row in one transaction.
func (s *SQLiteStore) ApplyDelta(ctx context.Context, id int64, delta int64, entry *models.JournalEntry) (int64, error) {
	var balance, next int64
	committed := *entry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc sqliteAccount
		if err := tx.First(&acc, id).Error; err != nil {
			return err
		}
		balance = acc.Balance

		var err error
		next, err = checkDelta(acc.Balance, delta)
		if err != nil {
			return err
		}

		now := s.now()
		if err := tx.Model(&sqliteAccount{}).Where("id = ?", id).
			Updates(map[string]any{"balance": next, "updated_at": now}).Error; err != nil {
			return err
		}

		row := sqliteTransaction{
			AccountID:    id,
			Kind:         string(committed.Kind),
			Amount:       committed.Amount,
			Reference:    committed.Reference,
			BalanceAfter: next,
			CreatedAt:    now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		committed = row.toModel()
		return nil
	})
	if err != nil {
		return balance, classify(err)
	}

	*entry = committed
	return next, nil
}

// Entries returns the account's journal in insertion order.
func (s *SQLiteStore) Entries(ctx context.Context, id int64) ([]models.JournalEntry, error) {
	_, entries, err := s.Statement(ctx, id)
	return entries, err
}

// Statement reads the account and its journal in one transaction.
func (s *SQLiteStore) Statement(ctx context.Context, id int64) (*models.Account, []models.JournalEntry, error) {
	var acc sqliteAccount
	var rows []sqliteTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&acc, id).Error; err != nil {
			return err
		}
		return tx.Where("account_id = ?", id).Order("id").Find(&rows).Error
	})
	if err != nil {
		return nil, nil, classify(err)
	}

	entries := make([]models.JournalEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toModel())
	}
	return acc.toModel(), entries, nil
}

// Delete removes an account without journal entries.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&sqliteTransaction{}).Where("account_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.ErrAccountInUse
		}
		result := tx.Delete(&sqliteAccount{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	return classify(err)
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ AccountStore = (*SQLiteStore)(nil)
