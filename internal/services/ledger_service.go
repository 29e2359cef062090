package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolpoints/backend/internal/audit"
	"github.com/schoolpoints/backend/internal/models"
	"github.com/schoolpoints/backend/internal/store"
)

// LedgerService resolves scan codes and posts credits and debits.
// Balance rules are checked by the store inside its per-account critical section.
type LedgerService struct {
	store  store.AccountStore
	audit  audit.Logger
	logger *zap.Logger
}

func NewLedgerService(accounts store.AccountStore, auditLogger audit.Logger, logger *zap.Logger) *LedgerService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		store:  accounts,
		audit:  auditLogger,
		logger: logger,
	}
}

// Lookup returns the till projection of the account holding scanCode.
func (s *LedgerService) Lookup(ctx context.Context, scanCode string) (*models.AccountView, error) {
	account, err := s.store.FindByScanCode(ctx, scanCode)
	if err != nil {
		return nil, err
	}
	return account.View(), nil
}

// Credit adds amount points and returns the new balance.
func (s *LedgerService) Credit(ctx context.Context, accountID, amount int64, reference string) (int64, error) {
	return s.post(ctx, models.EntryCredit, accountID, amount, reference)
}

// Subtract removes amount points and returns the new balance.
// It fails with models.ErrInsufficientFunds rather than going below zero.
func (s *LedgerService) Subtract(ctx context.Context, accountID, amount int64, reference string) (int64, error) {
	return s.post(ctx, models.EntryDebit, accountID, amount, reference)
}

func (s *LedgerService) post(ctx context.Context, kind models.EntryKind, accountID, amount int64, reference string) (int64, error) {
	if reference == "" {
		reference = uuid.NewString()
	}

	if amount <= 0 {
		s.reject(reference, accountID, kind, amount, models.ErrInvalidAmount)
		return 0, models.ErrInvalidAmount
	}

	entry := &models.JournalEntry{
		Kind:      kind,
		Amount:    amount,
		Reference: reference,
	}
	balance, err := s.store.ApplyDelta(ctx, accountID, kind.Signed(amount), entry)
	if err != nil {
		s.reject(reference, accountID, kind, amount, err)
		return 0, err
	}

	s.logger.Info("[LEDGER] posting committed",
		zap.String("kind", string(kind)),
		zap.Int64("account_id", accountID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
		zap.Int64("entry_id", entry.ID),
		zap.String("reference", reference),
	)
	s.audit.LogPosting(reference, accountID, string(kind), amount, balance)
	return balance, nil
}

func (s *LedgerService) reject(reference string, accountID int64, kind models.EntryKind, amount int64, err error) {
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.Int64("account_id", accountID),
		zap.Int64("amount", amount),
		zap.String("reference", reference),
		zap.Error(err),
	}
	if errors.Is(err, models.ErrStorageUnavailable) {
		s.logger.Error("[LEDGER] posting failed", fields...)
	} else {
		s.logger.Warn("[LEDGER] posting rejected", fields...)
	}
	s.audit.LogRejection(reference, accountID, string(kind), amount, err)
}

// OpenAccount creates an account.
func (s *LedgerService) OpenAccount(ctx context.Context, req models.NewAccount) (*models.Account, error) {
	if req.InitialBalance < 0 {
		return nil, models.ErrInvalidAmount
	}

	account, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("[LEDGER] account opened",
		zap.Int64("account_id", account.ID),
		zap.String("scan_code", account.ScanCode),
		zap.Int64("initial_balance", account.InitialBalance))
	s.audit.LogOperation(account.ScanCode, account.ID, "OPEN",
		fmt.Sprintf("initial balance %d", account.InitialBalance))
	return account, nil
}

// CloseAccount deletes an account that has no journal entries.
func (s *LedgerService) CloseAccount(ctx context.Context, accountID int64) error {
	if err := s.store.Delete(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info("[LEDGER] account closed", zap.Int64("account_id", accountID))
	s.audit.LogOperation("", accountID, "CLOSE", "")
	return nil
}

// History returns the account's journal, oldest first.
func (s *LedgerService) History(ctx context.Context, accountID int64) ([]models.JournalEntry, error) {
	return s.store.Entries(ctx, accountID)
}

// Reconcile replays the journal from the opening balance and compares it with
// the stored balance. Disagreement is reported, never repaired.
func (s *LedgerService) Reconcile(ctx context.Context, accountID int64) (*models.Reconciliation, error) {
	account, entries, err := s.store.Statement(ctx, accountID)
	if err != nil {
		return nil, err
	}

	replayed := models.Replay(account.InitialBalance, entries)
	result := &models.Reconciliation{
		AccountID:      account.ID,
		InitialBalance: account.InitialBalance,
		StoredBalance:  account.Balance,
		JournalBalance: replayed,
		Entries:        len(entries),
		Consistent:     replayed == account.Balance,
	}
	if !result.Consistent {
		s.logger.Error("[LEDGER] journal does not match stored balance",
			zap.Int64("account_id", accountID),
			zap.Int64("stored", account.Balance),
			zap.Int64("journal", replayed))
	}
	return result, nil
}
