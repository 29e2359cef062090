package services

import (
	"context"
	"errors"

	"github.com/schoolpoints/backend/internal/models"
)

// DemoAccount is the account a fresh installation starts with.
var DemoAccount = models.NewAccount{
	ScanCode:       "TEST123",
	DisplayName:    "Ivan Ivanov",
	GroupLabel:     "5A",
	InitialBalance: 1000,
}

// EnsureDemoAccount opens DemoAccount unless its scan code is already taken.
// It reports whether an account was created.
func (s *LedgerService) EnsureDemoAccount(ctx context.Context) (bool, error) {
	_, err := s.Lookup(ctx, DemoAccount.ScanCode)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	if _, err := s.OpenAccount(ctx, DemoAccount); err != nil {
		if errors.Is(err, models.ErrDuplicateScanCode) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
