package models

import "errors"

var (
	// ErrInvalidAmount amount is missing, non-integer or not positive
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound unknown account id or scan code
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientFunds debit exceeds the current balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateScanCode scan code already assigned to another account
	ErrDuplicateScanCode = errors.New("scan code already exists")

	// ErrAccountInUse account still referenced by journal entries
	ErrAccountInUse = errors.New("account has journal entries")

	// ErrStorageUnavailable storage layer failed; nothing was committed
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrorCode returns the taxonomy name reported to API clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrDuplicateScanCode):
		return "DuplicateScanCode"
	case errors.Is(err, ErrAccountInUse):
		return "AccountInUse"
	case errors.Is(err, ErrStorageUnavailable):
		return "StorageUnavailable"
	default:
		return "Internal"
	}
}
