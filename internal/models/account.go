package models

import (
	"time"
)

// Account is a ledger-tracked holder of points.
type Account struct {
	ID             int64     `json:"id" db:"id"`
	ScanCode       string    `json:"scanCode" db:"scan_code"`
	DisplayName    string    `json:"displayName" db:"display_name"`
	GroupLabel     string    `json:"groupLabel" db:"group_label"`
	Balance        int64     `json:"balance" db:"balance"`
	InitialBalance int64     `json:"initialBalance" db:"initial_balance"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// NewAccount carries the fields of an administrative account creation.
type NewAccount struct {
	ScanCode       string `json:"scanCode" validate:"required,max=64"`
	DisplayName    string `json:"displayName" validate:"max=200"`
	GroupLabel     string `json:"groupLabel" validate:"max=50"`
	InitialBalance int64  `json:"initialBalance" validate:"gte=0"`
}

// AccountView is the projection of an account that is safe to expose at the till.
type AccountView struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	GroupLabel  string `json:"groupLabel"`
	Balance     int64  `json:"balance"`
}

// View projects the account for external callers.
func (a *Account) View() *AccountView {
	return &AccountView{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		GroupLabel:  a.GroupLabel,
		Balance:     a.Balance,
	}
}

// Clone returns a copy that callers may keep without sharing store state.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
