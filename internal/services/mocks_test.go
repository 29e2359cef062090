package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/schoolpoints/backend/internal/models"
)

type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) FindByScanCode(ctx context.Context, code string) (*models.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountStore) Create(ctx context.Context, acc models.NewAccount) (*models.Account, error) {
	args := m.Called(ctx, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountStore) ApplyDelta(ctx context.Context, id int64, delta int64, entry *models.JournalEntry) (int64, error) {
	args := m.Called(ctx, id, delta, entry)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountStore) Entries(ctx context.Context, id int64) ([]models.JournalEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.JournalEntry), args.Error(1)
}

func (m *MockAccountStore) Statement(ctx context.Context, id int64) (*models.Account, []models.JournalEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Account), args.Get(1).([]models.JournalEntry), args.Error(2)
}

func (m *MockAccountStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogPosting(reference string, accountID int64, kind string, amount, balance int64) {
	m.Called(reference, accountID, kind, amount, balance)
}

func (m *MockAuditLogger) LogRejection(reference string, accountID int64, kind string, amount int64, err error) {
	m.Called(reference, accountID, kind, amount, err)
}

func (m *MockAuditLogger) LogOperation(reference string, accountID int64, operation, details string) {
	m.Called(reference, accountID, operation, details)
}
