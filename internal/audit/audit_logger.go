// Package audit writes one structured event per ledger mutation attempt.
package audit

import (
	"time"

	"go.uber.org/zap"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Reference string    `json:"reference"`
	AccountID int64     `json:"account_id"`
	Amount    int64     `json:"amount"`
	Balance   int64     `json:"balance"`
	Status    string    `json:"status"`
	Details   string    `json:"details,omitempty"`
}

// Logger is what the ledger needs from an audit sink.
type Logger interface {
	LogPosting(reference string, accountID int64, kind string, amount, balance int64)
	LogRejection(reference string, accountID int64, kind string, amount int64, err error)
	LogOperation(reference string, accountID int64, operation, details string)
}

type ZapAuditLogger struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	return &ZapAuditLogger{
		logger: logger.Named("audit"),
		now:    time.Now,
	}
}

func (a *ZapAuditLogger) LogPosting(reference string, accountID int64, kind string, amount, balance int64) {
	a.log(Event{
		Timestamp: a.now(),
		EventType: kind,
		Reference: reference,
		AccountID: accountID,
		Amount:    amount,
		Balance:   balance,
		Status:    StatusSuccess,
	})
}

func (a *ZapAuditLogger) LogRejection(reference string, accountID int64, kind string, amount int64, err error) {
	a.log(Event{
		Timestamp: a.now(),
		EventType: kind,
		Reference: reference,
		AccountID: accountID,
		Amount:    amount,
		Status:    StatusFailed,
		Details:   err.Error(),
	})
}

func (a *ZapAuditLogger) LogOperation(reference string, accountID int64, operation, details string) {
	a.log(Event{
		Timestamp: a.now(),
		EventType: operation,
		Reference: reference,
		AccountID: accountID,
		Status:    StatusSuccess,
		Details:   details,
	})
}

func (a *ZapAuditLogger) log(event Event) {
	a.logger.Info("AUDIT",
		zap.Time("event_time", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.String("reference", event.Reference),
		zap.Int64("account_id", event.AccountID),
		zap.Int64("amount", event.Amount),
		zap.Int64("balance", event.Balance),
		zap.String("status", event.Status),
		zap.String("details", event.Details),
	)
}

// Nop discards every event.
type Nop struct{}

func (Nop) LogPosting(string, int64, string, int64, int64) {}
func (Nop) LogRejection(string, int64, string, int64, error) {}
func (Nop) LogOperation(string, int64, string, string) {}
