package audit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAuditLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := NewZapAuditLogger(zap.New(core))

	a.LogPosting("ref-1", 1, "credit", 50, 1050)
	a.LogRejection("ref-2", 1, "debit", 5000, errors.New("insufficient funds"))
	a.LogOperation("TEST123", 1, "OPEN", "initial balance 1000")

	entries := logs.FilterMessage("AUDIT").All()
	require.Len(t, entries, 3)

	posting := entries[0].ContextMap()
	assert.Equal(t, "credit", posting["event_type"])
	assert.Equal(t, "ref-1", posting["reference"])
	assert.Equal(t, int64(1050), posting["balance"])
	assert.Equal(t, StatusSuccess, posting["status"])

	rejection := entries[1].ContextMap()
	assert.Equal(t, StatusFailed, rejection["status"])
	assert.Equal(t, "insufficient funds", rejection["details"])

	assert.Equal(t, "OPEN", entries[2].ContextMap()["event_type"])
	assert.Equal(t, "audit", entries[0].LoggerName)
}

func TestNop(t *testing.T) {
	var l Logger = Nop{}
	assert.NotPanics(t, func() {
		l.LogPosting("r", 1, "credit", 1, 1)
		l.LogRejection("r", 1, "debit", 1, errors.New("x"))
		l.LogOperation("r", 1, "CLOSE", "")
	})
}
