package wal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Op     string `json:"op"`
	Amount int64  `json:"amount"`
}

func readRecords(t *testing.T, w *WAL) []record {
	t.Helper()
	var out []record
	err := w.ReadAll(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestWAL_WriteAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(record{Op: "post", Amount: 50}))
	require.NoError(t, w.Write(record{Op: "post", Amount: 200}))
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []record{{"post", 50}, {"post", 200}}, readRecords(t, w))

	t.Run("appends after reading", func(t *testing.T) {
		require.NoError(t, w.Write(record{Op: "close", Amount: 0}))
		assert.Len(t, readRecords(t, w), 3)
	})
}

func TestWAL_TornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(record{Op: "post", Amount: 1}))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, FileMode)
	require.NoError(t, err)
	_, err = f.WriteString(`{"op":"post","amo`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w, err = Open(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []record{{"post", 1}}, readRecords(t, w))

	require.NoError(t, w.Write(record{Op: "post", Amount: 2}))
	assert.Equal(t, []record{{"post", 1}, {"post", 2}}, readRecords(t, w))
}

func TestWAL_EmptyFile(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "empty.wal"))
	require.NoError(t, err)
	defer w.Close()

	assert.Empty(t, readRecords(t, w))
}

func TestWAL_CallbackError(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "ledger.wal"))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Write(record{Op: "post", Amount: 1}))

	err = w.ReadAll(func(raw []byte) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

// faultyFile fails selected operations on top of a real file.
type faultyFile struct {
	*os.File
	shortWrite   bool
	failSync     bool
	failTruncate bool
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.shortWrite {
		n, _ := f.File.Write(p[:len(p)/2])
		return n, errors.New("no space left on device")
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.failSync {
		return errors.New("input/output error")
	}
	return f.File.Sync()
}

func (f *faultyFile) Truncate(size int64) error {
	if f.failTruncate {
		return errors.New("read-only file system")
	}
	return f.File.Truncate(size)
}

func openFaulty(t *testing.T, path string) (*WAL, *faultyFile) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileMode)
	require.NoError(t, err)
	faulty := &faultyFile{File: file}
	w, err := newWAL(faulty)
	require.NoError(t, err)
	return w, faulty
}

func TestWAL_FailedWriteIsRolledBack(t *testing.T) {
	tests := []struct {
		name   string
		inject func(f *faultyFile)
	}{
		{"short write", func(f *faultyFile) { f.shortWrite = true }},
		{"sync failure", func(f *faultyFile) { f.failSync = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger.wal")
			w, faulty := openFaulty(t, path)

			require.NoError(t, w.Write(record{Op: "post", Amount: 1}))

			tt.inject(faulty)
			assert.Error(t, w.Write(record{Op: "post", Amount: 2}))
			*faulty = faultyFile{File: faulty.File}

			require.NoError(t, w.Write(record{Op: "post", Amount: 3}))
			require.NoError(t, w.Close())

			reopened, err := Open(path)
			require.NoError(t, err)
			defer reopened.Close()
			assert.Equal(t, []record{{"post", 1}, {"post", 3}}, readRecords(t, reopened))
		})
	}
}

func TestWAL_UnusableAfterFailedRollback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	w, faulty := openFaulty(t, path)
	defer w.Close()

	require.NoError(t, w.Write(record{Op: "post", Amount: 1}))

	faulty.shortWrite = true
	faulty.failTruncate = true
	assert.Error(t, w.Write(record{Op: "post", Amount: 2}))

	faulty.shortWrite = false
	faulty.failTruncate = false
	err := w.Write(record{Op: "post", Amount: 3})
	assert.ErrorIs(t, err, ErrUnusable)
}
