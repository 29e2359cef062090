// Package wal is an append-only JSON-lines log used to make the memory store durable.
package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileMode rw-r--r--
const FileMode fs.FileMode = 0644

// ErrUnusable is returned by Write after a failed append could not be rolled back.
var ErrUnusable = errors.New("write-ahead log unusable")

// logFile is the part of *os.File the log needs.
type logFile interface {
	io.ReadWriteSeeker
	Sync() error
	Truncate(size int64) error
	Close() error
}

// WAL appends one JSON document per line and syncs after every record.
type WAL struct {
	file logFile
	mu   sync.Mutex
	size int64 // end of the last complete record
	err  error
}

// Open opens or creates the log at path.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileMode)
	if err != nil {
		return nil, err
	}
	w, err := newWAL(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func newWAL(file logFile) (*WAL, error) {
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file, size: size}, nil
}

// Write appends v and forces it to disk. A record is durable once Write returns nil.
// When the write or the sync fails the file is cut back to the previous record,
// so a failed Write never shows up on replay.
func (w *WAL) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}

	_, err = w.file.Write(data)
	if err == nil {
		err = w.file.Sync()
	}
	if err != nil {
		w.rollback()
		return err
	}
	w.size += int64(len(data))
	return nil
}

// rollback drops whatever a failed append left behind. If that fails too the
// log stops accepting writes.
func (w *WAL) rollback() {
	if err := w.file.Truncate(w.size); err != nil {
		w.err = fmt.Errorf("%w: rollback to offset %d: %v", ErrUnusable, w.size, err)
	}
}

// ReadAll feeds every record to callback in write order.
// A torn final line (crash mid-write) is cut off so later appends start clean.
func (w *WAL) ReadAll(callback func(raw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var offset int64
	reader := bufio.NewReader(w.file)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			w.size = offset
			if len(line) > 0 {
				return w.file.Truncate(offset)
			}
			return nil
		}
		if err != nil {
			return err
		}
		offset += int64(len(line))
		if len(line) <= 1 {
			continue
		}
		if err := callback(line); err != nil {
			return err
		}
	}
}

// Close closes the file.
func (w *WAL) Close() error {
	return w.file.Close()
}
