// Package history persists finished call records in an embedded BadgerDB so
// conversations survive daemon restarts and can be browsed from the control
// server.
//
// Keys are "call/<unix-nano>/<session-id>", so a prefix iteration in key
// order is a chronological listing.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/retrophonic/rotaryd/internal/call"
)

const keyPrefix = "call/"

// Store is a BadgerDB-backed call log.
type Store struct {
	db *badger.DB
}

// Options configures the store.
type Options struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory skips disk persistence. Used in tests.
	InMemory bool
}

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, fmt.Errorf("history: dir is required")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(slogAdapter{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores a finished call. Implements call.RecordSink.
func (s *Store) Record(rec call.Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	key := fmt.Sprintf("%s%020d/%s", keyPrefix, rec.StartedAt.UnixNano(), rec.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
	if err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	return nil
}

// List returns the most recent calls, newest first, up to limit. A limit of
// zero or less returns everything.
func (s *Store) List(limit int) ([]call.Record, error) {
	var out []call.Record
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(keyPrefix)
		iterOpts.Reverse = true
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		// Reverse iteration seeks to the key just past the prefix range.
		seek := append([]byte(keyPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			if limit > 0 && len(out) >= limit {
				return nil
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec call.Record
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return out, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// slogAdapter routes badger's own logging into slog, dropping its chatty
// info and debug output.
type slogAdapter struct{}

func (slogAdapter) Errorf(f string, v ...interface{})   { slog.Error(fmt.Sprintf("badger: "+f, v...)) }
func (slogAdapter) Warningf(f string, v ...interface{}) { slog.Warn(fmt.Sprintf("badger: "+f, v...)) }
func (slogAdapter) Infof(string, ...interface{})        {}
func (slogAdapter) Debugf(string, ...interface{})       {}
