package database

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// NewBadgerDB open embedded badger, path "" opens an in-memory db
func NewBadgerDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open [%s]: %w", path, err)
	}
	return db, nil
}
