/*
	boltvisited package provides a bolt-backed implementation of the
	frontier.VisitedStore interface. Persisting the visited set lets the
	crawler skip URLs it has already accepted in previous runs.
*/

package boltvisited

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/sokmotor/sokmotor/frontier"
)

// Static and compile-time check to ensure VisitedStore implements the
// frontier.VisitedStore interface.
var _ frontier.VisitedStore = (*VisitedStore)(nil)

var visitedBucket = []byte("visited")

// VisitedStore persists seen URL hashes in a bolt database file.
type VisitedStore struct {
	db *bolt.DB
}

// Open creates (or re-opens) the visited-set database at path.
func Open(path string) (*VisitedStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltvisited: unable to open %q: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(visitedBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("boltvisited: unable to create bucket: %w", err)
	}

	return &VisitedStore{db: db}, nil
}

// Add records a URL hash as seen.
func (s *VisitedStore) Add(hash uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(visitedBucket).Put(hashKey(hash), []byte{1})
	})
}

// Seen reports whether a URL hash has been recorded before.
func (s *VisitedStore) Seen(hash uint64) (bool, error) {
	var seen bool
	err := s.db.View(func(tx *bolt.Tx) error {
		seen = tx.Bucket(visitedBucket).Get(hashKey(hash)) != nil
		return nil
	})

	return seen, err
}

// Close releases the underlying database file.
func (s *VisitedStore) Close() error {
	return s.db.Close()
}

func hashKey(hash uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, hash)

	return key
}
