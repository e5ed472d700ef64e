// Package snapshot persists the last known rule set per list in a local
// Bolt database. The advisory read path falls back to it when the primary
// store is unreachable, so a restart or a database outage degrades to
// slightly stale rules instead of no rules at all.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var bucketLists = []byte("lists")

// Store is a bbolt-backed snapshot store keyed by list ID.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) a Bolt database at path and ensures the bucket
// exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLists)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put replaces the stored snapshot for listID.
func (s *Store) Put(listID string, snap RuleSnapshot) error {
	if listID == "" {
		return fmt.Errorf("list id is empty")
	}
	data, err := json.Marshal(encodeSnapshot(snap))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLists).Put([]byte(listID), data)
	})
}

// Get returns the stored snapshot for listID. The second return is false
// when no snapshot has ever been written for the list.
func (s *Store) Get(listID string) (RuleSnapshot, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketLists).Get([]byte(listID)); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return RuleSnapshot{}, false, err
	}
	if raw == nil {
		return RuleSnapshot{}, false, nil
	}
	var stored storedSnapshot
	if err := json.Unmarshal(raw, &stored); err != nil {
		return RuleSnapshot{}, false, fmt.Errorf("snapshot for list %s is corrupt: %w", listID, err)
	}
	snap, err := decodeSnapshot(stored)
	if err != nil {
		return RuleSnapshot{}, false, err
	}
	return snap, true, nil
}

// Delete removes the stored snapshot for listID. Deleting a missing key is
// not an error.
func (s *Store) Delete(listID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLists).Delete([]byte(listID))
	})
}

// Lists returns the IDs of every list with a stored snapshot.
func (s *Store) Lists() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLists).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}
