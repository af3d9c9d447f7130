// Package audit persists a append-only record of completed firmware and
// version-probe FSM transitions to a bbolt database, for the read-only
// status API to surface. It never records in-flight state: only
// transitions that have already happened are written, so the store is
// purely a historical trail and carries no responsibility for resuming an
// interrupted update after a restart.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketTransitions = []byte("transitions")

// Entry is one recorded FSM transition.
type Entry struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Machine   string    `json:"machine"` // "firmware" or "version"
	BlobID    string    `json:"blob_id,omitempty"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// Store appends FSM transitions to a bbolt database and lists them back
// newest-first.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTransitions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a transition, assigning it the next monotonic sequence
// number in the bucket.
func (s *Store) Record(machine, blobID, from, to string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransitions)

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		entry := Entry{
			Sequence:  seq,
			Timestamp: time.Now().UTC(),
			Machine:   machine,
			BlobID:    blobID,
			From:      from,
			To:        to,
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		return b.Put(sequenceKey(seq), data)
	})
}

// Recent returns up to limit of the most recently recorded entries,
// newest first. A limit of 0 returns every entry.
func (s *Store) Recent(limit int) ([]Entry, error) {
	var entries []Entry

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransitions)
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
		return nil
	})

	return entries, err
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
