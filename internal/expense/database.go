package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const expenseBucket = "expenses"

// Query selects a subset of the record set. Zero values leave a dimension
// unconstrained.
type Query struct {
	From     time.Time // inclusive lower bound on Date
	To       time.Time // inclusive upper bound on Date
	Category Category
	Vendor   string // case-insensitive substring match
}

// Matches reports whether a record falls inside the query
func (q Query) Matches(r *Record) bool {
	if !q.From.IsZero() && r.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && r.Date.After(q.To) {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.Vendor != "" && !strings.Contains(strings.ToLower(r.Vendor), strings.ToLower(q.Vendor)) {
		return false
	}
	return true
}

// Store defines the interface for expense persistence
type Store interface {
	// CreateExpense atomically persists a new record; it becomes visible to
	// readers as a whole or not at all
	CreateExpense(record *Record) error

	// GetExpense retrieves a record by ID
	GetExpense(id string) (*Record, error)

	// UpdateExpense applies mutate to the stored record inside a single
	// write transaction and returns the updated record. The record's
	// Version is bumped on every applied write.
	UpdateExpense(id string, mutate func(*Record) error) (*Record, error)

	// ListExpenses returns the records matching q from one consistent
	// snapshot, sorted by date ascending with ties broken by ID
	ListExpenses(q Query) ([]*Record, error)

	// DeleteExpense removes a record
	DeleteExpense(id string) error

	// Close closes the store
	Close() error
}

// BoltStore implements the Store interface using BoltDB. Write transactions
// are short (a single record merge; extraction never happens inside one) and
// readers run against MVCC snapshots, so queries never observe a half-applied
// correction and never block uploads.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore instance
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening boltdb: %v", ErrStoreUnavailable, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(expenseBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating bucket: %v", ErrStoreUnavailable, err)
	}

	return &BoltStore{db: db}, nil
}

// CreateExpense atomically persists a new record
func (b *BoltStore) CreateExpense(record *Record) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(record.ID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetExpense retrieves a record by ID
func (b *BoltStore) GetExpense(id string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return record, nil
}

// UpdateExpense applies mutate to the stored record inside one write
// transaction. Concurrent updates to the same record serialize here and
// resolve last-write-wins on the fields each write actually touches.
func (b *BoltStore) UpdateExpense(id string, mutate func(*Record) error) (*Record, error) {
	var updated *Record
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("%w: unmarshaling record: %v", ErrStoreUnavailable, err)
		}
		if err := mutate(&record); err != nil {
			return err
		}
		record.Version++
		out, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("%w: marshaling record: %v", ErrStoreUnavailable, err)
		}
		if err := bucket.Put([]byte(id), out); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		updated = &record
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		if updated != nil {
			// commit failed after a clean mutate
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		// mutate's own error passes through untouched
		return nil, err
	}
	return updated, nil
}

// ListExpenses returns matching records from one read snapshot, sorted by
// date ascending with ties broken by ID
func (b *BoltStore) ListExpenses(q Query) ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			if q.Matches(&record) {
				records = append(records, &record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	SortRecords(records)
	return records, nil
}

// DeleteExpense removes a record
func (b *BoltStore) DeleteExpense(id string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the database connection
func (b *BoltStore) Close() error {
	return b.db.Close()
}

// SortRecords orders records by date ascending, ties broken by ID. This is
// the canonical ordering for queries and exports.
func SortRecords(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ID < records[j].ID
	})
}
