// Package history persists finished coaching sessions, newest first, as one
// JSON list under a fixed key in a local badger database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/rbright/lectern/internal/coach"
)

const (
	sessionsKey = "sessions"
	// DefaultLimit bounds how many records are kept.
	DefaultLimit = 50
)

// ErrNotFound reports an unknown record ID.
var ErrNotFound = errors.New("history: session not found")

// Record is one analyzed session.
type Record struct {
	ID              string               `json:"id"`
	Date            time.Time            `json:"date"`
	Scenario        string               `json:"scenario"`
	LeadershipStyle string               `json:"leadershipStyle"`
	Analysis        coach.SpeechAnalysis `json:"analysis"`
	WPM             int                  `json:"wpm"`
	// Duration is the capture length in whole seconds.
	Duration      int    `json:"duration"`
	Transcript    string `json:"liveTranscript,omitempty"`
	RecordingPath string `json:"recordingPath,omitempty"`
}

// Options tune a Store.
type Options struct {
	// Limit caps the stored list; non-positive uses DefaultLimit.
	Limit int
	// InMemory keeps the database off disk.
	InMemory bool
	Now      func() time.Time
	NewID    func() string
}

// Store is the session history.
type Store struct {
	db    *badger.DB
	limit int
	now   func() time.Time
	newID func() string
}

// Open opens (or creates) the history database at dir.
func Open(dir string, opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Store{db: db, limit: opts.Limit, now: opts.Now, newID: opts.NewID}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save prepends record, filling ID and Date when empty, and trims the list
// to the configured limit. It returns the stored record.
func (s *Store) Save(record Record) (Record, error) {
	if strings.TrimSpace(record.ID) == "" {
		record.ID = s.newID()
	}
	if record.Date.IsZero() {
		record.Date = s.now().UTC()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		records, err := load(txn)
		if err != nil {
			return err
		}
		records = append([]Record{record}, records...)
		if len(records) > s.limit {
			records = records[:s.limit]
		}
		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("encode sessions: %w", err)
		}
		return txn.Set([]byte(sessionsKey), data)
	})
	if err != nil {
		return Record{}, fmt.Errorf("save session: %w", err)
	}
	return record, nil
}

// List returns up to limit records, newest first. Non-positive limit returns all.
func (s *Store) List(limit int) ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		records, err = load(txn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Get returns the record with id. A unique ID prefix is accepted.
func (s *Store) Get(id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	records, err := s.List(0)
	if err != nil {
		return Record{}, err
	}

	var match *Record
	for i := range records {
		if records[i].ID == id {
			return records[i], nil
		}
		if strings.HasPrefix(records[i].ID, id) {
			if match != nil {
				return Record{}, fmt.Errorf("history: id prefix %q is ambiguous", id)
			}
			match = &records[i]
		}
	}
	if match == nil {
		return Record{}, ErrNotFound
	}
	return *match, nil
}

func load(txn *badger.Txn) ([]Record, error) {
	item, err := txn.Get([]byte(sessionsKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &records)
	})
	if err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return records, nil
}
