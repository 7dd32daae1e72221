// Package sqlstore serves the settings store from the local SQLite database.
// Changes are discovered by polling the revision column.
package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/what2eat/internal/database"
	"github.com/edgard/what2eat/internal/settings"
)

// DefaultPollInterval is used when a non-positive interval is given.
const DefaultPollInterval = 5 * time.Second

// Store implements settings.Store on top of database.Store.
type Store struct {
	db       database.Store
	closer   *sqlx.DB
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	lastRev int64
	known   map[string]bool
}

// Open opens (and migrates) the SQLite database at path.
func Open(path string, interval time.Duration, logger *slog.Logger) (*Store, error) {
	db, err := database.NewDB(path)
	if err != nil {
		return nil, err
	}
	s := New(database.NewStore(db, logger), interval, logger)
	s.closer = db
	return s, nil
}

// New wraps an existing database store.
func New(db database.Store, interval time.Duration, logger *slog.Logger) *Store {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:       db,
		interval: interval,
		logger:   logger.With("component", "sqlstore"),
		known:    make(map[string]bool),
	}
}

// Database exposes the underlying store for maintenance tasks.
func (s *Store) Database() database.Store {
	return s.db
}

func (s *Store) Snapshot(ctx context.Context) ([]settings.Entry, error) {
	rev, err := s.db.MaxRevision(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.ListSettings(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRev = rev
	s.known = make(map[string]bool, len(rows))

	entries := make([]settings.Entry, 0, len(rows))
	for _, row := range rows {
		if !settings.ValidScope(row.Scope) {
			continue
		}
		s.known[id(row.Scope, row.Key)] = true
		entries = append(entries, settings.Entry{Scope: row.Scope, Key: row.Key, Value: json.RawMessage(row.Value)})
	}
	return entries, nil
}

// Poll reads rows changed since the last snapshot or poll and converts them
// into events.
func (s *Store) Poll(ctx context.Context) ([]settings.Event, error) {
	s.mu.Lock()
	since := s.lastRev
	s.mu.Unlock()

	rows, err := s.db.ListSettingsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var events []settings.Event
	for _, row := range rows {
		if row.Revision > s.lastRev {
			s.lastRev = row.Revision
		}
		if !settings.ValidScope(row.Scope) {
			continue
		}
		k := id(row.Scope, row.Key)
		entry := settings.Entry{Scope: row.Scope, Key: row.Key}
		switch {
		case row.Deleted:
			if !s.known[k] {
				continue
			}
			delete(s.known, k)
			events = append(events, settings.Event{Kind: settings.ChildRemoved, Entry: entry})
		case s.known[k]:
			entry.Value = json.RawMessage(row.Value)
			events = append(events, settings.Event{Kind: settings.ChildChanged, Entry: entry})
		default:
			s.known[k] = true
			entry.Value = json.RawMessage(row.Value)
			events = append(events, settings.Event{Kind: settings.ChildAdded, Entry: entry})
		}
	}
	return events, nil
}

func (s *Store) Watch(ctx context.Context, fn func(settings.Event)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			events, err := s.Poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.WarnContext(ctx, "Settings poll failed", "error", err)
				continue
			}
			for _, ev := range events {
				fn(ev)
			}
		}
	}
}

func (s *Store) Put(ctx context.Context, e settings.Entry) error {
	if !settings.ValidScope(e.Scope) {
		return fmt.Errorf("%w: %s", settings.ErrUnknownScope, e.Scope)
	}
	if !json.Valid(e.Value) {
		return fmt.Errorf("setting %s/%s has an invalid JSON value", e.Scope, e.Key)
	}
	_, err := s.db.UpsertSetting(ctx, e.Scope, e.Key, string(e.Value))
	return err
}

func (s *Store) Delete(ctx context.Context, scope, key string) error {
	if !settings.ValidScope(scope) {
		return fmt.Errorf("%w: %s", settings.ErrUnknownScope, scope)
	}
	return s.db.DeleteSetting(ctx, scope, key)
}

func (s *Store) Close(context.Context) error {
	if s.closer != nil {
		database.CloseDB(s.closer)
	}
	return nil
}

func id(scope, key string) string {
	return scope + "\x00" + key
}
