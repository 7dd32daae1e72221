// Package mongostore serves the settings store from MongoDB. Each scope is a
// collection holding {_id: key, value: any} documents and changes arrive
// through a database-level change stream.
package mongostore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/edgard/what2eat/internal/settings"
)

const retryDelay = 5 * time.Second

// Server error codes meaning the stream cannot be resumed from its token.
const (
	codeCappedPositionLost   = 136
	codeChangeStreamFatal    = 280
	codeChangeStreamHistLost = 286
)

// Store implements settings.Store on MongoDB.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	startAt *primitive.Timestamp
	known   map[entryID]json.RawMessage
}

type entryID struct {
	scope string
	key   string
}

// Connect dials uri and verifies the connection against the primary.
func Connect(ctx context.Context, uri, database string, timeout time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger = logger.With("component", "mongostore")
	logger.InfoContext(ctx, "Connected to MongoDB", "database", database)
	return &Store{
		client:  client,
		db:      client.Database(database),
		timeout: timeout,
		logger:  logger,
	}, nil
}

type document struct {
	ID    string `bson:"_id"`
	Value any    `bson:"value"`
}

// Snapshot reads every scope and remembers the cluster time of the first
// read, so the next Watch replays everything written after it.
func (s *Store) Snapshot(ctx context.Context) ([]settings.Entry, error) {
	entries, startAt, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.startAt = startAt
	s.known = index(entries)
	s.mu.Unlock()
	return entries, nil
}

func (s *Store) snapshot(ctx context.Context) ([]settings.Entry, *primitive.Timestamp, error) {
	sess, err := s.client.StartSession(options.Session().SetCausalConsistency(true))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer sess.EndSession(context.Background())

	var (
		entries []settings.Entry
		startAt *primitive.Timestamp
	)
	for _, scope := range settings.Scopes {
		scopeCtx, cancel := context.WithTimeout(ctx, s.timeout)
		sctx := mongo.NewSessionContext(scopeCtx, sess)
		cursor, err := s.db.Collection(scope).Find(sctx, bson.D{})
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to read scope %s: %w", scope, err)
		}
		if startAt == nil {
			startAt = sess.OperationTime()
		}
		var docs []bson.M
		err = cursor.All(sctx, &docs)
		cancel()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode scope %s: %w", scope, err)
		}
		for _, doc := range docs {
			entry, err := entryFromDocument(scope, doc)
			if err != nil {
				s.logger.WarnContext(ctx, "Skipping malformed document", "scope", scope, "error", err)
				continue
			}
			entries = append(entries, entry)
		}
	}
	return entries, startAt, nil
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	NS            struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey  bson.M `bson:"documentKey"`
	FullDocument bson.M `bson:"fullDocument"`
}

func watchPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "ns.coll", Value: bson.D{{Key: "$in", Value: settings.Scopes}}},
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}}}},
		}}},
	}
}

// streamPosition is where the next change stream opens: after the last seen
// resume token, or else at the snapshot's cluster time.
type streamPosition struct {
	token   bson.Raw
	startAt *primitive.Timestamp
	lost    bool
}

func (p streamPosition) options() *options.ChangeStreamOptions {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	switch {
	case p.token != nil:
		opts.SetResumeAfter(p.token)
	case p.startAt != nil:
		opts.SetStartAtOperationTime(p.startAt)
	}
	return opts
}

// fail records a stream error. When the server no longer has the history
// behind the position, the position is dropped and marked lost until a fresh
// snapshot supplies a new start time.
func (p *streamPosition) fail(err error) {
	if !historyLost(err) {
		return
	}
	p.token = nil
	p.startAt = nil
	p.lost = true
}

func (p *streamPosition) restart(startAt *primitive.Timestamp) {
	p.token = nil
	p.startAt = startAt
	p.lost = false
}

func historyLost(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(codeChangeStreamHistLost) ||
		se.HasErrorCode(codeChangeStreamFatal) ||
		se.HasErrorCode(codeCappedPositionLost)
}

// Watch follows the change stream from the last snapshot. Broken streams are
// reopened from the last resume token; when the oplog no longer holds it the
// store is read again and the differences are delivered as events.
func (s *Store) Watch(ctx context.Context, fn func(settings.Event)) error {
	s.mu.Lock()
	pos := streamPosition{startAt: s.startAt}
	s.mu.Unlock()

	for {
		if pos.lost {
			startAt, err := s.resync(ctx, fn)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.ErrorContext(ctx, "Failed to reload settings", "error", err)
				if !sleep(ctx, retryDelay) {
					return nil
				}
				continue
			}
			pos.restart(startAt)
		}

		stream, err := s.db.Watch(ctx, watchPipeline(), pos.options())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.WarnContext(ctx, "Failed to open change stream", "error", err)
			pos.fail(err)
			if !sleep(ctx, retryDelay) {
				return nil
			}
			continue
		}

		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				s.logger.WarnContext(ctx, "Failed to decode change event", "error", err)
				continue
			}
			pos.token = stream.ResumeToken()
			event, ok, err := toEvent(ev)
			if err != nil {
				s.logger.WarnContext(ctx, "Skipping malformed change event", "collection", ev.NS.Coll, "error", err)
				continue
			}
			if ok {
				s.remember(event)
				fn(event)
			}
		}
		streamErr := stream.Err()
		_ = stream.Close(context.Background())

		if ctx.Err() != nil {
			return nil
		}
		s.logger.WarnContext(ctx, "Change stream interrupted", "error", streamErr)
		pos.fail(streamErr)
		if !sleep(ctx, retryDelay) {
			return nil
		}
	}
}

// resync reads the store again and delivers what changed since the entries
// last seen. It returns the cluster time to open the next stream at.
func (s *Store) resync(ctx context.Context, fn func(settings.Event)) (*primitive.Timestamp, error) {
	s.logger.WarnContext(ctx, "Change stream history lost, reloading settings")
	entries, startAt, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	events := diffEntries(s.known, entries)
	s.known = index(entries)
	s.startAt = startAt
	s.mu.Unlock()

	for _, ev := range events {
		fn(ev)
	}
	s.logger.InfoContext(ctx, "Settings reloaded", "entries", len(entries), "changes", len(events))
	return startAt, nil
}

func (s *Store) remember(ev settings.Event) {
	id := entryID{scope: ev.Entry.Scope, key: ev.Entry.Key}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known == nil {
		s.known = make(map[entryID]json.RawMessage)
	}
	if ev.Kind == settings.ChildRemoved {
		delete(s.known, id)
		return
	}
	s.known[id] = ev.Entry.Value
}

func index(entries []settings.Entry) map[entryID]json.RawMessage {
	m := make(map[entryID]json.RawMessage, len(entries))
	for _, e := range entries {
		m[entryID{scope: e.Scope, key: e.Key}] = e.Value
	}
	return m
}

// diffEntries turns the move from old to fresh into change events. Removals
// come last and in scope/key order.
func diffEntries(old map[entryID]json.RawMessage, fresh []settings.Entry) []settings.Event {
	var events []settings.Event
	seen := make(map[entryID]bool, len(fresh))
	for _, e := range fresh {
		id := entryID{scope: e.Scope, key: e.Key}
		seen[id] = true
		prev, ok := old[id]
		switch {
		case !ok:
			events = append(events, settings.Event{Kind: settings.ChildAdded, Entry: e})
		case !bytes.Equal(prev, e.Value):
			events = append(events, settings.Event{Kind: settings.ChildChanged, Entry: e})
		}
	}

	var gone []entryID
	for id := range old {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool {
		if gone[i].scope != gone[j].scope {
			return gone[i].scope < gone[j].scope
		}
		return gone[i].key < gone[j].key
	})
	for _, id := range gone {
		events = append(events, settings.Event{
			Kind:  settings.ChildRemoved,
			Entry: settings.Entry{Scope: id.scope, Key: id.key},
		})
	}
	return events
}

func (s *Store) Put(ctx context.Context, e settings.Entry) error {
	if !settings.ValidScope(e.Scope) {
		return fmt.Errorf("%w: %s", settings.ErrUnknownScope, e.Scope)
	}
	var value any
	if err := json.Unmarshal(e.Value, &value); err != nil {
		return fmt.Errorf("setting %s/%s has an invalid JSON value: %w", e.Scope, e.Key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := document{ID: e.Key, Value: value}
	_, err := s.db.Collection(e.Scope).ReplaceOne(ctx, bson.M{"_id": e.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", e.Scope, e.Key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, scope, key string) error {
	if !settings.ValidScope(scope) {
		return fmt.Errorf("%w: %s", settings.ErrUnknownScope, scope)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.Collection(scope).DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toEvent(ev changeEvent) (settings.Event, bool, error) {
	if !settings.ValidScope(ev.NS.Coll) {
		return settings.Event{}, false, nil
	}
	key, ok := ev.DocumentKey["_id"]
	if !ok {
		return settings.Event{}, false, errors.New("change event without document key")
	}
	entry := settings.Entry{Scope: ev.NS.Coll, Key: fmt.Sprint(key)}

	var kind settings.EventKind
	switch ev.OperationType {
	case "insert":
		kind = settings.ChildAdded
	case "update", "replace":
		kind = settings.ChildChanged
	case "delete":
		return settings.Event{Kind: settings.ChildRemoved, Entry: entry}, true, nil
	default:
		return settings.Event{}, false, nil
	}

	// The document can already be gone when an update is looked up.
	if ev.FullDocument == nil {
		return settings.Event{Kind: settings.ChildRemoved, Entry: entry}, true, nil
	}
	full, err := entryFromDocument(ev.NS.Coll, ev.FullDocument)
	if err != nil {
		return settings.Event{}, false, err
	}
	return settings.Event{Kind: kind, Entry: full}, true, nil
}

func entryFromDocument(scope string, doc bson.M) (settings.Entry, error) {
	id, ok := doc["_id"]
	if !ok {
		return settings.Entry{}, errors.New("document without _id")
	}
	value, err := json.Marshal(plain(doc["value"]))
	if err != nil {
		return settings.Entry{}, fmt.Errorf("failed to encode value of %v: %w", id, err)
	}
	return settings.Entry{Scope: scope, Key: fmt.Sprint(id), Value: value}, nil
}

// plain converts decoded BSON containers into maps and slices that
// encoding/json understands.
func plain(v any) any {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case primitive.A:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = plain(e)
		}
		return a
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	}
	return v
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
