// Package settings mirrors the remotely managed bot settings (bans, per-chat
// settings and hints) into an in-process read cache.
package settings

import (
	"context"
	"encoding/json"
	"errors"
)

// Scopes are the top-level keys of the remote store.
const (
	ScopeBanned = "banned"
	ScopeGuilds = "guilds"
	ScopeHints  = "hints"
)

// Scopes lists every mirrored scope.
var Scopes = []string{ScopeBanned, ScopeGuilds, ScopeHints}

// ErrUnknownScope is returned for writes outside the mirrored scopes.
var ErrUnknownScope = errors.New("unknown settings scope")

// ValidScope reports whether scope is mirrored.
func ValidScope(scope string) bool {
	for _, s := range Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Entry is one child of a scope. Value holds a JSON document.
type Entry struct {
	Scope string
	Key   string
	Value json.RawMessage
}

// EventKind says how a child changed.
type EventKind int

const (
	ChildAdded EventKind = iota
	ChildChanged
	ChildRemoved
)

func (k EventKind) String() string {
	switch k {
	case ChildAdded:
		return "child_added"
	case ChildChanged:
		return "child_changed"
	case ChildRemoved:
		return "child_removed"
	}
	return "unknown"
}

// Event is a change notification. Value is empty for ChildRemoved.
type Event struct {
	Kind  EventKind
	Entry Entry
}

// Store is the remote key-value backend.
type Store interface {
	// Snapshot returns every child of every mirrored scope.
	Snapshot(ctx context.Context) ([]Entry, error)
	// Watch delivers change events to fn until ctx is cancelled.
	Watch(ctx context.Context, fn func(Event)) error
	// Put creates or replaces a child.
	Put(ctx context.Context, e Entry) error
	// Delete removes a child. Deleting a missing child is not an error.
	Delete(ctx context.Context, scope, key string) error
	// Close releases the backend.
	Close(ctx context.Context) error
}
