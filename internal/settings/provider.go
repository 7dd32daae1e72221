package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"

	"dario.cat/mergo"
)

// GuildSetting is the per-chat configuration. Zero fields fall back to the
// provider defaults.
type GuildSetting struct {
	Prefix   string   `json:"prefix,omitempty"`
	Triggers []string `json:"triggers,omitempty"`
}

// Provider owns the mirrored cache. The cache is written only by events
// coming from the Store; every reader tolerates missing keys.
type Provider struct {
	store    Store
	defaults GuildSetting
	logger   *slog.Logger

	mu     sync.RWMutex
	ready  bool
	banned map[string]bool
	guilds map[string]GuildSetting
	hints  map[string]string

	listenersMu sync.Mutex
	listeners   []func(Event)
}

// NewProvider creates a provider over store. Call Init and then Run.
func NewProvider(store Store, defaults GuildSetting, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		store:    store,
		defaults: defaults,
		logger:   logger.With("component", "settings"),
		banned:   make(map[string]bool),
		guilds:   make(map[string]GuildSetting),
		hints:    make(map[string]string),
	}
}

// Init loads the initial snapshot.
func (p *Provider) Init(ctx context.Context) error {
	entries, err := p.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings snapshot: %w", err)
	}
	for _, e := range entries {
		p.Apply(Event{Kind: ChildAdded, Entry: e})
	}

	p.mu.Lock()
	p.ready = true
	banned, guilds, hints := len(p.banned), len(p.guilds), len(p.hints)
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "Settings snapshot loaded",
		"entries", len(entries), "banned", banned, "guilds", guilds, "hints", hints)
	return nil
}

// Run applies store events until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "Watching settings changes")
	return p.store.Watch(ctx, p.Apply)
}

// Ready reports whether the initial snapshot was loaded.
func (p *Provider) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// OnChange registers fn to be called after every applied event.
func (p *Provider) OnChange(fn func(Event)) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Apply folds one event into the cache and notifies listeners.
func (p *Provider) Apply(ev Event) {
	e := ev.Entry
	removed := ev.Kind == ChildRemoved

	p.mu.Lock()
	switch e.Scope {
	case ScopeBanned:
		if removed || !truthy(e.Value) {
			delete(p.banned, e.Key)
		} else {
			p.banned[e.Key] = true
		}
	case ScopeGuilds:
		if removed {
			delete(p.guilds, e.Key)
			break
		}
		var gs GuildSetting
		if err := json.Unmarshal(e.Value, &gs); err != nil {
			p.logger.Warn("Ignoring malformed guild setting", "guild_id", e.Key, "error", err)
			break
		}
		p.guilds[e.Key] = gs
	case ScopeHints:
		if removed {
			delete(p.hints, e.Key)
			break
		}
		var hint string
		if err := json.Unmarshal(e.Value, &hint); err != nil || hint == "" {
			delete(p.hints, e.Key)
			break
		}
		p.hints[e.Key] = hint
	default:
		p.mu.Unlock()
		p.logger.Debug("Ignoring event for unknown scope", "scope", e.Scope, "key", e.Key)
		return
	}
	p.mu.Unlock()

	p.logger.Debug("Settings event applied", "kind", ev.Kind.String(), "scope", e.Scope, "key", e.Key)

	p.listenersMu.Lock()
	listeners := append([]func(Event){}, p.listeners...)
	p.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// IsBanned reports whether any of ids is banned.
func (p *Provider) IsBanned(ids ...string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, id := range ids {
		if p.banned[id] {
			return true
		}
	}
	return false
}

// Guild returns the effective setting of a chat: the stored values with
// defaults filled in.
func (p *Provider) Guild(guildID string) GuildSetting {
	p.mu.RLock()
	stored := p.guilds[guildID]
	p.mu.RUnlock()

	gs := GuildSetting{Prefix: stored.Prefix, Triggers: append([]string(nil), stored.Triggers...)}
	defaults := GuildSetting{Prefix: p.defaults.Prefix, Triggers: append([]string(nil), p.defaults.Triggers...)}
	if err := mergo.Merge(&gs, defaults); err != nil {
		p.logger.Warn("Failed to merge guild defaults", "guild_id", guildID, "error", err)
		return defaults
	}
	return gs
}

// RandomHint returns one hint chosen uniformly, or "" when none exist.
func (p *Provider) RandomHint() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.hints) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p.hints))
	for k := range p.hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return p.hints[keys[rand.IntN(len(keys))]]
}

// Counts returns the number of mirrored bans, guild settings and hints.
func (p *Provider) Counts() (banned, guilds, hints int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.banned), len(p.guilds), len(p.hints)
}

// SetPrefix stores a new prefix for a chat. The cache picks the change up
// from the store's change feed.
func (p *Provider) SetPrefix(ctx context.Context, guildID, prefix string) error {
	gs := p.stored(guildID)
	gs.Prefix = prefix
	return p.putGuild(ctx, guildID, gs)
}

// SetTriggers replaces the trigger list of a chat. An empty list restores
// the defaults.
func (p *Provider) SetTriggers(ctx context.Context, guildID string, triggers []string) error {
	gs := p.stored(guildID)
	gs.Triggers = triggers
	return p.putGuild(ctx, guildID, gs)
}

func (p *Provider) stored(guildID string) GuildSetting {
	p.mu.RLock()
	defer p.mu.RUnlock()
	gs := p.guilds[guildID]
	gs.Triggers = append([]string(nil), gs.Triggers...)
	return gs
}

func (p *Provider) putGuild(ctx context.Context, guildID string, gs GuildSetting) error {
	if gs.Prefix == "" && len(gs.Triggers) == 0 {
		if err := p.store.Delete(ctx, ScopeGuilds, guildID); err != nil {
			return fmt.Errorf("failed to delete guild setting %s: %w", guildID, err)
		}
		return nil
	}

	value, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to encode guild setting: %w", err)
	}
	if err := p.store.Put(ctx, Entry{Scope: ScopeGuilds, Key: guildID, Value: value}); err != nil {
		return fmt.Errorf("failed to store guild setting %s: %w", guildID, err)
	}
	return nil
}

// truthy follows the remote store convention: anything but null, false, 0
// and "" counts as set.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}
