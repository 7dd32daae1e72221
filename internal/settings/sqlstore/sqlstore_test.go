package sqlstore_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/what2eat/internal/settings"
	"github.com/edgard/what2eat/internal/settings/sqlstore"
)

func openStore(t *testing.T, interval time.Duration) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(filepath.Join(t.TempDir(), "settings.db"), interval, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSnapshotAndPoll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t, time.Hour)

	require.NoError(t, s.Put(ctx, settings.Entry{Scope: settings.ScopeBanned, Key: "1", Value: json.RawMessage(`true`)}))
	require.NoError(t, s.Put(ctx, settings.Entry{Scope: settings.ScopeHints, Key: "h", Value: json.RawMessage(`"喝水"`)}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 2)

	events, err := s.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, s.Put(ctx, settings.Entry{Scope: settings.ScopeGuilds, Key: "g", Value: json.RawMessage(`{"prefix":"!"}`)}))
	require.NoError(t, s.Put(ctx, settings.Entry{Scope: settings.ScopeHints, Key: "h", Value: json.RawMessage(`"吃菜"`)}))
	require.NoError(t, s.Delete(ctx, settings.ScopeBanned, "1"))
	require.NoError(t, s.Delete(ctx, settings.ScopeBanned, "never-existed"))

	events, err = s.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, settings.ChildAdded, events[0].Kind)
	assert.Equal(t, settings.ScopeGuilds, events[0].Entry.Scope)
	assert.JSONEq(t, `{"prefix":"!"}`, string(events[0].Entry.Value))

	assert.Equal(t, settings.ChildChanged, events[1].Kind)
	assert.JSONEq(t, `"吃菜"`, string(events[1].Entry.Value))

	assert.Equal(t, settings.ChildRemoved, events[2].Kind)
	assert.Equal(t, "1", events[2].Entry.Key)

	events, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPutRejectsBadInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t, time.Hour)

	err := s.Put(ctx, settings.Entry{Scope: "other", Key: "k", Value: json.RawMessage(`1`)})
	assert.ErrorIs(t, err, settings.ErrUnknownScope)

	err = s.Put(ctx, settings.Entry{Scope: settings.ScopeHints, Key: "k", Value: json.RawMessage(`{`)})
	assert.Error(t, err)

	assert.ErrorIs(t, s.Delete(ctx, "other", "k"), settings.ErrUnknownScope)
}

func TestWatchFeedsProvider(t *testing.T) {
	t.Parallel()
	s := openStore(t, 10*time.Millisecond)

	p := settings.NewProvider(s, settings.GuildSetting{Prefix: "/"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Init(ctx))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = p.Run(ctx)
	}()

	require.NoError(t, p.SetPrefix(ctx, "chat-1", "!"))
	require.Eventually(t, func() bool {
		return p.Guild("chat-1").Prefix == "!"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}
