package mongostore

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edgard/what2eat/internal/settings"
)

func TestEntryFromDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  bson.M
		want string
	}{
		{"bool", bson.M{"_id": "1", "value": true}, `true`},
		{"string", bson.M{"_id": "1", "value": "多喝水"}, `"多喝水"`},
		{"nested D", bson.M{"_id": "1", "value": primitive.D{
			{Key: "prefix", Value: "!"},
			{Key: "triggers", Value: primitive.A{"餓", "吃啥"}},
		}}, `{"prefix":"!","triggers":["餓","吃啥"]}`},
		{"nested M", bson.M{"_id": "1", "value": bson.M{"prefix": "!"}}, `{"prefix":"!"}`},
		{"missing value", bson.M{"_id": "1"}, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entry, err := entryFromDocument(settings.ScopeGuilds, tt.doc)
			require.NoError(t, err)
			assert.Equal(t, "1", entry.Key)
			assert.Equal(t, settings.ScopeGuilds, entry.Scope)
			assert.JSONEq(t, tt.want, string(entry.Value))
		})
	}

	_, err := entryFromDocument(settings.ScopeGuilds, bson.M{"value": true})
	assert.Error(t, err)
}

func TestToEvent(t *testing.T) {
	t.Parallel()

	event := func(op, coll string, full bson.M) changeEvent {
		var ev changeEvent
		ev.OperationType = op
		ev.NS.Coll = coll
		ev.DocumentKey = bson.M{"_id": "42"}
		ev.FullDocument = full
		return ev
	}
	doc := bson.M{"_id": "42", "value": true}

	tests := []struct {
		name     string
		ev       changeEvent
		wantOK   bool
		wantKind settings.EventKind
	}{
		{"insert", event("insert", settings.ScopeBanned, doc), true, settings.ChildAdded},
		{"update", event("update", settings.ScopeBanned, doc), true, settings.ChildChanged},
		{"replace", event("replace", settings.ScopeBanned, doc), true, settings.ChildChanged},
		{"delete", event("delete", settings.ScopeBanned, nil), true, settings.ChildRemoved},
		{"update after delete", event("update", settings.ScopeBanned, nil), true, settings.ChildRemoved},
		{"other collection", event("insert", "users", doc), false, 0},
		{"drop", event("drop", settings.ScopeBanned, nil), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok, err := toEvent(tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, "42", got.Entry.Key)
			assert.Equal(t, settings.ScopeBanned, got.Entry.Scope)
		})
	}

	_, _, err := toEvent(changeEvent{OperationType: "insert", NS: struct {
		Coll string `bson:"coll"`
	}{Coll: settings.ScopeBanned}})
	assert.Error(t, err)
}

func resumeToken(t *testing.T) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(bson.D{{Key: "_data", Value: "8265"}})
	require.NoError(t, err)
	return bson.Raw(raw)
}

func TestStreamPosition_Options(t *testing.T) {
	t.Parallel()

	startAt := &primitive.Timestamp{T: 1700000000, I: 3}
	token := resumeToken(t)

	t.Run("snapshot time", func(t *testing.T) {
		t.Parallel()
		opts := streamPosition{startAt: startAt}.options()
		assert.Equal(t, startAt, opts.StartAtOperationTime)
		assert.Nil(t, opts.ResumeAfter)
		require.NotNil(t, opts.FullDocument)
		assert.Equal(t, options.UpdateLookup, *opts.FullDocument)
	})

	t.Run("token wins over snapshot time", func(t *testing.T) {
		t.Parallel()
		opts := streamPosition{token: token, startAt: startAt}.options()
		assert.Equal(t, token, opts.ResumeAfter)
		assert.Nil(t, opts.StartAtOperationTime)
	})

	t.Run("live", func(t *testing.T) {
		t.Parallel()
		opts := streamPosition{}.options()
		assert.Nil(t, opts.ResumeAfter)
		assert.Nil(t, opts.StartAtOperationTime)
	})
}

func TestStreamPosition_Fail(t *testing.T) {
	t.Parallel()

	startAt := &primitive.Timestamp{T: 1700000000, I: 3}
	token := resumeToken(t)

	tests := []struct {
		name     string
		err      error
		wantLost bool
	}{
		{"history lost", mongo.CommandError{Code: codeChangeStreamHistLost}, true},
		{"fatal", mongo.CommandError{Code: codeChangeStreamFatal}, true},
		{"capped position lost", mongo.CommandError{Code: codeCappedPositionLost}, true},
		{"wrapped", fmt.Errorf("watch: %w", mongo.CommandError{Code: codeChangeStreamHistLost}), true},
		{"network", errors.New("connection reset"), false},
		{"other server error", mongo.CommandError{Code: 11600}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pos := streamPosition{token: token, startAt: startAt}
			pos.fail(tt.err)
			assert.Equal(t, tt.wantLost, pos.lost)
			if tt.wantLost {
				assert.Nil(t, pos.token)
				assert.Nil(t, pos.startAt)
			} else {
				assert.Equal(t, token, pos.token)
			}
		})
	}

	pos := streamPosition{token: token}
	pos.fail(mongo.CommandError{Code: codeChangeStreamHistLost})
	next := &primitive.Timestamp{T: 1700000100}
	pos.restart(next)
	assert.False(t, pos.lost)
	opts := pos.options()
	assert.Equal(t, next, opts.StartAtOperationTime)
	assert.Nil(t, opts.ResumeAfter)
}

func TestDiffEntries(t *testing.T) {
	t.Parallel()

	old := index([]settings.Entry{
		{Scope: settings.ScopeBanned, Key: "1", Value: json.RawMessage(`true`)},
		{Scope: settings.ScopeBanned, Key: "2", Value: json.RawMessage(`true`)},
		{Scope: settings.ScopeGuilds, Key: "g1", Value: json.RawMessage(`{"prefix":"!"}`)},
		{Scope: settings.ScopeHints, Key: "h1", Value: json.RawMessage(`"多喝水"`)},
	})
	fresh := []settings.Entry{
		{Scope: settings.ScopeBanned, Key: "1", Value: json.RawMessage(`true`)},
		{Scope: settings.ScopeBanned, Key: "3", Value: json.RawMessage(`true`)},
		{Scope: settings.ScopeGuilds, Key: "g1", Value: json.RawMessage(`{"prefix":"?"}`)},
	}

	got := diffEntries(old, fresh)

	assert.Equal(t, []settings.Event{
		{Kind: settings.ChildAdded, Entry: fresh[1]},
		{Kind: settings.ChildChanged, Entry: fresh[2]},
		{Kind: settings.ChildRemoved, Entry: settings.Entry{Scope: settings.ScopeBanned, Key: "2"}},
		{Kind: settings.ChildRemoved, Entry: settings.Entry{Scope: settings.ScopeHints, Key: "h1"}},
	}, got)

	assert.Empty(t, diffEntries(index(fresh), fresh))
}

func TestRemember(t *testing.T) {
	t.Parallel()

	s := &Store{}
	s.remember(settings.Event{Kind: settings.ChildAdded, Entry: settings.Entry{Scope: settings.ScopeBanned, Key: "1", Value: json.RawMessage(`true`)}})
	s.remember(settings.Event{Kind: settings.ChildAdded, Entry: settings.Entry{Scope: settings.ScopeBanned, Key: "2", Value: json.RawMessage(`true`)}})
	s.remember(settings.Event{Kind: settings.ChildRemoved, Entry: settings.Entry{Scope: settings.ScopeBanned, Key: "1"}})

	assert.Equal(t, map[entryID]json.RawMessage{
		{scope: settings.ScopeBanned, key: "2"}: json.RawMessage(`true`),
	}, s.known)
}
