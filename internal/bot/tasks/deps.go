// Package tasks implements the scheduled tasks of the What2Eat bot.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/what2eat/internal/config"
	"github.com/edgard/what2eat/internal/cooldown"
	"github.com/edgard/what2eat/internal/database"
	"github.com/edgard/what2eat/internal/picker"
	"github.com/edgard/what2eat/internal/reply"
)

// Notifier delivers a rendered message to the operations chat.
type Notifier interface {
	Send(ctx context.Context, r reply.Reply)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config

	// Store is the SQLite settings database. It is nil with the mongo driver.
	Store database.Store

	Guard     *cooldown.Guard
	Menu      *picker.Menu
	OpsLog    Notifier
	StartedAt time.Time

	// Clock defaults to the wall clock.
	Clock clockwork.Clock
}

func (d TaskDeps) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock.Now()
}
