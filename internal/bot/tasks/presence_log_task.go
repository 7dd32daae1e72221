package tasks

import (
	"context"

	"github.com/edgard/what2eat/internal/reply"
)

// newPresenceLogTask posts a heartbeat with the cache counters to the
// operations chat.
func newPresenceLogTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "presence_log")

	return func(ctx context.Context) error {
		stats := deps.Menu.Stats()
		now := deps.now()
		uptime := now.Sub(deps.StartedAt)

		log.InfoContext(ctx, "Presence", "cached", stats.Cached, "restaurants", stats.Restaurants, "uptime", uptime)
		if deps.OpsLog != nil {
			deps.OpsLog.Send(ctx, reply.Heartbeat(now, stats.Cached, stats.Restaurants, uptime))
		}
		return nil
	}
}
