package tasks

import (
	"context"
)

// newCooldownSweepTask drops expired cooldown entries so idle actors do not
// accumulate between their own messages.
func newCooldownSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "cooldown_sweep")

	return func(ctx context.Context) error {
		removed := deps.Guard.Sweep()
		if removed > 0 {
			log.DebugContext(ctx, "Swept expired cooldowns", "removed", removed, "remaining", deps.Guard.Len())
		}
		return nil
	}
}
