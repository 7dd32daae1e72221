package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask creates the scheduled task function for running
// database maintenance: expired tombstones are purged before the VACUUM.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		if deps.Store == nil {
			log.DebugContext(ctx, "No SQL store configured, skipping maintenance")
			return nil
		}

		log.InfoContext(ctx, "Starting scheduled SQL maintenance task...")
		startTime := time.Now()

		cutoff := deps.now().Add(-deps.Config.Remote.TombstoneTTL)
		purged, err := deps.Store.PurgeTombstones(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Failed to purge tombstones", "error", err)
			return fmt.Errorf("failed to purge tombstones: %w", err)
		}

		err = deps.Store.RunSQLMaintenance(ctx)

		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", duration)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled SQL maintenance task completed successfully", "tombstones_purged", purged, "duration", duration)
		return nil
	}
}
