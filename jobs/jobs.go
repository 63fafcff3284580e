package jobs

import (
	"context"

	"PracticeHub360/queue"
	"PracticeHub360/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartMaintenanceScheduler runs the repair pass on the cron spec
// (MAINTENANCE_CRON, nightly by default).
func StartMaintenanceScheduler(spec string, svc *services.Service, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		logger.Info("running nightly maintenance")
		if err := RunMaintenance(context.Background(), svc, logger); err != nil {
			logger.Error("nightly maintenance failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

/*
* For every practitioner owning patients
* Flag missing initial consultations
* Backfill corrupted snapshots
* Merge duplicate consultations and invoices
* Invoice consultations that have none
 */
func RunMaintenance(ctx context.Context, svc *services.Service, logger *zap.Logger) error {
	owners, err := svc.Owners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		log := logger.With(zap.String("owner", owner))

		flagged, errs, err := svc.MarkInitialConsultations(ctx, owner)
		if err != nil {
			log.Error("initial consultation repair failed", zap.Error(err))
			continue
		}
		if len(errs) > 0 {
			log.Warn("initial consultation repair incomplete", zap.Strings("errors", errs))
		}

		migration, err := svc.MigrateAll(ctx, owner)
		if err != nil {
			log.Error("migration failed", zap.Error(err))
			continue
		}

		dedup, err := svc.Deduplicate(ctx, owner)
		if err != nil {
			log.Error("deduplication failed", zap.Error(err))
			continue
		}
		if reviewErr := dedup.Err(); reviewErr != nil {
			log.Warn("deduplication left invoices for review", zap.Error(reviewErr))
		}

		invoices, err := svc.GenerateMissingInvoices(ctx, owner)
		if err != nil {
			log.Error("invoice generation failed", zap.Error(err))
			continue
		}
		log.Info("maintenance done",
			zap.Int("initialFlagged", flagged),
			zap.Int("migrated", migration.Migrated),
			zap.Int("consultationsMerged", dedup.DedupConsultations),
			zap.Int("invoicesCreated", invoices.Created))
	}
	return nil
}

// StartSyncConsumer drains the redis sync stream in the background until ctx ends.
func StartSyncConsumer(ctx context.Context, q *queue.StreamQueue, svc *services.Service, logger *zap.Logger) {
	go func() {
		if err := q.Run(ctx, svc.HandleSyncTask); err != nil {
			logger.Error("sync consumer stopped", zap.Error(err))
		}
	}()
}
