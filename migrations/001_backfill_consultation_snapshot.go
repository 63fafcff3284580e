package migrations

import (
	"context"

	"PracticeHub360/services"

	"go.uber.org/zap"
)

func BackfillConsultationSnapshot(ctx context.Context, svc *services.Service, logger *zap.Logger) error {
	return forEachOwner(ctx, svc, func(owner string) error {
		report, err := svc.MigrateAll(ctx, owner)
		if err != nil {
			logger.Error("Migration failed", zap.String("owner", owner), zap.Error(err))
			return err
		}
		logger.Info("Migration applied",
			zap.String("owner", owner),
			zap.Int("migrated", report.Migrated),
			zap.Int("errors", len(report.Errors)))
		return nil
	})
}
