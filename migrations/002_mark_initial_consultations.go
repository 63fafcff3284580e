package migrations

import (
	"context"

	"PracticeHub360/services"

	"go.uber.org/zap"
)

func MarkInitialConsultations(ctx context.Context, svc *services.Service, logger *zap.Logger) error {
	return forEachOwner(ctx, svc, func(owner string) error {
		flagged, errs, err := svc.MarkInitialConsultations(ctx, owner)
		if err != nil {
			logger.Error("Migration failed", zap.String("owner", owner), zap.Error(err))
			return err
		}
		logger.Info("Migration applied", zap.String("owner", owner), zap.Int("flagged", flagged), zap.Strings("errors", errs))
		return nil
	})
}
