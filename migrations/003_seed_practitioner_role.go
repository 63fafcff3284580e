package migrations

import (
	"context"
	"time"

	"PracticeHub360/role"
	"PracticeHub360/store"

	"go.uber.org/zap"
)

func SeedPractitionerRole(ctx context.Context, st store.DocumentStore, now time.Time, logger *zap.Logger) error {
	created, err := role.Seed(ctx, st, role.Practitioner(now))
	if err != nil {
		logger.Error("Migration failed", zap.String("role", role.PractitionerRoleName), zap.Error(err))
		return err
	}
	if created {
		logger.Info("Migration applied", zap.String("role", role.PractitionerRoleName))
	}
	return nil
}
