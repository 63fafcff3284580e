package migrations

import (
	"context"
	"time"

	"PracticeHub360/services"
	"PracticeHub360/store"

	"go.uber.org/zap"
)

// Run applies every data migration in order. Each one is idempotent.
func Run(ctx context.Context, svc *services.Service, st store.DocumentStore, logger *zap.Logger) error {
	if err := BackfillConsultationSnapshot(ctx, svc, logger); err != nil {
		return err
	}
	if err := MarkInitialConsultations(ctx, svc, logger); err != nil {
		return err
	}
	if err := SeedPractitionerRole(ctx, st, time.Now().UTC(), logger); err != nil {
		return err
	}
	return GenerateMissingInvoices(ctx, svc, logger)
}

func forEachOwner(ctx context.Context, svc *services.Service, fn func(owner string) error) error {
	owners, err := svc.Owners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		if err := fn(owner); err != nil {
			return err
		}
	}
	return nil
}
