package services

import (
	"context"
	"testing"

	"PracticeHub360/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMigrationStatus(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seedPatient(t, mem, "P1", nil)
	seedPatient(t, mem, "P2", nil)
	seed(t, mem, store.ConsultationCollection, fullConsultation("C1", "P1", at(9, 0), bson.M{"isInitialConsultation": true}))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C2", "P1", at(9, 30), bson.M{"medicalHistory": "undefined"}))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C3", "P2", at(11, 0), nil))
	seed(t, mem, store.InvoiceCollection, invoiceDoc("I1", "C1", 55, nil))
	seed(t, mem, store.InvoiceCollection, invoiceDoc("I2", "C3", 55, bson.M{"needsReview": true}))

	status, err := svc.MigrationStatus(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, &MigrationStatus{
		Patients:                    2,
		Consultations:               3,
		NeedingMigration:            1,
		PatientsWithoutInitial:      1,
		DuplicateClusters:           1,
		ConsultationsWithoutInvoice: 1,
		InvoicesAwaitingReview:      1,
		Clean:                       false,
	}, status)
}

func TestMigrationStatus_CleanAfterMaintenance(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seedPatient(t, mem, "P1", nil)
	seed(t, mem, store.ConsultationCollection, fullConsultation("C1", "P1", at(9, 0), bson.M{"medicalHistory": "null"}))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C2", "P1", at(9, 10), nil))

	flagged, errs, err := svc.MarkInitialConsultations(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	assert.Empty(t, errs)
	_, err = svc.MigrateAll(ctx, owner)
	require.NoError(t, err)
	_, err = svc.Deduplicate(ctx, owner)
	require.NoError(t, err)
	_, err = svc.GenerateMissingInvoices(ctx, owner)
	require.NoError(t, err)

	status, err := svc.MigrationStatus(ctx, owner)
	require.NoError(t, err)
	assert.True(t, status.Clean, "%+v", status)
	assert.Equal(t, 1, status.Consultations)
}

func TestMarkInitialConsultations(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seed(t, mem, store.ConsultationCollection, fullConsultation("C1", "P1", at(9, 0).AddDate(0, 0, 7), nil))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C2", "P1", at(9, 0), nil))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C3", "P2", at(9, 0), nil))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C4", "P2", at(9, 0).AddDate(0, 0, 1), bson.M{"isInitialConsultation": true}))

	flagged, errs, err := svc.MarkInitialConsultations(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	assert.Empty(t, errs)
	assert.True(t, loadConsultation(t, mem, "C2").IsInitialConsultation)
	assert.False(t, loadConsultation(t, mem, "C1").IsInitialConsultation)
	assert.False(t, loadConsultation(t, mem, "C3").IsInitialConsultation)

	flagged, _, err = svc.MarkInitialConsultations(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
}

func TestOwners(t *testing.T) {
	svc, mem := newTestService(t)
	seedPatient(t, mem, "P1", bson.M{"createdBy": "U0002"})
	seedPatient(t, mem, "P2", nil)
	seedPatient(t, mem, "P3", bson.M{"createdBy": "U0002"})

	owners, err := svc.Owners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{owner, "U0002"}, owners)

	mem.FailOn("query", store.PatientCollection, "", assert.AnError)
	_, err = svc.Owners(context.Background())
	assert.ErrorIs(t, err, ErrStorageFailure)
}
