package services

import (
	"context"
	"testing"
	"time"

	"PracticeHub360/models"
	"PracticeHub360/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCreateConsultation_SnapshotsPatientAndInvoices(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seedPatient(t, mem, "P1", nil)

	c, err := svc.CreateConsultation(ctx, ConsultationInput{
		PatientID: "P1",
		Date:      at(14, 0),
		Reason:    "Douleur cervicale",
		Clinical:  map[models.ClinicalField]string{models.MedicalHistory: "Asthme", models.CurrentTreatment: "  "},
	}, owner)
	require.NoError(t, err)
	assert.Equal(t, "GEN0001", c.Code)
	assert.Equal(t, models.ConsultationCompleted, c.Status)
	assert.False(t, c.IsInitialConsultation)

	stored := loadConsultation(t, mem, "GEN0001")
	assert.Equal(t, "Jeanne Martin", stored.PatientName)
	assert.Equal(t, "12 rue des Lilas", stored.PatientAddress)
	assert.Equal(t, "MGEN", stored.PatientInsurance)
	assert.Equal(t, "Asthme", stored.MedicalHistory)
	assert.Equal(t, "Paracétamol 1000mg 3x/jour", stored.CurrentTreatment)
	assert.Equal(t, []string{"lombalgie"}, stored.Symptoms)
	assert.Equal(t, owner, stored.CreatedBy)

	inv := loadInvoice(t, mem, "GEN0002")
	assert.Equal(t, "GEN0001", inv.ConsultationID)
	assert.Equal(t, "INV-800000", inv.Number)
	assert.Equal(t, models.InvoicePaid, inv.Status)
	assert.True(t, inv.IssueDate.Equal(at(14, 0)), inv.IssueDate.String())
	assert.True(t, inv.DueDate.Equal(at(14, 0)), inv.DueDate.String())
	assert.Equal(t, DefaultInvoiceAmount, inv.Total)
	require.NotNil(t, inv.PaidAt)
	assert.Equal(t, "Facture générée automatiquement pour la consultation du 04/03/2024", inv.Notes)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Douleur cervicale", inv.Items[0].Description)
}

func TestCreateConsultation_InvoiceUsesPrice(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t, WithDefaultInvoiceAmount(45))
	seedPatient(t, mem, "P1", nil)

	_, err := svc.CreateConsultation(ctx, ConsultationInput{PatientID: "P1", Date: at(14, 0), Price: 70}, owner)
	require.NoError(t, err)
	assert.Equal(t, 70.0, loadInvoice(t, mem, "GEN0002").Total)

	_, err = svc.CreateConsultation(ctx, ConsultationInput{PatientID: "P1", Date: at(17, 0)}, owner)
	require.NoError(t, err)
	assert.Equal(t, 45.0, loadInvoice(t, mem, "GEN0004").Total)
}

func TestCreateConsultation_InvoiceFailureKeepsConsultation(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seedPatient(t, mem, "P1", nil)
	mem.FailOn("create", store.InvoiceCollection, "", assert.AnError)

	c, err := svc.CreateConsultation(ctx, ConsultationInput{PatientID: "P1", Date: at(14, 0)}, owner)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, 1, mem.Count(store.ConsultationCollection))
	assert.Equal(t, 0, mem.Count(store.InvoiceCollection))
}

func TestCreateConsultation_Errors(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seedPatient(t, mem, "P1", nil)
	seedPatient(t, mem, "P9", bson.M{"createdBy": "U0002"})

	tests := []struct {
		name   string
		in     ConsultationInput
		caller string
		want   error
	}{
		{"no caller", ConsultationInput{PatientID: "P1", Date: at(14, 0)}, "", ErrAuthenticationRequired},
		{"no date", ConsultationInput{PatientID: "P1"}, owner, ErrInvalidInput},
		{"bad status", ConsultationInput{PatientID: "P1", Date: at(14, 0), Status: "archived"}, owner, ErrInvalidInput},
		{"unknown patient", ConsultationInput{PatientID: "NOPE", Date: at(14, 0)}, owner, ErrNotFound},
		{"foreign patient", ConsultationInput{PatientID: "P9", Date: at(14, 0)}, owner, ErrAuthorizationDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateConsultation(ctx, tt.in, tt.caller)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, mem.Count(store.ConsultationCollection))
}

func TestUpdateConsultation_InitialDateLocked(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seed(t, mem, store.ConsultationCollection, fullConsultation("C0", "P1", at(9, 0), bson.M{"isInitialConsultation": true}))

	_, err := svc.UpdateConsultation(ctx, "C0", map[string]interface{}{"date": "2024-03-04T15:00:00Z"}, owner)
	assert.ErrorIs(t, err, ErrValidationConflict)
	assert.True(t, loadConsultation(t, mem, "C0").Date.Equal(at(9, 0)))

	c, err := svc.UpdateConsultation(ctx, "C0", map[string]interface{}{
		"date":  at(9, 0),
		"notes": "Bilan initial complet",
	}, owner)
	require.NoError(t, err)
	assert.Equal(t, "Bilan initial complet", c.Notes)
	assert.True(t, c.Date.Equal(at(9, 0)))
}

func TestUpdateConsultation_DateGoesThroughWindow(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seed(t, mem, store.ConsultationCollection, fullConsultation("C1", "P1", at(9, 0), nil))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C2", "P1", at(14, 0), nil))

	_, err := svc.UpdateConsultation(ctx, "C2", map[string]interface{}{"date": "2024-03-04T09:40:00Z"}, owner)
	assert.ErrorIs(t, err, ErrValidationConflict)

	c, err := svc.UpdateConsultation(ctx, "C2", map[string]interface{}{"date": "2024-03-04T14:20:00Z"}, owner)
	require.NoError(t, err)
	assert.True(t, c.Date.Equal(at(14, 20)))
}

func TestUpdateConsultation_Validation(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seed(t, mem, store.ConsultationCollection, fullConsultation("C1", "P1", at(9, 0), nil))

	_, err := svc.UpdateConsultation(ctx, "C1", map[string]interface{}{"createdBy": "U0002"}, owner)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateConsultation(ctx, "C1", map[string]interface{}{"status": "archived"}, owner)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateConsultation(ctx, "C1", map[string]interface{}{"date": "04/03/2024"}, owner)
	assert.ErrorIs(t, err, ErrInvalidInput)

	c, err := svc.UpdateConsultation(ctx, "C1", map[string]interface{}{"medicalHistory": "Asthme", "createdBy": "U0002"}, owner)
	require.NoError(t, err)
	assert.Equal(t, "Asthme", c.MedicalHistory)
	assert.Equal(t, owner, c.CreatedBy)
}

func findResolution(t *testing.T, view *ConsultationView, f models.ClinicalField) Resolution {
	t.Helper()
	for _, r := range view.Resolved {
		if r.Field == f {
			return r
		}
	}
	t.Fatalf("field %s not resolved", f)
	return Resolution{}
}

func TestResolveConsultation(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seedPatient(t, mem, "P1", bson.M{"medicalHistory": "Hypertension traitée"})
	seed(t, mem, store.ConsultationCollection, fullConsultation("C0", "P1", at(9, 0), bson.M{
		"isInitialConsultation": true,
		"medicalHistory":        "3f2b8c1e-9d4a-4b7e-8f61-2a5c9e0d7b43",
		"currentTreatment":      "[DECRYPTION_ERROR: bad tag]",
	}))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C1", "P1", at(9, 0).AddDate(0, 0, 7), bson.M{
		"medicalHistory": "3f2b8c1e-9d4a-4b7e-8f61-2a5c9e0d7b43",
	}))

	view, err := svc.ResolveConsultation(ctx, "C0", owner)
	require.NoError(t, err)
	history := findResolution(t, view, models.MedicalHistory)
	assert.Equal(t, "Hypertension traitée", history.Value)
	assert.Equal(t, SourcePatient, history.Source)
	assert.Equal(t, "Paracétamol 1000mg 3x/jour", findResolution(t, view, models.CurrentTreatment).Value)
	assert.Equal(t, SourceSnapshot, findResolution(t, view, models.MedicalAntecedents).Source)

	view, err = svc.ResolveConsultation(ctx, "C1", owner)
	require.NoError(t, err)
	history = findResolution(t, view, models.MedicalHistory)
	assert.Equal(t, "3f2b8c1e-9d4a-4b7e-8f61-2a5c9e0d7b43", history.Value)
	assert.Equal(t, SourceSnapshot, history.Source)

	assert.Equal(t, "3f2b8c1e-9d4a-4b7e-8f61-2a5c9e0d7b43", loadConsultation(t, mem, "C0").MedicalHistory)
}

func TestGenerateMissingInvoices(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seed(t, mem, store.ConsultationCollection, fullConsultation("C1", "P1", at(9, 0), nil))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C0002", "P1", at(9, 30).AddDate(0, 0, 1), nil))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C3", "P1", at(11, 0), bson.M{"status": models.ConsultationCancelled}))
	seed(t, mem, store.InvoiceCollection, invoiceDoc("I1", "C1", 55, nil))

	report, err := svc.GenerateMissingInvoices(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Created)

	inv := loadInvoice(t, mem, "GEN0001")
	assert.Equal(t, "C0002", inv.ConsultationID)
	assert.Equal(t, "F-20240305-0930-0002", inv.Number)
	assert.Equal(t, models.InvoiceDraft, inv.Status)
	assert.True(t, inv.IsRetroactive)
	assert.Equal(t, 55.0, inv.Total)
	assert.True(t, inv.DueDate.Equal(at(9, 30).AddDate(0, 0, 31)))

	again, err := svc.GenerateMissingInvoices(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 2, mem.Count(store.InvoiceCollection))
}

func TestInvoiceNumbers(t *testing.T) {
	assert.Equal(t, "INV-800000", invoiceNumber(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "INV-123456", invoiceNumber(time.UnixMilli(1700000123456)))
	c := &models.Consultation{Code: "abc", Date: time.Date(2024, 1, 2, 8, 5, 0, 0, time.UTC)}
	assert.Equal(t, "F-20240102-0805-abc", retroactiveNumber(c))
}

func TestUpdateConsultation_RejectsMistypedFields(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seedPatient(t, mem, "P1", nil)
	seed(t, mem, store.ConsultationCollection, fullConsultation("C1", "P1", at(9, 0), nil))
	seed(t, mem, store.ConsultationCollection, fullConsultation("C2", "P1", at(14, 0), nil))

	for name, data := range map[string]map[string]interface{}{
		"number history":    {"medicalHistory": 7.0},
		"string symptoms":   {"symptoms": "lombalgie"},
		"text price":        {"price": "55 €"},
		"fraction duration": {"duration": 45.5},
		"number status":     {"status": 2.0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdateConsultation(ctx, "C2", data, owner)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	assert.Equal(t, "Hypertension", loadConsultation(t, mem, "C2").MedicalHistory)

	report, err := svc.MigrateAll(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Empty(t, report.Errors)
	assert.ErrorIs(t, svc.CheckDuplicateWindow(ctx, "P1", at(13, 40), owner, "C1"), ErrValidationConflict)

	c, err := svc.UpdateConsultation(ctx, "C2", map[string]interface{}{
		"price":    70.0,
		"duration": 45.0,
		"symptoms": []interface{}{"cervicalgie"},
	}, owner)
	require.NoError(t, err)
	assert.Equal(t, 70.0, c.Price)
	assert.Equal(t, 45, c.Duration)
	assert.Equal(t, []string{"cervicalgie"}, c.Symptoms)
}
