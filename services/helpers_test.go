package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"PracticeHub360/models"
	"PracticeHub360/queue"
	"PracticeHub360/store"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const owner = "U0001"

var base = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, time.UTC)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	clock := func() time.Time { return time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC) }
	svc := New(mem, append([]Option{WithClock(clock)}, opts...)...)
	var mu sync.Mutex
	n := 0
	svc.newCode = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("GEN%04d", n)
	}
	return svc, mem
}

func seed(t *testing.T, mem *store.Memory, collection string, doc bson.M) {
	t.Helper()
	if _, ok := doc["createdBy"]; !ok {
		doc["createdBy"] = owner
	}
	require.NoError(t, mem.Create(context.Background(), collection, doc))
}

func seedPatient(t *testing.T, mem *store.Memory, code string, extra bson.M) {
	doc := bson.M{
		"code":                 code,
		"firstName":            "Jeanne",
		"lastName":             "Martin",
		"dateOfBirth":          "1980-02-14",
		"gender":               "female",
		"email":                "jeanne.martin@example.fr",
		"phone":                "0601020304",
		"profession":           "Enseignante",
		"address":              bson.M{"street": "12 rue des Lilas", "city": "Lyon"},
		"insurance":            bson.M{"provider": "MGEN", "policyNumber": "A-778"},
		"consultationReason":   "Lombalgie",
		"currentTreatment":     "Paracétamol 1000mg 3x/jour",
		"medicalAntecedents":   "Appendicectomie 1998",
		"medicalHistory":       "Hypertension",
		"osteopathicTreatment": "Mobilisation lombaire",
		"tags":                 bson.A{"lombalgie"},
		"notes":                "",
		"createdAt":            base.AddDate(0, -1, 0),
	}
	for k, v := range extra {
		doc[k] = v
	}
	seed(t, mem, store.PatientCollection, doc)
}

// fullConsultation is a clean, fully populated consultation document.
func fullConsultation(code, patientID string, date time.Time, extra bson.M) bson.M {
	doc := bson.M{
		"code":                   code,
		"patientId":              patientID,
		"patientName":            "Jeanne Martin",
		"date":                   date,
		"duration":               60,
		"price":                  55.0,
		"status":                 models.ConsultationCompleted,
		"reason":                 "Suivi",
		"treatment":              "Manipulation",
		"notes":                  "",
		"consultationReason":     "Lombalgie",
		"currentTreatment":       "Paracétamol 1000mg 3x/jour",
		"medicalAntecedents":     "Appendicectomie 1998",
		"medicalHistory":         "Hypertension",
		"osteopathicTreatment":   "Mobilisation lombaire",
		"symptoms":               bson.A{"lombalgie"},
		"patientFirstName":       "Jeanne",
		"patientLastName":        "Martin",
		"patientDateOfBirth":     "1980-02-14",
		"patientGender":          "female",
		"patientPhone":           "0601020304",
		"patientEmail":           "jeanne.martin@example.fr",
		"patientProfession":      "Enseignante",
		"patientAddress":         "12 rue des Lilas",
		"patientInsurance":       "MGEN",
		"patientInsuranceNumber": "A-778",
		"isInitialConsultation":  false,
		"createdAt":              date,
	}
	for k, v := range extra {
		doc[k] = v
	}
	return doc
}

func invoiceDoc(code, consultationID string, total float64, extra bson.M) bson.M {
	doc := bson.M{
		"code":           code,
		"consultationId": consultationID,
		"patientId":      "P1",
		"total":          total,
		"subtotal":       total,
		"status":         models.InvoiceDraft,
		"number":         "",
		"createdAt":      base,
	}
	for k, v := range extra {
		doc[k] = v
	}
	return doc
}

func loadConsultation(t *testing.T, mem *store.Memory, code string) *models.Consultation {
	t.Helper()
	doc, err := mem.Get(context.Background(), store.ConsultationCollection, code)
	require.NoError(t, err)
	c, err := models.DecodeConsultation(doc)
	require.NoError(t, err)
	return c
}

func loadInvoice(t *testing.T, mem *store.Memory, code string) *models.Invoice {
	t.Helper()
	doc, err := mem.Get(context.Background(), store.InvoiceCollection, code)
	require.NoError(t, err)
	inv, err := models.DecodeInvoice(doc)
	require.NoError(t, err)
	return inv
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []queue.SyncTask
	err   error
}

func (d *recordingDispatcher) Enqueue(_ context.Context, task queue.SyncTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}
