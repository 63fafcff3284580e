package migrations

import (
	"context"
	"testing"
	"time"

	"PracticeHub360/services"
	"PracticeHub360/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestRun_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := services.New(mem)
	day := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	require.NoError(t, mem.Create(ctx, store.PatientCollection, bson.M{
		"code": "P1", "firstName": "Ana", "lastName": "Roux", "currentTreatment": "Kiné", "createdBy": "U0001",
	}))
	require.NoError(t, mem.Create(ctx, store.ConsultationCollection, bson.M{
		"code": "C1", "patientId": "P1", "date": day, "currentTreatment": "3f2b8c1e-9d4a-4b7e-8f61-2a5c9e0d7b43", "createdBy": "U0001",
	}))

	require.NoError(t, Run(ctx, svc, mem, zap.NewNop()))
	doc, err := mem.Get(ctx, store.ConsultationCollection, "C1")
	require.NoError(t, err)
	assert.Equal(t, "Kiné", doc["currentTreatment"])
	assert.Equal(t, true, doc["isInitialConsultation"])
	assert.Equal(t, 1, mem.Count(store.RoleCollection))
	assert.Equal(t, 1, mem.Count(store.InvoiceCollection))

	require.NoError(t, Run(ctx, svc, mem, zap.NewNop()))
	assert.Equal(t, 1, mem.Count(store.RoleCollection))
	assert.Equal(t, 1, mem.Count(store.InvoiceCollection))
}

func TestRun_StopsOnStorageFailure(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn("query", store.PatientCollection, "", assert.AnError)

	err := Run(context.Background(), services.New(mem), mem, zap.NewNop())
	assert.ErrorIs(t, err, services.ErrStorageFailure)
	assert.Equal(t, 0, mem.Count(store.RoleCollection))
}
