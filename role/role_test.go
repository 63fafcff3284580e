package role

import (
	"context"
	"testing"
	"time"

	"PracticeHub360/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	r := Practitioner(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	created, err := Seed(ctx, mem, r)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = Seed(ctx, mem, r)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, mem.Count(store.RoleCollection))

	doc, err := mem.Get(ctx, store.RoleCollection, PractitionerRoleCode)
	require.NoError(t, err)
	assert.Equal(t, PractitionerRoleName, doc["roleName"])
}

func TestSeed_StoreFailure(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn("create", store.RoleCollection, "", assert.AnError)

	_, err := Seed(context.Background(), mem, Practitioner(time.Now()))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPractitioner_Modules(t *testing.T) {
	modules := []string{}
	for _, p := range Practitioner(time.Now()).Privileges {
		modules = append(modules, p["module"].(string))
	}
	assert.Equal(t, []string{"patient", "consultation", "maintenance"}, modules)
}
