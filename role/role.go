package role

import (
	"context"
	"time"

	"PracticeHub360/models"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	PractitionerRoleName = "PRACTITIONER"
	PractitionerRoleCode = "R0001"
)

type Role struct {
	Code       string                   `json:"code" bson:"code"`
	RoleName   string                   `json:"roleName" bson:"roleName"`
	RoleCode   string                   `json:"roleCode" bson:"roleCode"`
	Privileges []map[string]interface{} `json:"privileges" bson:"privileges"`
	CreatedAt  time.Time                `json:"createdAt" bson:"createdAt"`
	CreatedBy  string                   `json:"createdBy" bson:"createdBy"`
	UpdatedAt  time.Time                `json:"updatedAt" bson:"updatedAt"`
	UpdatedBy  string                   `json:"updatedBy" bson:"updatedBy"`
}

// Practitioner grants the modules guarded by the patient, consultation and
// maintenance routes.
func Practitioner(now time.Time) Role {
	return Role{
		Code:     PractitionerRoleCode,
		RoleName: PractitionerRoleName,
		RoleCode: PractitionerRoleCode,
		Privileges: []map[string]interface{}{
			{"module": "patient", "access": []string{"create", "view", "update"}},
			{"module": "consultation", "access": []string{"create", "view", "update"}},
			{"module": "maintenance", "access": []string{"view", "update"}},
		},
		CreatedAt: now,
		CreatedBy: "SYSTEM",
		UpdatedAt: now,
		UpdatedBy: "SYSTEM",
	}
}

/*
* Look the role up by name
* Insert it when missing
* Report whether it was created
 */
func Seed(ctx context.Context, st store.DocumentStore, r Role) (bool, error) {
	existing, err := st.Query(ctx, store.RoleCollection, bson.M{"roleName": r.RoleName})
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	doc, err := models.ToDocument(r)
	if err != nil {
		return false, err
	}
	if err := st.Create(ctx, store.RoleCollection, doc); err != nil {
		return false, err
	}
	return true, nil
}
