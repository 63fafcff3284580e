package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	PatientCollection            = "PATIENT"
	ConsultationCollection       = "CONSULTATION"
	InvoiceCollection            = "INVOICE"
	ConsultationBackupCollection = "CONSULTATION_BACKUP"
	AuditCollection              = "AUDIT_LOG"
	RoleCollection               = "ROLE"
)

// ErrNotFound is returned by Get, Update and Delete when no document has the code.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the persistence contract of the consistency services.
// Documents are addressed by their "code" field. Update applies a partial $set.
type DocumentStore interface {
	Get(ctx context.Context, collection, code string) (bson.M, error)
	Query(ctx context.Context, collection string, filter bson.M) ([]bson.M, error)
	Create(ctx context.Context, collection string, doc bson.M) error
	Update(ctx context.Context, collection, code string, fields bson.M) error
	Delete(ctx context.Context, collection, code string) error
}
