package compliance

import (
	"context"
	"time"

	"PracticeHub360/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	EventCreation     = "DATA_CREATION"
	EventModification = "DATA_MODIFICATION"
	EventDeletion     = "DATA_DELETION"
	EventSync         = "DATA_SYNC"

	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	SensitivityHigh   = "high"
	SensitivityMedium = "medium"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type AuditEvent struct {
	EventType    string
	ResourcePath string
	Action       string
	Sensitivity  string
	Outcome      string
	Actor        string
	Details      map[string]interface{}
}

// Auditor records data access events. Callers never fail an operation
// because auditing failed.
type Auditor interface {
	Log(ctx context.Context, event AuditEvent) error
}

// StoreAuditor appends events to the audit collection.
type StoreAuditor struct {
	store  store.DocumentStore
	logger *zap.Logger
}

func NewStoreAuditor(s store.DocumentStore, logger *zap.Logger) *StoreAuditor {
	return &StoreAuditor{store: s, logger: logger}
}

func (a *StoreAuditor) Log(ctx context.Context, event AuditEvent) error {
	doc := bson.M{
		"code":         uuid.NewString(),
		"eventType":    event.EventType,
		"resourcePath": event.ResourcePath,
		"action":       event.Action,
		"sensitivity":  event.Sensitivity,
		"outcome":      event.Outcome,
		"actor":        event.Actor,
		"details":      event.Details,
		"recordedAt":   time.Now().UTC(),
	}
	if err := a.store.Create(ctx, store.AuditCollection, doc); err != nil {
		a.logger.Error("audit write failed", zap.String("resource", event.ResourcePath), zap.Error(err))
		return err
	}
	return nil
}

// LogAuditor writes events to the structured log only.
type LogAuditor struct {
	logger *zap.Logger
}

func NewLogAuditor(logger *zap.Logger) *LogAuditor {
	return &LogAuditor{logger: logger}
}

func (a *LogAuditor) Log(_ context.Context, event AuditEvent) error {
	a.logger.Info("audit",
		zap.String("event_type", event.EventType),
		zap.String("resource", event.ResourcePath),
		zap.String("action", event.Action),
		zap.String("sensitivity", event.Sensitivity),
		zap.String("outcome", event.Outcome),
		zap.String("actor", event.Actor),
		zap.Any("details", event.Details))
	return nil
}
