package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PracticeHub360/compliance"
	"PracticeHub360/models"
	"PracticeHub360/queue"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type SyncResult struct {
	Success        bool     `json:"success"`
	ConsultationID string   `json:"consultationId,omitempty"`
	FieldsUpdated  []string `json:"fieldsUpdated"`
	Error          string   `json:"error,omitempty"`
}

type RetroSyncReport struct {
	Processed int      `json:"processed"`
	Updated   int      `json:"updated"`
	Errors    []string `json:"errors"`
}

// findInitialConsultation returns the flagged consultation of the patient, the
// earliest one if the flag was set more than once.
func (s *Service) findInitialConsultation(ctx context.Context, patientID, callerID string) (*models.Consultation, error) {
	found, err := s.listConsultations(ctx, bson.M{"patientId": patientID, "isInitialConsultation": true}, callerID)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, newError(KindNotFound, INITIAL_CONSULTATION_NOT_FOUND)
	}
	initial := found[0]
	for _, c := range found[1:] {
		if c.SortTime().Before(initial.SortTime()) {
			initial = c
		}
	}
	if len(found) > 1 {
		s.logger.Warn("several initial consultations", zap.String("patient", patientID), zap.Int("count", len(found)))
	}
	return initial, nil
}

// stageSync lists the mirrored fields whose non-empty patient value differs
// from the consultation.
func stageSync(c *models.Consultation, p *models.Patient) bson.M {
	changes := bson.M{}
	for _, f := range models.ClinicalTextFields {
		v := p.ClinicalText(f)
		if strings.TrimSpace(v) != "" && v != c.ClinicalText(f) {
			changes[string(f)] = v
		}
	}
	if tags := p.ClinicalList(models.Symptoms); len(tags) > 0 && !sameStrings(tags, c.Symptoms) {
		changes[string(models.Symptoms)] = append([]string{}, tags...)
	}
	if strings.TrimSpace(p.Notes) != "" && p.Notes != c.Notes {
		changes["notes"] = p.Notes
	}
	for _, f := range models.IdentityFields {
		v := f.FromPatient(p)
		if strings.TrimSpace(v) != "" && v != f.FromConsultation(c) {
			changes[f.Key] = v
		}
	}
	if name := p.FullName(); name != "" && name != c.PatientName {
		changes["patientName"] = name
	}
	return changes
}

func (s *Service) backupConsultation(ctx context.Context, c *models.Consultation, callerID, reason string) error {
	snapshot, err := models.ToDocument(c)
	if err != nil {
		return storageError(err)
	}
	sealed, err := s.encryptor.EncryptForStorage(ctx, snapshot, store.ConsultationCollection, callerID)
	if err != nil {
		return storageError(err)
	}
	backup := bson.M{
		"code":           s.newCode(),
		"consultationId": c.Code,
		"patientId":      c.PatientID,
		"createdBy":      callerID,
		"reason":         reason,
		"backedUpAt":     s.timestamp(),
		"data":           sealed,
	}
	if err := s.store.Create(ctx, store.ConsultationBackupCollection, backup); err != nil {
		s.logger.Error("consultation backup failed", zap.String("consultation", c.Code), zap.Error(err))
		return storageError(err)
	}
	return nil
}

func (s *Service) syncInitial(ctx context.Context, patientID string, p *models.Patient, callerID string) (SyncResult, error) {
	result := SyncResult{FieldsUpdated: []string{}}
	if err := requireCaller(callerID); err != nil {
		return result, err
	}
	if p == nil {
		loaded, err := s.getPatient(ctx, patientID, callerID)
		if err != nil {
			return result, err
		}
		p = loaded
	}
	if p.CreatedBy != "" && p.CreatedBy != callerID {
		return result, newError(KindAuthorizationDenied, ACCESS_DENIED)
	}
	initial, err := s.findInitialConsultation(ctx, patientID, callerID)
	if err != nil {
		return result, err
	}
	result.ConsultationID = initial.Code

	changes := stageSync(initial, p)
	if len(changes) == 0 {
		result.Success = true
		return result, nil
	}
	if err := s.backupConsultation(ctx, initial, callerID, "initial-consultation-sync"); err != nil {
		return result, err
	}
	if err := s.update(ctx, store.ConsultationCollection, initial.Code, changes, callerID); err != nil {
		return result, err
	}
	result.Success = true
	result.FieldsUpdated = fieldNames(changes)
	return result, nil
}

/*
* Locate the patient's initial consultation (never created here)
* Stage the mirrored fields that changed
* Back the consultation up, then write the changed subset
* Audit the outcome; errors are reported in the result, never returned
 */
func (s *Service) SyncInitialConsultation(ctx context.Context, patientID string, patient *models.Patient, callerID string) SyncResult {
	result, _ := s.runSync(ctx, patientID, patient, callerID)
	return result
}

// HandleSyncTask is the queue handler. Only storage failures are retried.
func (s *Service) HandleSyncTask(ctx context.Context, task queue.SyncTask) error {
	_, err := s.runSync(ctx, task.PatientID, nil, task.OwnerID)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageFailure) {
		return err
	}
	s.logger.Warn("sync task dropped", zap.String("patient", task.PatientID), zap.String("owner", task.OwnerID), zap.Error(err))
	return nil
}

// runSync is the single entry to the synchronizer: every attempt, inline or
// queued, is logged and audited as a DATA_SYNC event.
func (s *Service) runSync(ctx context.Context, patientID string, patient *models.Patient, callerID string) (SyncResult, error) {
	result, err := s.syncInitial(ctx, patientID, patient, callerID)
	outcome := compliance.OutcomeSuccess
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		outcome = compliance.OutcomeFailure
		s.logger.Warn("initial consultation sync failed", zap.String("patient", patientID), zap.Error(err))
	} else if len(result.FieldsUpdated) > 0 {
		s.logger.Info("initial consultation synced",
			zap.String("patient", patientID),
			zap.String("consultation", result.ConsultationID),
			zap.Strings("fields", result.FieldsUpdated))
	}
	s.audit(ctx, compliance.EventSync, store.ConsultationCollection, result.ConsultationID, compliance.ActionUpdate, outcome, callerID,
		map[string]interface{}{"patientId": patientID, "fieldsUpdated": result.FieldsUpdated, "error": result.Error})
	return result, err
}

/*
* Run the synchronizer for every patient of the caller
* Optionally only patients created before the cutoff
 */
func (s *Service) SyncAllInitialConsultations(ctx context.Context, callerID string, before *time.Time) (*RetroSyncReport, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	started := s.now()
	patients, err := s.listPatients(ctx, nil, callerID)
	if err != nil {
		return nil, err
	}
	report := &RetroSyncReport{Errors: []string{}}
	for _, p := range patients {
		if before != nil && !p.CreatedAt.Before(*before) {
			continue
		}
		report.Processed++
		result := s.SyncInitialConsultation(ctx, p.Code, p, callerID)
		if !result.Success {
			report.Errors = append(report.Errors, fmt.Sprintf("patient %s: %s", p.Code, result.Error))
			continue
		}
		if len(result.FieldsUpdated) > 0 {
			report.Updated++
		}
	}
	s.record(ctx, "sync", callerID, started, report, nil)
	return report, nil
}
