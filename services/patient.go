package services

import (
	"context"
	"strings"

	"PracticeHub360/models"
	"PracticeHub360/queue"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var patientUpdatable = map[string]bool{
	"firstName": true, "lastName": true, "dateOfBirth": true, "gender": true, "email": true,
	"phone": true, "profession": true, "address": true, "insurance": true,
	"consultationReason": true, "currentTreatment": true, "medicalAntecedents": true,
	"medicalHistory": true, "osteopathicTreatment": true, "tags": true, "notes": true,
}

/*
* Validate names, generate the code and stamp ownership
* Save the patient
* Create the initial consultation with the clinical snapshot; remove the patient if that fails
* Create the invoice of the initial consultation (failure only logged)
 */
func (s *Service) CreatePatient(ctx context.Context, p *models.Patient, callerID string) (*models.Patient, *models.Consultation, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return nil, nil, newError(KindInvalidInput, "firstName and lastName are required")
	}
	now := s.timestamp()
	p.Code = s.newCode()
	p.CreatedBy = callerID
	p.CreatedAt = now
	p.UpdatedAt = now
	p.UpdatedBy = callerID
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Documents == nil {
		p.Documents = []models.Document{}
	}
	if p.TreatmentHistory == nil {
		p.TreatmentHistory = []models.TreatmentEntry{}
	}
	if err := s.create(ctx, store.PatientCollection, p.Code, p, callerID); err != nil {
		return nil, nil, err
	}

	initial := &models.Consultation{
		Code:                  s.newCode(),
		PatientID:             p.Code,
		Date:                  now,
		Duration:              60,
		Status:                models.ConsultationCompleted,
		Reason:                DefaultReason,
		Treatment:             DefaultTreatment,
		Notes:                 p.Notes,
		IsInitialConsultation: true,
		Documents:             []models.Document{},
		Examinations:          []string{},
		Prescriptions:         []string{},
		CreatedAt:             now,
		CreatedBy:             callerID,
		UpdatedAt:             now,
		UpdatedBy:             callerID,
	}
	models.SnapshotPatient(initial, p)
	if s.usable(p.ConsultationReason) {
		initial.Reason = p.ConsultationReason
	}
	if s.usable(p.OsteopathicTreatment) {
		initial.Treatment = p.OsteopathicTreatment
	}
	if err := s.create(ctx, store.ConsultationCollection, initial.Code, initial, callerID); err != nil {
		s.logger.Error("initial consultation failed, removing patient", zap.String("patient", p.Code), zap.Error(err))
		if rmErr := s.remove(ctx, store.PatientCollection, p.Code, callerID); rmErr != nil {
			s.logger.Error("patient rollback failed", zap.String("patient", p.Code), zap.Error(rmErr))
		}
		return nil, nil, err
	}
	if _, err := s.ensureInvoice(ctx, initial, callerID); err != nil {
		s.logger.Error("initial invoice failed", zap.String("consultation", initial.Code), zap.Error(err))
	}
	return p, initial, nil
}

func (s *Service) GetPatient(ctx context.Context, patientID, callerID string) (*models.Patient, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.getPatient(ctx, patientID, callerID)
}

/*
* Keep only updatable fields and reject values the patient model cannot hold
* A changed currentTreatment pushes the previous one to treatmentHistory
* Save the patient
* Hand the initial consultation sync to the dispatcher; its failure never fails the update
 */
func (s *Service) UpdatePatient(ctx context.Context, patientID string, data map[string]interface{}, callerID string) (*models.Patient, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	current, err := s.getPatient(ctx, patientID, callerID)
	if err != nil {
		return nil, err
	}
	fields := bson.M{}
	for k, v := range data {
		if patientUpdatable[k] {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return nil, newError(KindInvalidInput, "no updatable field in request")
	}
	if err := conform(fields, &models.Patient{}); err != nil {
		return nil, err
	}
	if next, ok := fields["currentTreatment"].(string); ok && current.CurrentTreatment != "" && next != current.CurrentTreatment {
		history := append(current.TreatmentHistory, models.TreatmentEntry{
			Date:      s.timestamp(),
			Treatment: current.CurrentTreatment,
			Provider:  callerID,
		})
		fields["treatmentHistory"] = history
	}
	if err := s.update(ctx, store.PatientCollection, patientID, fields, callerID); err != nil {
		return nil, err
	}
	updated, err := s.getPatient(ctx, patientID, callerID)
	if err != nil {
		return nil, err
	}
	s.afterPatientUpdate(ctx, updated, callerID)
	return updated, nil
}

func (s *Service) afterPatientUpdate(ctx context.Context, p *models.Patient, callerID string) {
	if s.dispatcher == nil {
		s.SyncInitialConsultation(ctx, p.Code, p, callerID)
		return
	}
	task := queue.SyncTask{PatientID: p.Code, OwnerID: callerID, EnqueuedAt: s.now()}
	if err := s.dispatcher.Enqueue(ctx, task); err != nil {
		s.logger.Error("sync task not queued", zap.String("patient", p.Code), zap.Error(err))
	}
}
