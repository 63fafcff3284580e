package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PracticeHub360/models"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type ConsultationInput struct {
	PatientID     string                          `json:"patientId"`
	Date          time.Time                       `json:"date"`
	Duration      int                             `json:"duration"`
	Price         float64                         `json:"price"`
	Status        string                          `json:"status"`
	Reason        string                          `json:"reason"`
	Treatment     string                          `json:"treatment"`
	Notes         string                          `json:"notes"`
	Clinical      map[models.ClinicalField]string `json:"clinical"`
	Symptoms      []string                        `json:"symptoms"`
	Examinations  []string                        `json:"examinations"`
	Prescriptions []string                        `json:"prescriptions"`
}

// ConsultationView is a consultation with its resolved clinical fields.
type ConsultationView struct {
	Consultation *models.Consultation `json:"consultation"`
	Resolved     []Resolution         `json:"resolved"`
}

var consultationStatuses = map[string]bool{
	models.ConsultationDraft:     true,
	models.ConsultationCompleted: true,
	models.ConsultationCancelled: true,
}

var consultationUpdatable = map[string]bool{
	"date": true, "duration": true, "price": true, "status": true, "reason": true,
	"treatment": true, "notes": true, "consultationReason": true, "currentTreatment": true,
	"medicalAntecedents": true, "medicalHistory": true, "osteopathicTreatment": true,
	"symptoms": true, "examinations": true, "prescriptions": true,
}

func setClinical(c *models.Consultation, f models.ClinicalField, v string) {
	switch f {
	case models.ConsultationReason:
		c.ConsultationReason = v
	case models.CurrentTreatment:
		c.CurrentTreatment = v
	case models.MedicalAntecedents:
		c.MedicalAntecedents = v
	case models.MedicalHistory:
		c.MedicalHistory = v
	case models.OsteopathicTreatment:
		c.OsteopathicTreatment = v
	}
}

/*
* Validate the input and load the patient (ownership checked)
* Reject when another consultation of the patient is within the window
* Snapshot the patient, apply the input, save
* Create the invoice; an invoice failure is logged and the consultation kept
 */
func (s *Service) CreateConsultation(ctx context.Context, in ConsultationInput, callerID string) (*models.Consultation, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if in.PatientID == "" || in.Date.IsZero() {
		return nil, newError(KindInvalidInput, "patientId and date are required")
	}
	if in.Status == "" {
		in.Status = models.ConsultationCompleted
	}
	if !consultationStatuses[in.Status] {
		return nil, newError(KindInvalidInput, "invalid consultation status "+in.Status)
	}
	p, err := s.getPatient(ctx, in.PatientID, callerID)
	if err != nil {
		s.logger.Error("patient lookup failed", zap.String("patient", in.PatientID), zap.Error(err))
		return nil, err
	}
	if err := s.CheckDuplicateWindow(ctx, in.PatientID, in.Date, callerID, ""); err != nil {
		return nil, err
	}

	now := s.timestamp()
	c := &models.Consultation{
		Code:          s.newCode(),
		PatientID:     p.Code,
		Date:          in.Date.UTC(),
		Duration:      in.Duration,
		Price:         in.Price,
		Status:        in.Status,
		Reason:        in.Reason,
		Treatment:     in.Treatment,
		Notes:         in.Notes,
		Documents:     []models.Document{},
		Examinations:  nonNil(in.Examinations),
		Prescriptions: nonNil(in.Prescriptions),
		CreatedAt:     now,
		CreatedBy:     callerID,
		UpdatedAt:     now,
		UpdatedBy:     callerID,
	}
	models.SnapshotPatient(c, p)
	for f, v := range in.Clinical {
		if strings.TrimSpace(v) != "" {
			setClinical(c, f, v)
		}
	}
	if len(in.Symptoms) > 0 {
		c.Symptoms = in.Symptoms
	}
	if err := s.create(ctx, store.ConsultationCollection, c.Code, c, callerID); err != nil {
		return nil, err
	}
	if _, err := s.ensureInvoice(ctx, c, callerID); err != nil {
		s.logger.Error("automatic invoice failed", zap.String("consultation", c.Code), zap.Error(err))
	}
	return c, nil
}

func parseDate(v interface{}) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339, d)
		if err != nil {
			return time.Time{}, newError(KindInvalidInput, "date must be RFC3339")
		}
		return t.UTC(), nil
	}
	return time.Time{}, newError(KindInvalidInput, fmt.Sprintf("unsupported date type %T", v))
}

/*
* Keep only updatable fields and reject values the consultation model cannot hold
* The initial consultation's date cannot move
* A new date goes through the duplicate window check
* Save the changed fields; the snapshot becomes authoritative
 */
func (s *Service) UpdateConsultation(ctx context.Context, consultationID string, data map[string]interface{}, callerID string) (*models.Consultation, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	c, err := s.getConsultation(ctx, consultationID, callerID)
	if err != nil {
		return nil, err
	}
	fields := bson.M{}
	for k, v := range data {
		if consultationUpdatable[k] {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return nil, newError(KindInvalidInput, "no updatable field in request")
	}
	if raw, ok := fields["date"]; ok {
		date, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		fields["date"] = date
	}
	if err := conform(fields, &models.Consultation{}); err != nil {
		return nil, err
	}
	if status, ok := fields["status"].(string); ok && !consultationStatuses[status] {
		return nil, newError(KindInvalidInput, "invalid consultation status "+status)
	}
	if date, ok := fields["date"].(time.Time); ok && !date.Equal(c.Date) {
		if c.IsInitialConsultation {
			return nil, newError(KindValidationConflict, INITIAL_CONSULTATION_DATE_LOCKED)
		}
		if err := s.CheckDuplicateWindow(ctx, c.PatientID, date, callerID, c.Code); err != nil {
			return nil, err
		}
	}
	if err := s.update(ctx, store.ConsultationCollection, c.Code, fields, callerID); err != nil {
		return nil, err
	}
	return s.getConsultation(ctx, c.Code, callerID)
}

// ResolveConsultation returns the consultation with display values resolved
// against the current patient profile.
func (s *Service) ResolveConsultation(ctx context.Context, consultationID, callerID string) (*ConsultationView, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	c, err := s.getConsultation(ctx, consultationID, callerID)
	if err != nil {
		return nil, err
	}
	var p *models.Patient
	if c.IsInitialConsultation {
		p, err = s.fallbackPatient(ctx, c.PatientID, callerID, nil)
		if err != nil {
			return nil, err
		}
	}
	return &ConsultationView{Consultation: c, Resolved: s.resolver.ResolveAll(c, p)}, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
