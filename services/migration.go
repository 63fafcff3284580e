package services

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"PracticeHub360/models"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type MigrationError struct {
	ConsultationID string `json:"consultationId"`
	Error          string `json:"error"`
}

type MigrationReport struct {
	Total    int              `json:"total"`
	Migrated int              `json:"migrated"`
	Errors   []MigrationError `json:"errors"`
}

// missingClinicalProperty reports whether a required clinical property is
// absent from the stored consultation.
func missingClinicalProperty(c *models.Consultation) bool {
	for _, f := range models.RequiredClinicalFields {
		if !c.Has(string(f)) {
			return true
		}
	}
	return false
}

func (s *Service) needsMigration(c *models.Consultation) bool {
	if missingClinicalProperty(c) {
		return true
	}
	for _, f := range models.IdentityFields {
		if !c.Has(f.Key) {
			return true
		}
	}
	for _, f := range models.ClinicalTextFields {
		if s.detector.IsInvalid(c.ClinicalText(f)) {
			return true
		}
	}
	return s.detector.IsInvalid(c.Reason) || s.detector.IsInvalid(c.Treatment)
}

// usable reports whether a patient value can replace a corrupted one.
func (s *Service) usable(value string) bool {
	return strings.TrimSpace(value) != "" && !s.detector.IsInvalid(value)
}

/*
* Clinical text fields: patient value replaces an INVALID value when usable, else keep current (absent becomes "")
* Symptoms: patient tags when the list is empty
* Identity snapshot: filled only when the property is absent
* reason / treatment: patient clinical value or generic phrase when INVALID
* Return only the properties that change
 */
func (s *Service) planMigration(c *models.Consultation, p *models.Patient) bson.M {
	if p == nil {
		p = &models.Patient{}
	}
	changes := bson.M{}

	for _, f := range models.ClinicalTextFields {
		current := c.ClinicalText(f)
		next := current
		if s.detector.IsInvalid(current) && s.usable(p.ClinicalText(f)) {
			next = p.ClinicalText(f)
		}
		if !c.Has(string(f)) || next != current {
			changes[string(f)] = next
		}
	}

	symptoms := c.ClinicalList(models.Symptoms)
	if len(symptoms) == 0 {
		tags := p.ClinicalList(models.Symptoms)
		if len(tags) > 0 {
			changes[string(models.Symptoms)] = append([]string{}, tags...)
		} else if !c.Has(string(models.Symptoms)) {
			changes[string(models.Symptoms)] = []string{}
		}
	}

	for _, f := range models.IdentityFields {
		if !c.Has(f.Key) {
			changes[f.Key] = f.FromPatient(p)
		}
	}

	if s.detector.IsInvalid(c.Reason) {
		reason := DefaultReason
		if s.usable(p.ConsultationReason) {
			reason = p.ConsultationReason
		}
		if reason != c.Reason {
			changes["reason"] = reason
		}
	}
	if s.detector.IsInvalid(c.Treatment) {
		treatment := DefaultTreatment
		if s.usable(p.OsteopathicTreatment) {
			treatment = p.OsteopathicTreatment
		} else if s.usable(p.CurrentTreatment) {
			treatment = p.CurrentTreatment
		}
		if treatment != c.Treatment {
			changes["treatment"] = treatment
		}
	}
	return changes
}

// fallbackPatient loads the owning patient. A missing or foreign patient
// yields nil so the migration proceeds with empty fallbacks.
func (s *Service) fallbackPatient(ctx context.Context, patientID, callerID string, cache map[string]*models.Patient) (*models.Patient, error) {
	if p, ok := cache[patientID]; ok {
		return p, nil
	}
	var p *models.Patient
	if patientID != "" {
		found, err := s.getPatient(ctx, patientID, callerID)
		switch {
		case err == nil:
			p = found
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrAuthorizationDenied):
			s.logger.Warn("patient unavailable, using empty fallbacks", zap.String("patient", patientID), zap.Error(err))
		default:
			return nil, err
		}
	}
	if cache != nil {
		cache[patientID] = p
	}
	return p, nil
}

func (s *Service) migrate(ctx context.Context, c *models.Consultation, callerID string, cache map[string]*models.Patient) (bool, error) {
	if !s.needsMigration(c) {
		return false, nil
	}
	p, err := s.fallbackPatient(ctx, c.PatientID, callerID, cache)
	if err != nil {
		return false, err
	}
	changes := s.planMigration(c, p)
	if len(changes) == 0 {
		return false, nil
	}
	if err := s.update(ctx, store.ConsultationCollection, c.Code, changes, callerID); err != nil {
		return false, err
	}
	s.logger.Info("consultation migrated", zap.String("consultation", c.Code), zap.Strings("fields", fieldNames(changes)))
	return true, nil
}

/*
* Snapshot the caller's consultations
* Skip records that do not need migration
* Backfill each from its patient, collecting per-record errors
* Record the run in diagnostics
 */
func (s *Service) MigrateAll(ctx context.Context, callerID string) (*MigrationReport, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	started := s.now()
	consultations, err := s.listConsultations(ctx, nil, callerID)
	if err != nil {
		s.record(ctx, "migrate", callerID, started, nil, err)
		return nil, err
	}

	report := &MigrationReport{Total: len(consultations), Errors: []MigrationError{}}
	cache := map[string]*models.Patient{}
	for _, c := range consultations {
		migrated, err := s.migrate(ctx, c, callerID, cache)
		if err != nil {
			s.logger.Error("consultation migration failed", zap.String("consultation", c.Code), zap.Error(err))
			report.Errors = append(report.Errors, MigrationError{ConsultationID: c.Code, Error: err.Error()})
			continue
		}
		if migrated {
			report.Migrated++
		}
	}
	s.logger.Info("migration run finished",
		zap.String("caller", callerID),
		zap.Int("total", report.Total),
		zap.Int("migrated", report.Migrated),
		zap.Int("errors", len(report.Errors)))
	s.record(ctx, "migrate", callerID, started, report, nil)
	return report, nil
}

// MigrateOne repairs a single consultation owned by the caller.
func (s *Service) MigrateOne(ctx context.Context, consultationID, callerID string) (bool, error) {
	if err := requireCaller(callerID); err != nil {
		return false, err
	}
	c, err := s.getConsultation(ctx, consultationID, callerID)
	if err != nil {
		return false, err
	}
	return s.migrate(ctx, c, callerID, nil)
}

// NeedsMigration is a presence-only pre-check. Unknown ids report false.
func (s *Service) NeedsMigration(ctx context.Context, consultationID, callerID string) (bool, error) {
	if err := requireCaller(callerID); err != nil {
		return false, err
	}
	c, err := s.getConsultation(ctx, consultationID, callerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return missingClinicalProperty(c), nil
}

func sameStrings(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
