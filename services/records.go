package services

import (
	"context"
	"errors"
	"sort"

	"PracticeHub360/compliance"
	"PracticeHub360/models"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func requireCaller(callerID string) error {
	if callerID == "" {
		return newError(KindAuthenticationRequired, AUTHENTICATION_REQUIRED)
	}
	return nil
}

/*
* Get the raw document
* Map a missing document to NotFound with the given message
* Compare createdBy with the caller
* Decrypt for display
 */
func (s *Service) fetch(ctx context.Context, collection, code, callerID, notFound string) (bson.M, error) {
	raw, err := s.store.Get(ctx, collection, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, notFound)
		}
		s.logger.Error("get failed", zap.String("collection", collection), zap.String("code", code), zap.Error(err))
		return nil, storageError(err)
	}
	if owner, _ := raw["createdBy"].(string); owner != callerID {
		s.logger.Warn("ownership mismatch", zap.String("collection", collection), zap.String("code", code), zap.String("caller", callerID))
		return nil, newError(KindAuthorizationDenied, ACCESS_DENIED)
	}
	doc, err := s.encryptor.DecryptForDisplay(ctx, raw, collection, callerID)
	if err != nil {
		s.logger.Error("decrypt failed", zap.String("collection", collection), zap.String("code", code), zap.Error(err))
		return nil, storageError(err)
	}
	return doc, nil
}

// query returns the caller's decrypted documents matching filter.
func (s *Service) query(ctx context.Context, collection string, filter bson.M, callerID string) ([]bson.M, error) {
	scoped := bson.M{"createdBy": callerID}
	for k, v := range filter {
		scoped[k] = v
	}
	raws, err := s.store.Query(ctx, collection, scoped)
	if err != nil {
		s.logger.Error("query failed", zap.String("collection", collection), zap.Error(err))
		return nil, storageError(err)
	}
	docs := make([]bson.M, 0, len(raws))
	for _, raw := range raws {
		doc, err := s.encryptor.DecryptForDisplay(ctx, raw, collection, callerID)
		if err != nil {
			s.logger.Error("decrypt failed", zap.String("collection", collection), zap.Any("code", raw["code"]), zap.Error(err))
			return nil, storageError(err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Service) getPatient(ctx context.Context, code, callerID string) (*models.Patient, error) {
	doc, err := s.fetch(ctx, store.PatientCollection, code, callerID, PATIENT_NOT_FOUND)
	if err != nil {
		return nil, err
	}
	p, err := models.DecodePatient(doc)
	if err != nil {
		return nil, storageError(err)
	}
	return p, nil
}

func (s *Service) getConsultation(ctx context.Context, code, callerID string) (*models.Consultation, error) {
	doc, err := s.fetch(ctx, store.ConsultationCollection, code, callerID, CONSULTATION_NOT_FOUND)
	if err != nil {
		return nil, err
	}
	c, err := models.DecodeConsultation(doc)
	if err != nil {
		return nil, storageError(err)
	}
	return c, nil
}

func (s *Service) listPatients(ctx context.Context, filter bson.M, callerID string) ([]*models.Patient, error) {
	docs, err := s.query(ctx, store.PatientCollection, filter, callerID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Patient, 0, len(docs))
	for _, doc := range docs {
		p, err := models.DecodePatient(doc)
		if err != nil {
			s.logger.Warn("skipping undecodable patient", zap.Any("code", doc["code"]), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) listConsultations(ctx context.Context, filter bson.M, callerID string) ([]*models.Consultation, error) {
	docs, err := s.query(ctx, store.ConsultationCollection, filter, callerID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Consultation, 0, len(docs))
	for _, doc := range docs {
		c, err := models.DecodeConsultation(doc)
		if err != nil {
			s.logger.Warn("skipping undecodable consultation", zap.Any("code", doc["code"]), zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) listInvoices(ctx context.Context, filter bson.M, callerID string) ([]*models.Invoice, error) {
	docs, err := s.query(ctx, store.InvoiceCollection, filter, callerID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Invoice, 0, len(docs))
	for _, doc := range docs {
		i, err := models.DecodeInvoice(doc)
		if err != nil {
			s.logger.Warn("skipping undecodable invoice", zap.Any("code", doc["code"]), zap.Error(err))
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (s *Service) create(ctx context.Context, collection, code string, v interface{}, callerID string) error {
	doc, err := models.ToDocument(v)
	if err != nil {
		return storageError(err)
	}
	sealed, err := s.encryptor.EncryptForStorage(ctx, doc, collection, callerID)
	if err != nil {
		s.logger.Error("encrypt failed", zap.String("collection", collection), zap.Error(err))
		return storageError(err)
	}
	if err := s.store.Create(ctx, collection, sealed); err != nil {
		s.logger.Error("create failed", zap.String("collection", collection), zap.String("code", code), zap.Error(err))
		s.audit(ctx, compliance.EventCreation, collection, code, compliance.ActionCreate, compliance.OutcomeFailure, callerID, nil)
		return storageError(err)
	}
	s.audit(ctx, compliance.EventCreation, collection, code, compliance.ActionCreate, compliance.OutcomeSuccess, callerID, nil)
	return nil
}

// update writes a partial document; updatedAt and updatedBy are stamped here.
func (s *Service) update(ctx context.Context, collection, code string, fields bson.M, callerID string) error {
	patch := bson.M{}
	for k, v := range fields {
		patch[k] = v
	}
	patch["updatedAt"] = s.timestamp()
	patch["updatedBy"] = callerID
	sealed, err := s.encryptor.EncryptForStorage(ctx, patch, collection, callerID)
	if err != nil {
		s.logger.Error("encrypt failed", zap.String("collection", collection), zap.Error(err))
		return storageError(err)
	}
	details := map[string]interface{}{"fields": fieldNames(fields)}
	if err := s.store.Update(ctx, collection, code, sealed); err != nil {
		s.logger.Error("update failed", zap.String("collection", collection), zap.String("code", code), zap.Error(err))
		s.audit(ctx, compliance.EventModification, collection, code, compliance.ActionUpdate, compliance.OutcomeFailure, callerID, details)
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, collection+" "+code+" not found")
		}
		return storageError(err)
	}
	s.audit(ctx, compliance.EventModification, collection, code, compliance.ActionUpdate, compliance.OutcomeSuccess, callerID, details)
	return nil
}

func (s *Service) remove(ctx context.Context, collection, code, callerID string) error {
	if err := s.store.Delete(ctx, collection, code); err != nil {
		s.logger.Error("delete failed", zap.String("collection", collection), zap.String("code", code), zap.Error(err))
		s.audit(ctx, compliance.EventDeletion, collection, code, compliance.ActionDelete, compliance.OutcomeFailure, callerID, nil)
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, collection+" "+code+" not found")
		}
		return storageError(err)
	}
	s.audit(ctx, compliance.EventDeletion, collection, code, compliance.ActionDelete, compliance.OutcomeSuccess, callerID, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, eventType, collection, code, action, outcome, callerID string, details map[string]interface{}) {
	sensitivity := compliance.SensitivityHigh
	if collection == store.InvoiceCollection {
		sensitivity = compliance.SensitivityMedium
	}
	err := s.auditor.Log(ctx, compliance.AuditEvent{
		EventType:    eventType,
		ResourcePath: collection + "/" + code,
		Action:       action,
		Sensitivity:  sensitivity,
		Outcome:      outcome,
		Actor:        callerID,
		Details:      details,
	})
	if err != nil {
		s.logger.Warn("audit failed", zap.String("resource", collection+"/"+code), zap.Error(err))
	}
}

// conform rejects a partial update whose values would not decode into the
// record's model, so a write never leaves an unreadable document behind.
func conform(fields bson.M, model interface{}) error {
	raw, err := bson.Marshal(fields)
	if err == nil {
		err = bson.Unmarshal(raw, model)
	}
	if err != nil {
		return newError(KindInvalidInput, INVALID_FIELD_TYPE+": "+err.Error())
	}
	return nil
}

func fieldNames(fields bson.M) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
