package services

import (
	"context"
	"fmt"
	"sort"

	"PracticeHub360/models"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type MigrationStatus struct {
	Patients                    int  `json:"patients"`
	Consultations               int  `json:"consultations"`
	NeedingMigration            int  `json:"needingMigration"`
	PatientsWithoutInitial      int  `json:"patientsWithoutInitial"`
	DuplicateClusters           int  `json:"duplicateClusters"`
	ConsultationsWithoutInvoice int  `json:"consultationsWithoutInvoice"`
	InvoicesAwaitingReview      int  `json:"invoicesAwaitingReview"`
	Clean                       bool `json:"clean"`
}

// MigrationStatus summarizes what the maintenance operations would change
// for the caller, without changing anything.
func (s *Service) MigrationStatus(ctx context.Context, callerID string) (*MigrationStatus, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	patients, err := s.listPatients(ctx, nil, callerID)
	if err != nil {
		return nil, err
	}
	consultations, err := s.listConsultations(ctx, nil, callerID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.listInvoices(ctx, nil, callerID)
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{Patients: len(patients), Consultations: len(consultations)}
	byCode := map[string]*models.Patient{}
	for _, p := range patients {
		byCode[p.Code] = p
	}
	hasInitial := map[string]bool{}
	invoiced := map[string]bool{}
	for _, inv := range invoices {
		invoiced[inv.ConsultationID] = true
		if inv.NeedsReview {
			status.InvoicesAwaitingReview++
		}
	}
	for _, c := range consultations {
		if c.IsInitialConsultation {
			hasInitial[c.PatientID] = true
		}
		if s.needsMigration(c) && len(s.planMigration(c, byCode[c.PatientID])) > 0 {
			status.NeedingMigration++
		}
		if !invoiced[c.Code] && c.Status != models.ConsultationCancelled {
			status.ConsultationsWithoutInvoice++
		}
	}
	for _, p := range patients {
		if !hasInitial[p.Code] {
			status.PatientsWithoutInitial++
		}
	}
	order, groups := groupByPatient(consultations)
	for _, patientID := range order {
		status.DuplicateClusters += len(ClusterByWindow(groups[patientID], s.window))
	}
	status.Clean = status.NeedingMigration == 0 && status.PatientsWithoutInitial == 0 &&
		status.DuplicateClusters == 0 && status.ConsultationsWithoutInvoice == 0 && status.InvoicesAwaitingReview == 0
	return status, nil
}

/*
* For every patient of the caller without a flagged consultation
* flag the earliest consultation as the initial one
* Return how many were flagged
 */
func (s *Service) MarkInitialConsultations(ctx context.Context, callerID string) (int, []string, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, nil, err
	}
	consultations, err := s.listConsultations(ctx, nil, callerID)
	if err != nil {
		return 0, nil, err
	}
	order, groups := groupByPatient(consultations)
	flagged := 0
	errs := []string{}
	for _, patientID := range order {
		group := groups[patientID]
		hasInitial := false
		for _, c := range group {
			if c.IsInitialConsultation {
				hasInitial = true
				break
			}
		}
		if hasInitial {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })
		if err := s.update(ctx, store.ConsultationCollection, group[0].Code, bson.M{"isInitialConsultation": true}, callerID); err != nil {
			errs = append(errs, fmt.Sprintf("consultation %s: %v", group[0].Code, err))
			continue
		}
		flagged++
	}
	if flagged > 0 {
		s.logger.Info("initial consultations flagged", zap.String("caller", callerID), zap.Int("count", flagged))
	}
	return flagged, errs, nil
}

// Owners lists every practitioner owning at least one patient. Used by jobs
// and migrations that run outside a request.
func (s *Service) Owners(ctx context.Context) ([]string, error) {
	docs, err := s.store.Query(ctx, store.PatientCollection, nil)
	if err != nil {
		s.logger.Error("owner scan failed", zap.Error(err))
		return nil, storageError(err)
	}
	seen := map[string]bool{}
	owners := []string{}
	for _, doc := range docs {
		owner, _ := doc["createdBy"].(string)
		if owner == "" || seen[owner] {
			continue
		}
		seen[owner] = true
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}
