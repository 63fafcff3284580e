package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"PracticeHub360/models"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type DedupReport struct {
	DedupConsultations       int      `json:"dedupConsultations"`
	RelinkedInvoices         int      `json:"relinkedInvoices"`
	DeletedInvoiceDuplicates int      `json:"deletedInvoiceDuplicates"`
	FlaggedForReview         int      `json:"flaggedForReview"`
	Errors                   []string `json:"errors"`
}

// Err reports ReviewRequired when the run left invoices for a human to resolve.
func (r *DedupReport) Err() error {
	if r.FlaggedForReview == 0 {
		return nil
	}
	return newError(KindReviewRequired, fmt.Sprintf(INVOICES_NEED_REVIEW, r.FlaggedForReview))
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// ClusterByWindow groups one patient's consultations. Consultations are taken
// in date order; each unprocessed one seeds a group and collects every later
// unprocessed consultation within window of the seed. Only groups with more
// than one member are returned.
func ClusterByWindow(consultations []*models.Consultation, window time.Duration) [][]*models.Consultation {
	ordered := append([]*models.Consultation{}, consultations...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	processed := make([]bool, len(ordered))
	clusters := [][]*models.Consultation{}
	for i, seed := range ordered {
		if processed[i] {
			continue
		}
		processed[i] = true
		group := []*models.Consultation{seed}
		for j := i + 1; j < len(ordered); j++ {
			if processed[j] {
				continue
			}
			if withinWindow(seed.Date, ordered[j].Date, window) {
				group = append(group, ordered[j])
				processed[j] = true
			}
		}
		if len(group) > 1 {
			clusters = append(clusters, group)
		}
	}
	return clusters
}

// SelectSurvivor keeps the first-entered consultation: earliest createdAt,
// falling back to the consultation date.
func SelectSurvivor(cluster []*models.Consultation) *models.Consultation {
	survivor := cluster[0]
	for _, c := range cluster[1:] {
		if c.SortTime().Before(survivor.SortTime()) {
			survivor = c
		}
	}
	return survivor
}

func sameTotal(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

// selectInvoiceSurvivor prefers a paid invoice, then the most recently
// created numbered invoice, then the first one.
func selectInvoiceSurvivor(invoices []*models.Invoice) *models.Invoice {
	for _, inv := range invoices {
		if inv.Status == models.InvoicePaid {
			return inv
		}
	}
	var numbered *models.Invoice
	for _, inv := range invoices {
		if inv.Number == "" {
			continue
		}
		if numbered == nil || inv.CreatedAt.After(numbered.CreatedAt) {
			numbered = inv
		}
	}
	if numbered != nil {
		return numbered
	}
	return invoices[0]
}

/*
* Consultation pass: cluster per patient, relink losers' invoices to the survivor, delete losers
* Invoice pass: group by consultation, delete identical duplicates, flag differing totals
* Per-record failures are collected and the run continues
 */
func (s *Service) Deduplicate(ctx context.Context, callerID string) (*DedupReport, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	started := s.now()
	report := &DedupReport{Errors: []string{}}

	if err := s.dedupConsultations(ctx, callerID, report); err != nil {
		s.record(ctx, "deduplicate", callerID, started, report, err)
		return nil, err
	}
	if err := s.dedupInvoices(ctx, callerID, report); err != nil {
		s.record(ctx, "deduplicate", callerID, started, report, err)
		return nil, err
	}
	s.logger.Info("deduplication finished",
		zap.String("caller", callerID),
		zap.Int("consultations", report.DedupConsultations),
		zap.Int("relinked", report.RelinkedInvoices),
		zap.Int("invoicesDeleted", report.DeletedInvoiceDuplicates),
		zap.Int("flagged", report.FlaggedForReview))
	s.record(ctx, "deduplicate", callerID, started, report, nil)
	return report, nil
}

func groupByPatient(consultations []*models.Consultation) ([]string, map[string][]*models.Consultation) {
	order := []string{}
	groups := map[string][]*models.Consultation{}
	for _, c := range consultations {
		if _, ok := groups[c.PatientID]; !ok {
			order = append(order, c.PatientID)
		}
		groups[c.PatientID] = append(groups[c.PatientID], c)
	}
	return order, groups
}

func (s *Service) dedupConsultations(ctx context.Context, callerID string, report *DedupReport) error {
	consultations, err := s.listConsultations(ctx, nil, callerID)
	if err != nil {
		return err
	}
	order, groups := groupByPatient(consultations)
	for _, patientID := range order {
		for _, cluster := range ClusterByWindow(groups[patientID], s.window) {
			s.resolveCluster(ctx, cluster, callerID, report)
		}
	}
	return nil
}

func (s *Service) resolveCluster(ctx context.Context, cluster []*models.Consultation, callerID string, report *DedupReport) {
	survivor := SelectSurvivor(cluster)
	inheritsInitial := false
	for _, loser := range cluster {
		if loser == survivor {
			continue
		}
		invoices, err := s.listInvoices(ctx, bson.M{"consultationId": loser.Code}, callerID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("consultation %s: %v", loser.Code, err))
			continue
		}
		relinked := true
		for _, inv := range invoices {
			if err := s.update(ctx, store.InvoiceCollection, inv.Code, bson.M{"consultationId": survivor.Code}, callerID); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("invoice %s: %v", inv.Code, err))
				relinked = false
				continue
			}
			report.RelinkedInvoices++
		}
		if !relinked {
			continue
		}
		if err := s.remove(ctx, store.ConsultationCollection, loser.Code, callerID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("consultation %s: %v", loser.Code, err))
			continue
		}
		report.DedupConsultations++
		if loser.IsInitialConsultation {
			inheritsInitial = true
		}
		s.logger.Info("duplicate consultation removed",
			zap.String("patient", loser.PatientID),
			zap.String("removed", loser.Code),
			zap.String("survivor", survivor.Code),
			zap.Int("invoices", len(invoices)))
	}
	if inheritsInitial && !survivor.IsInitialConsultation {
		if err := s.update(ctx, store.ConsultationCollection, survivor.Code, bson.M{"isInitialConsultation": true}, callerID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("consultation %s: %v", survivor.Code, err))
		}
	}
}

func (s *Service) dedupInvoices(ctx context.Context, callerID string, report *DedupReport) error {
	invoices, err := s.listInvoices(ctx, nil, callerID)
	if err != nil {
		return err
	}
	order := []string{}
	groups := map[string][]*models.Invoice{}
	for _, inv := range invoices {
		if inv.ConsultationID == "" {
			continue
		}
		if _, ok := groups[inv.ConsultationID]; !ok {
			order = append(order, inv.ConsultationID)
		}
		groups[inv.ConsultationID] = append(groups[inv.ConsultationID], inv)
	}

	for _, consultationID := range order {
		group := groups[consultationID]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})

		identical := true
		for _, inv := range group[1:] {
			if !sameTotal(inv.Total, group[0].Total) {
				identical = false
				break
			}
		}
		if !identical {
			s.flagForReview(ctx, consultationID, group, callerID, report)
			continue
		}

		keep := selectInvoiceSurvivor(group)
		for _, inv := range group {
			if inv == keep {
				continue
			}
			if err := s.remove(ctx, store.InvoiceCollection, inv.Code, callerID); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("invoice %s: %v", inv.Code, err))
				continue
			}
			report.DeletedInvoiceDuplicates++
		}
	}
	return nil
}

func (s *Service) flagForReview(ctx context.Context, consultationID string, group []*models.Invoice, callerID string, report *DedupReport) {
	reason := fmt.Sprintf("%d invoices with different totals for consultation %s", len(group), consultationID)
	for _, inv := range group {
		if inv.NeedsReview && inv.ReviewReason == reason {
			continue
		}
		if err := s.update(ctx, store.InvoiceCollection, inv.Code, bson.M{"needsReview": true, "reviewReason": reason}, callerID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("invoice %s: %v", inv.Code, err))
			continue
		}
		report.FlaggedForReview++
	}
	s.logger.Warn("invoices need review", zap.String("consultation", consultationID), zap.Int("invoices", len(group)))
}

/*
* Load the patient's consultations
* Reject when any other consultation starts within the window of date
 */
func (s *Service) CheckDuplicateWindow(ctx context.Context, patientID string, date time.Time, callerID, excludeID string) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	existing, err := s.listConsultations(ctx, bson.M{"patientId": patientID}, callerID)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if c.Code == excludeID {
			continue
		}
		if withinWindow(c.Date, date, s.window) {
			s.logger.Warn("consultation rejected by duplicate window",
				zap.String("patient", patientID),
				zap.String("existing", c.Code),
				zap.Time("date", date))
			return newError(KindValidationConflict, fmt.Sprintf(CONSULTATION_WITHIN_WINDOW, int(s.window.Minutes())))
		}
	}
	return nil
}
