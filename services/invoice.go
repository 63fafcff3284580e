package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"PracticeHub360/models"
	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type InvoiceReport struct {
	Scanned int      `json:"scanned"`
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}

// invoiceNumber is "INV-" followed by the last six digits of the unix millis.
func invoiceNumber(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return "INV-" + ms
}

// retroactiveNumber is "F-YYYYMMDD-HHMM-" followed by the last four characters
// of the consultation code.
func retroactiveNumber(c *models.Consultation) string {
	suffix := c.Code
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("F-%s-%s", c.Date.UTC().Format("20060102-1504"), suffix)
}

func (s *Service) amountFor(c *models.Consultation) float64 {
	if c.Price > 0 {
		return c.Price
	}
	return s.defaultAmount
}

func (s *Service) buildInvoice(c *models.Consultation, callerID string) *models.Invoice {
	now := s.timestamp()
	amount := s.amountFor(c)
	description := c.Reason
	if description == "" {
		description = DefaultReason
	}
	return &models.Invoice{
		Code:           s.newCode(),
		ConsultationID: c.Code,
		PatientID:      c.PatientID,
		PatientName:    c.PatientName,
		IssueDate:      c.Date,
		DueDate:        c.Date,
		Items: []models.InvoiceItem{{
			Description: description,
			Quantity:    1,
			UnitPrice:   amount,
			Amount:      amount,
		}},
		Subtotal:  amount,
		Tax:       0,
		Total:     amount,
		CreatedAt: now,
		CreatedBy: callerID,
		UpdatedAt: now,
		UpdatedBy: callerID,
	}
}

/*
* Skip when the consultation already has an invoice
* Build a paid invoice for the consultation price (default amount when unset)
* Save it
 */
func (s *Service) ensureInvoice(ctx context.Context, c *models.Consultation, callerID string) (*models.Invoice, error) {
	existing, err := s.listInvoices(ctx, bson.M{"consultationId": c.Code}, callerID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		s.logger.Debug("invoice already exists", zap.String("consultation", c.Code))
		return existing[0], nil
	}
	inv := s.buildInvoice(c, callerID)
	paidAt := inv.CreatedAt
	inv.Number = invoiceNumber(s.now())
	inv.Status = models.InvoicePaid
	inv.PaidAt = &paidAt
	inv.Notes = "Facture générée automatiquement pour la consultation du " + c.Date.Format("02/01/2006")
	if err := s.create(ctx, store.InvoiceCollection, inv.Code, inv, callerID); err != nil {
		return nil, err
	}
	return inv, nil
}

/*
* Index the caller's invoices by consultation
* Create a draft retroactive invoice for every non-cancelled consultation without one
 */
func (s *Service) GenerateMissingInvoices(ctx context.Context, callerID string) (*InvoiceReport, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	started := s.now()
	consultations, err := s.listConsultations(ctx, nil, callerID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.listInvoices(ctx, nil, callerID)
	if err != nil {
		return nil, err
	}
	invoiced := map[string]bool{}
	for _, inv := range invoices {
		invoiced[inv.ConsultationID] = true
	}

	report := &InvoiceReport{Errors: []string{}}
	for _, c := range consultations {
		report.Scanned++
		if invoiced[c.Code] || c.Status == models.ConsultationCancelled {
			continue
		}
		inv := s.buildInvoice(c, callerID)
		inv.Number = retroactiveNumber(c)
		inv.Status = models.InvoiceDraft
		inv.DueDate = c.Date.AddDate(0, 0, 30)
		inv.IsRetroactive = true
		inv.Notes = "Facture générée rétroactivement"
		if err := s.create(ctx, store.InvoiceCollection, inv.Code, inv, callerID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("consultation %s: %v", c.Code, err))
			continue
		}
		invoiced[c.Code] = true
		report.Created++
	}
	s.logger.Info("missing invoices generated", zap.String("caller", callerID), zap.Int("created", report.Created))
	s.record(ctx, "invoices", callerID, started, report, nil)
	return report, nil
}
