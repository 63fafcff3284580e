package models

import (
	"time"
)

const (
	InvoiceDraft     = "draft"
	InvoiceSent      = "sent"
	InvoicePaid      = "paid"
	InvoiceCancelled = "cancelled"
)

type InvoiceItem struct {
	Description string  `json:"description" bson:"description"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	UnitPrice   float64 `json:"unitPrice" bson:"unitPrice"`
	Amount      float64 `json:"amount" bson:"amount"`
}

type Invoice struct {
	Code           string        `json:"code" bson:"code"`
	ConsultationID string        `json:"consultationId" bson:"consultationId"`
	PatientID      string        `json:"patientId" bson:"patientId"`
	PatientName    string        `json:"patientName" bson:"patientName"`
	Number         string        `json:"number" bson:"number"`
	IssueDate      time.Time     `json:"issueDate" bson:"issueDate"`
	DueDate        time.Time     `json:"dueDate" bson:"dueDate"`
	Items          []InvoiceItem `json:"items" bson:"items"`
	Subtotal       float64       `json:"subtotal" bson:"subtotal"`
	Tax            float64       `json:"tax" bson:"tax"`
	Total          float64       `json:"total" bson:"total"`
	Status         string        `json:"status" bson:"status"`
	PaidAt         *time.Time    `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	Notes          string        `json:"notes" bson:"notes"`
	NeedsReview    bool          `json:"needsReview" bson:"needsReview"`
	ReviewReason   string        `json:"reviewReason,omitempty" bson:"reviewReason,omitempty"`
	IsRetroactive  bool          `json:"isRetroactive" bson:"isRetroactive"`
	CreatedAt      time.Time     `json:"createdAt" bson:"createdAt"`
	CreatedBy      string        `json:"createdBy" bson:"createdBy"`
	UpdatedAt      time.Time     `json:"updatedAt" bson:"updatedAt"`
	UpdatedBy      string        `json:"updatedBy" bson:"updatedBy"`
}
