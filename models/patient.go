package models

import (
	"time"
)

type Address struct {
	Street  string `json:"street" bson:"street"`
	City    string `json:"city" bson:"city"`
	ZipCode string `json:"zipCode" bson:"zipCode"`
	Country string `json:"country" bson:"country"`
}

type Insurance struct {
	Provider     string `json:"provider" bson:"provider"`
	PolicyNumber string `json:"policyNumber" bson:"policyNumber"`
}

type Document struct {
	Code       string    `json:"code" bson:"code"`
	Name       string    `json:"name" bson:"name"`
	URL        string    `json:"url" bson:"url"`
	MimeType   string    `json:"mimeType" bson:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

type TreatmentEntry struct {
	Date      time.Time `json:"date" bson:"date"`
	Treatment string    `json:"treatment" bson:"treatment"`
	Provider  string    `json:"provider" bson:"provider"`
	Notes     string    `json:"notes" bson:"notes"`
}

// Patient holds the authoritative current clinical state. CreatedBy is the
// owning practitioner.
type Patient struct {
	Code                 string           `json:"code" bson:"code"`
	FirstName            string           `json:"firstName" bson:"firstName"`
	LastName             string           `json:"lastName" bson:"lastName"`
	DateOfBirth          string           `json:"dateOfBirth" bson:"dateOfBirth"`
	Gender               string           `json:"gender" bson:"gender"`
	Email                string           `json:"email" bson:"email"`
	Phone                string           `json:"phone" bson:"phone"`
	Profession           string           `json:"profession" bson:"profession"`
	Address              *Address         `json:"address,omitempty" bson:"address,omitempty"`
	Insurance            *Insurance       `json:"insurance,omitempty" bson:"insurance,omitempty"`
	ConsultationReason   string           `json:"consultationReason" bson:"consultationReason"`
	CurrentTreatment     string           `json:"currentTreatment" bson:"currentTreatment"`
	MedicalAntecedents   string           `json:"medicalAntecedents" bson:"medicalAntecedents"`
	MedicalHistory       string           `json:"medicalHistory" bson:"medicalHistory"`
	OsteopathicTreatment string           `json:"osteopathicTreatment" bson:"osteopathicTreatment"`
	Tags                 []string         `json:"tags" bson:"tags"`
	Notes                string           `json:"notes" bson:"notes"`
	Documents            []Document       `json:"documents" bson:"documents"`
	TreatmentHistory     []TreatmentEntry `json:"treatmentHistory" bson:"treatmentHistory"`
	CreatedAt            time.Time        `json:"createdAt" bson:"createdAt"`
	CreatedBy            string           `json:"createdBy" bson:"createdBy"`
	UpdatedAt            time.Time        `json:"updatedAt" bson:"updatedAt"`
	UpdatedBy            string           `json:"updatedBy" bson:"updatedBy"`
}

func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

func (p *Patient) Street() string {
	if p.Address == nil {
		return ""
	}
	return p.Address.Street
}

func (p *Patient) InsuranceProvider() string {
	if p.Insurance == nil {
		return ""
	}
	return p.Insurance.Provider
}

func (p *Patient) InsurancePolicyNumber() string {
	if p.Insurance == nil {
		return ""
	}
	return p.Insurance.PolicyNumber
}
