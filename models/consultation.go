package models

import (
	"time"
)

const (
	ConsultationDraft     = "draft"
	ConsultationCompleted = "completed"
	ConsultationCancelled = "cancelled"
)

// Consultation is a timestamped visit. Its clinical and identity fields are a
// point-in-time snapshot of the patient.
type Consultation struct {
	Code                   string     `json:"code" bson:"code"`
	PatientID              string     `json:"patientId" bson:"patientId"`
	PatientName            string     `json:"patientName" bson:"patientName"`
	Date                   time.Time  `json:"date" bson:"date"`
	Duration               int        `json:"duration" bson:"duration"`
	Price                  float64    `json:"price" bson:"price"`
	Status                 string     `json:"status" bson:"status"`
	Reason                 string     `json:"reason" bson:"reason"`
	Treatment              string     `json:"treatment" bson:"treatment"`
	Notes                  string     `json:"notes" bson:"notes"`
	ConsultationReason     string     `json:"consultationReason" bson:"consultationReason"`
	CurrentTreatment       string     `json:"currentTreatment" bson:"currentTreatment"`
	MedicalAntecedents     string     `json:"medicalAntecedents" bson:"medicalAntecedents"`
	MedicalHistory         string     `json:"medicalHistory" bson:"medicalHistory"`
	OsteopathicTreatment   string     `json:"osteopathicTreatment" bson:"osteopathicTreatment"`
	Symptoms               []string   `json:"symptoms" bson:"symptoms"`
	PatientFirstName       string     `json:"patientFirstName" bson:"patientFirstName"`
	PatientLastName        string     `json:"patientLastName" bson:"patientLastName"`
	PatientDateOfBirth     string     `json:"patientDateOfBirth" bson:"patientDateOfBirth"`
	PatientGender          string     `json:"patientGender" bson:"patientGender"`
	PatientPhone           string     `json:"patientPhone" bson:"patientPhone"`
	PatientEmail           string     `json:"patientEmail" bson:"patientEmail"`
	PatientProfession      string     `json:"patientProfession" bson:"patientProfession"`
	PatientAddress         string     `json:"patientAddress" bson:"patientAddress"`
	PatientInsurance       string     `json:"patientInsurance" bson:"patientInsurance"`
	PatientInsuranceNumber string     `json:"patientInsuranceNumber" bson:"patientInsuranceNumber"`
	IsInitialConsultation  bool       `json:"isInitialConsultation" bson:"isInitialConsultation"`
	Documents              []Document `json:"documents" bson:"documents"`
	Examinations           []string   `json:"examinations" bson:"examinations"`
	Prescriptions          []string   `json:"prescriptions" bson:"prescriptions"`
	CreatedAt              time.Time  `json:"createdAt" bson:"createdAt"`
	CreatedBy              string     `json:"createdBy" bson:"createdBy"`
	UpdatedAt              time.Time  `json:"updatedAt" bson:"updatedAt"`
	UpdatedBy              string     `json:"updatedBy" bson:"updatedBy"`

	present map[string]bool
}

// Has reports whether the stored document carried the property, independent
// of its value. Consultations built in memory report false for everything.
func (c *Consultation) Has(key string) bool {
	return c.present[key]
}

// SortTime is the creation time, or the consultation date when the creation
// time was never recorded.
func (c *Consultation) SortTime() time.Time {
	if c.CreatedAt.IsZero() {
		return c.Date
	}
	return c.CreatedAt
}
