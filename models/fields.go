package models

// ClinicalField names a clinical property shared by Patient and Consultation.
// Symptoms is stored as "tags" on the patient.
type ClinicalField string

const (
	ConsultationReason   ClinicalField = "consultationReason"
	CurrentTreatment     ClinicalField = "currentTreatment"
	MedicalAntecedents   ClinicalField = "medicalAntecedents"
	MedicalHistory       ClinicalField = "medicalHistory"
	OsteopathicTreatment ClinicalField = "osteopathicTreatment"
	Symptoms             ClinicalField = "symptoms"
)

// ClinicalTextFields are the string-valued clinical fields.
var ClinicalTextFields = []ClinicalField{
	ConsultationReason,
	CurrentTreatment,
	MedicalAntecedents,
	MedicalHistory,
	OsteopathicTreatment,
}

// RequiredClinicalFields must be present on every stored consultation.
var RequiredClinicalFields = append(append([]ClinicalField{}, ClinicalTextFields...), Symptoms)

func (f ClinicalField) IsList() bool {
	return f == Symptoms
}

func (p *Patient) ClinicalText(f ClinicalField) string {
	switch f {
	case ConsultationReason:
		return p.ConsultationReason
	case CurrentTreatment:
		return p.CurrentTreatment
	case MedicalAntecedents:
		return p.MedicalAntecedents
	case MedicalHistory:
		return p.MedicalHistory
	case OsteopathicTreatment:
		return p.OsteopathicTreatment
	}
	return ""
}

func (p *Patient) ClinicalList(f ClinicalField) []string {
	if f == Symptoms {
		return p.Tags
	}
	return nil
}

func (c *Consultation) ClinicalText(f ClinicalField) string {
	switch f {
	case ConsultationReason:
		return c.ConsultationReason
	case CurrentTreatment:
		return c.CurrentTreatment
	case MedicalAntecedents:
		return c.MedicalAntecedents
	case MedicalHistory:
		return c.MedicalHistory
	case OsteopathicTreatment:
		return c.OsteopathicTreatment
	}
	return ""
}

func (c *Consultation) ClinicalList(f ClinicalField) []string {
	if f == Symptoms {
		return c.Symptoms
	}
	return nil
}

// IdentityField maps an identity snapshot property of a consultation to the
// patient value it is copied from.
type IdentityField struct {
	Key              string
	FromPatient      func(p *Patient) string
	FromConsultation func(c *Consultation) string
}

var IdentityFields = []IdentityField{
	{"patientFirstName", func(p *Patient) string { return p.FirstName }, func(c *Consultation) string { return c.PatientFirstName }},
	{"patientLastName", func(p *Patient) string { return p.LastName }, func(c *Consultation) string { return c.PatientLastName }},
	{"patientDateOfBirth", func(p *Patient) string { return p.DateOfBirth }, func(c *Consultation) string { return c.PatientDateOfBirth }},
	{"patientGender", func(p *Patient) string { return p.Gender }, func(c *Consultation) string { return c.PatientGender }},
	{"patientPhone", func(p *Patient) string { return p.Phone }, func(c *Consultation) string { return c.PatientPhone }},
	{"patientEmail", func(p *Patient) string { return p.Email }, func(c *Consultation) string { return c.PatientEmail }},
	{"patientProfession", func(p *Patient) string { return p.Profession }, func(c *Consultation) string { return c.PatientProfession }},
	{"patientAddress", func(p *Patient) string { return p.Street() }, func(c *Consultation) string { return c.PatientAddress }},
	{"patientInsurance", func(p *Patient) string { return p.InsuranceProvider() }, func(c *Consultation) string { return c.PatientInsurance }},
	{"patientInsuranceNumber", func(p *Patient) string { return p.InsurancePolicyNumber() }, func(c *Consultation) string { return c.PatientInsuranceNumber }},
}

// SnapshotPatient copies the patient's identity and clinical fields onto a
// consultation being created.
func SnapshotPatient(c *Consultation, p *Patient) {
	c.PatientName = p.FullName()
	c.PatientFirstName = p.FirstName
	c.PatientLastName = p.LastName
	c.PatientDateOfBirth = p.DateOfBirth
	c.PatientGender = p.Gender
	c.PatientPhone = p.Phone
	c.PatientEmail = p.Email
	c.PatientProfession = p.Profession
	c.PatientAddress = p.Street()
	c.PatientInsurance = p.InsuranceProvider()
	c.PatientInsuranceNumber = p.InsurancePolicyNumber()
	c.ConsultationReason = p.ConsultationReason
	c.CurrentTreatment = p.CurrentTreatment
	c.MedicalAntecedents = p.MedicalAntecedents
	c.MedicalHistory = p.MedicalHistory
	c.OsteopathicTreatment = p.OsteopathicTreatment
	c.Symptoms = append([]string{}, p.Tags...)
}
