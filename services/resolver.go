package services

import (
	"strings"

	"PracticeHub360/models"
)

type Source string

const (
	SourceSnapshot Source = "snapshot"
	SourcePatient  Source = "patient"
	SourceNone     Source = ""
)

// Resolution is the effective value of a clinical field on a consultation.
// List holds the value of list fields.
type Resolution struct {
	Field  models.ClinicalField `json:"field"`
	Value  string               `json:"value"`
	List   []string             `json:"list,omitempty"`
	Source Source               `json:"source"`
}

// Resolver computes display values. It never writes and expects decrypted input.
type Resolver struct {
	detector *Detector
}

func NewResolver(d *Detector) *Resolver {
	return &Resolver{detector: d}
}

// Clean trims a value and empties it when it carries a corruption signature.
func (r *Resolver) Clean(value string) string {
	v := strings.TrimSpace(value)
	if r.detector.IsInvalid(v) {
		return ""
	}
	return v
}

func (r *Resolver) cleanList(values []string) []string {
	out := []string{}
	for _, v := range values {
		if c := r.Clean(v); c != "" {
			out = append(out, c)
		}
	}
	return out
}

/*
* Non-initial consultations own their snapshot: return it as stored
* Initial consultation: cleaned snapshot if non-empty
* Otherwise the patient's current value, otherwise empty without source
 */
func (r *Resolver) ResolveField(c *models.Consultation, p *models.Patient, f models.ClinicalField) Resolution {
	res := Resolution{Field: f}
	if f.IsList() {
		snapshot := c.ClinicalList(f)
		if !c.IsInitialConsultation {
			res.List, res.Source = snapshot, SourceSnapshot
			return res
		}
		if cleaned := r.cleanList(snapshot); len(cleaned) > 0 {
			res.List, res.Source = cleaned, SourceSnapshot
			return res
		}
		if p != nil {
			if fromPatient := r.cleanList(p.ClinicalList(f)); len(fromPatient) > 0 {
				res.List, res.Source = fromPatient, SourcePatient
				return res
			}
		}
		return res
	}

	snapshot := c.ClinicalText(f)
	if !c.IsInitialConsultation {
		res.Value, res.Source = snapshot, SourceSnapshot
		return res
	}
	if cleaned := r.Clean(snapshot); cleaned != "" {
		res.Value, res.Source = cleaned, SourceSnapshot
		return res
	}
	if p != nil {
		if fromPatient := r.Clean(p.ClinicalText(f)); fromPatient != "" {
			res.Value, res.Source = fromPatient, SourcePatient
			return res
		}
	}
	return res
}

// ResolveAll resolves every clinical field in catalog order.
func (r *Resolver) ResolveAll(c *models.Consultation, p *models.Patient) []Resolution {
	out := make([]Resolution, 0, len(models.RequiredClinicalFields))
	for _, f := range models.RequiredClinicalFields {
		out = append(out, r.ResolveField(c, p, f))
	}
	return out
}
