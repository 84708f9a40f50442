package redact

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"

	dcm "mri-deid/internal/dicom"
)

// Anonymizer applies the redaction rules to one record and injects the
// pseudonymized patient subset kept for downstream analysis.
type Anonymizer struct {
	Rules Rules
}

func NewAnonymizer(rules Rules) *Anonymizer {
	return &Anonymizer{Rules: rules}
}

// Anonymize redacts the record in place, then writes sex, age and the
// pseudonymous identifier into their fields (created if absent). Any failure
// here is fatal for the enclosing file.
func (a *Anonymizer) Anonymize(ds *dcm.Dataset, sex, age, patientID string) error {
	if err := a.Rules.Apply(ds); err != nil {
		return fmt.Errorf("redaction failed: %w", err)
	}

	// Age is normalized to 3 digits suffixed by 'Y' per the DICOM age
	// string convention; sex carries a trailing space for even length.
	age = NormalizeAge(age)
	sex = sex + " "

	if err := ds.SetString(tag.PatientSex, sex); err != nil {
		return fmt.Errorf("set patient sex: %w", err)
	}
	if err := ds.SetString(tag.PatientAge, age); err != nil {
		return fmt.Errorf("set patient age: %w", err)
	}
	if err := ds.SetString(tag.PatientID, patientID); err != nil {
		return fmt.Errorf("set patient id: %w", err)
	}

	return nil
}

// NormalizeAge zero-pads an age value to three digits and appends the year
// unit marker: "7" -> "007Y".
func NormalizeAge(age string) string {
	age = strings.TrimSpace(age)
	for len(age) < 3 {
		age = "0" + age
	}
	return age + "Y"
}
