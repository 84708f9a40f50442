package redact

import (
	"github.com/suyashkumar/dicom/pkg/tag"

	"mri-deid/internal/config"
	dcm "mri-deid/internal/dicom"
)

// The field tables below cover direct and quasi-identifiers as defined under
// GDPR Article 4(1) and HIPAA Safe Harbor (45 CFR 164.514(b)(2)).

// DateTags are replaced with a fixed literal date.
var DateTags = []tag.Tag{
	tag.DateOfLastCalibration,
	tag.PatientBirthDate,
}

// TimeTags are replaced with a fixed literal time.
var TimeTags = []tag.Tag{
	tag.TimeOfLastCalibration,
}

// NameTags are cleared (emptied, not deleted — downstream readers expect the
// element to stay present).
var NameTags = []tag.Tag{
	tag.InstitutionName,
	tag.InstitutionAddress,
	tag.ReferringPhysicianName,
}

// CommentTags are cleared like NameTags.
var CommentTags = []tag.Tag{
	tag.ImageComments,
}

// IDTags are event-level unique identifiers, deleted entirely.
var IDTags = []tag.Tag{
	tag.IrradiationEventUID,
}

// SequenceTags are nested sequences that may carry identifying sub-records
// (e.g. referring physician inside RequestAttributesSequence), deleted if
// present.
var SequenceTags = []tag.Tag{
	tag.RequestAttributesSequence,
}

// MetaTags are vendor fields in the file meta group, deleted if present.
var MetaTags = []tag.Tag{
	tag.PrivateInformationCreatorUID,
	tag.PrivateInformation,
}

// Rules binds the field tables to the configured replacement literals.
type Rules struct {
	FixedDate string
	FixedTime string
}

// NewRules builds the redaction rule set from configuration so policy
// changes never touch the transformation logic.
func NewRules(cfg config.Config) Rules {
	return Rules{
		FixedDate: cfg.RedactDate,
		FixedTime: cfg.RedactTime,
	}
}

// Apply mutates the record in place. Absent fields are silent no-ops, so
// applying the rules twice changes nothing. Pixel data is never touched.
func (r Rules) Apply(ds *dcm.Dataset) error {
	// Catch-all first: strip every private/vendor-extension element.
	ds.StripPrivate()

	for _, t := range DateTags {
		if !ds.Has(t) {
			continue
		}
		if err := ds.SetString(t, r.FixedDate); err != nil {
			return err
		}
	}

	for _, t := range TimeTags {
		if !ds.Has(t) {
			continue
		}
		if err := ds.SetString(t, r.FixedTime); err != nil {
			return err
		}
	}

	for _, t := range NameTags {
		ds.ClearTag(t)
	}
	for _, t := range CommentTags {
		ds.ClearTag(t)
	}

	for _, t := range IDTags {
		ds.DeleteTag(t)
	}
	for _, t := range SequenceTags {
		ds.DeleteTag(t)
	}
	for _, t := range MetaTags {
		ds.DeleteTag(t)
	}

	return nil
}
