package dicom

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// SetString sets a string value for a tag, creating the element if the
// dataset does not carry one yet.
func (d *Dataset) SetString(t tag.Tag, value string) error {
	elem, err := d.Data.FindElementByTag(t)
	if err != nil {
		// Element doesn't exist, create it
		newElem, err := dicom.NewElement(t, []string{value})
		if err != nil {
			return fmt.Errorf("could not create element: %w", err)
		}
		d.Data.Elements = append(d.Data.Elements, newElem)
		return nil
	}

	newValue, err := dicom.NewValue([]string{value})
	if err != nil {
		return fmt.Errorf("could not create value: %w", err)
	}

	newElem := &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    elem.ValueRepresentation,
		RawValueRepresentation: elem.RawValueRepresentation,
		ValueLength:            uint32(len(value)),
		Value:                  newValue,
	}

	for i, e := range d.Data.Elements {
		if e.Tag == t {
			d.Data.Elements[i] = newElem
			return nil
		}
	}

	return nil
}

// ClearTag clears a tag value (sets to empty string). Absent tags are left
// absent.
func (d *Dataset) ClearTag(t tag.Tag) {
	if !d.Has(t) {
		return
	}
	d.SetString(t, "")
}

// DeleteTag removes an element entirely. Removing an absent tag is a no-op.
func (d *Dataset) DeleteTag(t tag.Tag) {
	kept := d.Data.Elements[:0]
	for _, e := range d.Data.Elements {
		if e.Tag != t {
			kept = append(kept, e)
		}
	}
	d.Data.Elements = kept
}

// StripPrivate removes every vendor-extension element. Private tags carry
// odd group numbers per the DICOM standard.
func (d *Dataset) StripPrivate() {
	kept := d.Data.Elements[:0]
	for _, e := range d.Data.Elements {
		if e.Tag.Group%2 == 1 {
			continue
		}
		kept = append(kept, e)
	}
	d.Data.Elements = kept
}

// Save writes the DICOM dataset to a file.
func (d *Dataset) Save(outputPath string) error {
	// Ensure parent directory exists; MkdirAll is idempotent, which keeps
	// concurrent workers creating overlapping parents safe.
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer file.Close()

	// Write DICOM with relaxed verification (many real-world DICOM files
	// don't strictly follow VR specifications)
	if err := dicom.Write(file, d.Data,
		dicom.SkipVRVerification(),
		dicom.SkipValueTypeVerification(),
		dicom.DefaultMissingTransferSyntax(),
	); err != nil {
		return fmt.Errorf("could not write DICOM: %w", err)
	}

	return nil
}
