package dicom

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Dataset wraps a DICOM dataset for easier access
type Dataset struct {
	Data     dicom.Dataset
	FilePath string
}

// Load reads a DICOM file and returns the dataset.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat file: %w", err)
	}

	ds, err := dicom.Parse(file, info.Size(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not parse DICOM: %w", err)
	}

	return &Dataset{
		Data:     ds,
		FilePath: path,
	}, nil
}

// LoadHeader reads only the metadata (no pixel data).
func LoadHeader(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat file: %w", err)
	}

	ds, err := dicom.Parse(file, info.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("could not parse DICOM: %w", err)
	}

	return &Dataset{
		Data:     ds,
		FilePath: path,
	}, nil
}

// GetString returns a string value for a tag, or empty string if not found.
func (d *Dataset) GetString(t tag.Tag) string {
	elem, err := d.Data.FindElementByTag(t)
	if err != nil {
		return ""
	}

	if elem.Value == nil {
		return ""
	}

	value := elem.Value.GetValue()
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case string:
		return v
	}

	return fmt.Sprintf("%v", value)
}

// Has reports whether the dataset carries an element for the tag.
func (d *Dataset) Has(t tag.Tag) bool {
	_, err := d.Data.FindElementByTag(t)
	return err == nil
}

// GetPatientID returns the patient ID.
func (d *Dataset) GetPatientID() string {
	return d.GetString(tag.PatientID)
}

// GetPatientSex returns the patient sex code.
func (d *Dataset) GetPatientSex() string {
	return d.GetString(tag.PatientSex)
}

// GetPatientAge returns the patient age string.
func (d *Dataset) GetPatientAge() string {
	return d.GetString(tag.PatientAge)
}
