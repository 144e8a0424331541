// Package snapshot reads and writes the JSON file that hands fetched job
// postings over to the ingestion stage.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Read when the snapshot file does not exist
var ErrNotFound = errors.New("snapshot not found")

// dateLayout is the format of posted dates defaulted during ingestion
const dateLayout = "2006-01-02"

// fileMode is the permission of written snapshot files
const fileMode = 0o644

// Write stores records at path as an indented UTF-8 JSON array. The file is
// replaced atomically.
func Write(path string, records []types.JobRecord) error {
	if records == nil {
		records = []types.JobRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // Cleanup errors are not critical
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // Cleanup errors are not critical
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) // Cleanup errors are not critical
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Cleanup errors are not critical
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"path": path,
		"jobs": len(records),
	}).Info("Saved job snapshot")
	return nil
}

// Read loads the snapshot at path. Keys missing from a snapshot entry are
// filled with the ingestion defaults. An entry that cannot be decoded is
// logged and skipped.
func Read(path string) ([]types.JobRecord, error) {
	return read(path, time.Now)
}

func read(path string, now func() time.Time) ([]types.JobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (run the download command first)", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	today := now().Format(dateLayout)
	records := make([]types.JobRecord, 0, len(raw))
	for i, item := range raw {
		var e entry
		if err := json.Unmarshal(item, &e); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"path":  path,
				"index": i,
			}).Warn("Skipping snapshot entry that could not be decoded")
			continue
		}
		records = append(records, e.normalize(today))
	}

	logrus.WithFields(logrus.Fields{
		"path":    path,
		"jobs":    len(records),
		"skipped": len(raw) - len(records),
	}).Info("Loaded job snapshot")
	return records, nil
}

// entry is a snapshot element as found on disk; any key may be absent
type entry struct {
	Title           *string     `json:"title"`
	Company         *string     `json:"company"`
	Location        *string     `json:"location"`
	SalaryMin       *float64    `json:"salary_min"`
	SalaryMax       *float64    `json:"salary_max"`
	SalaryCurrency  *string     `json:"salary_currency"`
	EmploymentType  *string     `json:"employment_type"`
	ExperienceLevel *string     `json:"experience_level"`
	Skills          *string     `json:"skills"`
	Description     *string     `json:"description"`
	PostedDate      *string     `json:"posted_date"`
	ApplicationURL  *string     `json:"application_url"`
	RemoteOK        *types.Flag `json:"remote_ok"`
}

func (e entry) normalize(today string) types.JobRecord {
	record := types.JobRecord{
		Title:           stringOr(e.Title, "N/A"),
		Company:         stringOr(e.Company, "N/A"),
		Location:        stringOr(e.Location, "N/A"),
		SalaryMin:       toInt(e.SalaryMin),
		SalaryMax:       toInt(e.SalaryMax),
		SalaryCurrency:  stringOr(e.SalaryCurrency, "USD"),
		EmploymentType:  stringOr(e.EmploymentType, "Full-time"),
		ExperienceLevel: stringOr(e.ExperienceLevel, "Mid-level"),
		Skills:          stringOr(e.Skills, ""),
		Description:     stringOr(e.Description, ""),
		PostedDate:      stringOr(e.PostedDate, today),
		ApplicationURL:  stringOr(e.ApplicationURL, ""),
	}
	if e.RemoteOK != nil {
		record.RemoteOK = *e.RemoteOK
	}
	return record
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func toInt(f *float64) *int64 {
	if f == nil {
		return nil
	}
	v := int64(*f)
	return &v
}
