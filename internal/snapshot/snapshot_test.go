package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	salary := int64(90000)
	records := []types.JobRecord{
		{
			Title:           "Développeur Python",
			Company:         "Acme & Co",
			Location:        "Paris",
			SalaryMin:       &salary,
			SalaryCurrency:  "USD",
			EmploymentType:  "Full-time",
			ExperienceLevel: "Mid-level",
			Skills:          "Python, <SQL>",
			Description:     "Remote friendly",
			PostedDate:      "2025-03-01",
			ApplicationURL:  "https://example.com/?a=1&b=2",
			RemoteOK:        true,
		},
	}

	require.NoError(t, Write(path, records))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestWrite_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, Write(path, []types.JobRecord{{Title: "Café Dev", Company: "A&B"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	// human readable, unescaped UTF-8 and explicit nulls
	assert.Contains(t, text, "\n  {\n    \"title\": \"Café Dev\"")
	assert.Contains(t, text, `"company": "A&B"`)
	assert.Contains(t, text, `"salary_min": null`)
	assert.Contains(t, text, `"salary_max": null`)
	assert.Contains(t, text, `"remote_ok": 0`)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Len(t, raw[0], 13)
}

func TestWrite_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, Write(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestRead_NotFound(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "download")
}

func TestRead_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o600))

	_, err := Read(path)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestRead_SkipsUndecodableEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	content := `[
		{"title": "Go Developer", "company": "Acme"},
		{"title": "Bad Salary", "salary_min": "50000"},
		"not an object",
		{"title": "SRE", "company": "Beta", "remote_ok": 1}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := Read(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Go Developer", records[0].Title)
	assert.Equal(t, "SRE", records[1].Title)
	assert.True(t, bool(records[1].RemoteOK))
}

func TestWrite_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, Write(path, []types.JobRecord{{Title: "Go Developer"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestRead_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	content := `[
		{"title": "Only Title"},
		{"company": "Acme", "salary_min": 50000.9, "salary_max": null, "remote_ok": true}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	now := func() time.Time { return time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC) }
	records, err := read(path, now)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Only Title", first.Title)
	assert.Equal(t, "N/A", first.Company)
	assert.Equal(t, "N/A", first.Location)
	assert.Equal(t, "USD", first.SalaryCurrency)
	assert.Equal(t, "Full-time", first.EmploymentType)
	assert.Equal(t, "Mid-level", first.ExperienceLevel)
	assert.Equal(t, "", first.Skills)
	assert.Equal(t, "", first.Description)
	assert.Equal(t, "2025-06-30", first.PostedDate)
	assert.Equal(t, "", first.ApplicationURL)
	assert.False(t, bool(first.RemoteOK))

	second := records[1]
	assert.Equal(t, "N/A", second.Title)
	require.NotNil(t, second.SalaryMin)
	assert.Equal(t, int64(50000), *second.SalaryMin)
	assert.Nil(t, second.SalaryMax)
	assert.True(t, bool(second.RemoteOK))
}
