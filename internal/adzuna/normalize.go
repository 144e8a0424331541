package adzuna

import (
	"strings"

	"github.com/rossigee/job-search-server/internal/skills"
	"github.com/rossigee/job-search-server/pkg/types"
)

// DateLayout is the format of defaulted posted dates
const DateLayout = "2006-01-02"

// Defaults applied to fields the API omits or does not provide
const (
	DefaultText            = "N/A"
	DefaultCurrency        = "USD"
	DefaultEmploymentType  = "Full-time"
	DefaultExperienceLevel = "Mid-level"
	DefaultDescription     = "No description available"
)

// result mirrors a single search result. Every field is optional.
type result struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Company     *displayName `json:"company"`
	Location    *displayName `json:"location"`
	SalaryMin   *float64     `json:"salary_min"`
	SalaryMax   *float64     `json:"salary_max"`
	RedirectURL *string      `json:"redirect_url"`
	Created     *string      `json:"created"`
}

type displayName struct {
	DisplayName *string `json:"display_name"`
}

// normalize maps the partial upstream shape into a complete job record.
// today is used when the posting date is missing.
func (r result) normalize(today string) types.JobRecord {
	title := stringOr(r.Title, DefaultText)
	rawDescription := stringOr(r.Description, "")

	record := types.JobRecord{
		Title:           title,
		Company:         DefaultText,
		Location:        DefaultText,
		SalaryMin:       truncate(r.SalaryMin),
		SalaryMax:       truncate(r.SalaryMax),
		SalaryCurrency:  DefaultCurrency,
		EmploymentType:  DefaultEmploymentType,
		ExperienceLevel: DefaultExperienceLevel,
		Skills:          skills.Extract(rawDescription),
		Description:     stringOr(r.Description, DefaultDescription),
		PostedDate:      stringOr(r.Created, today),
		ApplicationURL:  stringOr(r.RedirectURL, DefaultText),
		RemoteOK:        types.Flag(mentionsRemote(stringOr(r.Title, "")) || mentionsRemote(rawDescription)),
	}
	if r.Company != nil {
		record.Company = stringOr(r.Company.DisplayName, DefaultText)
	}
	if r.Location != nil {
		record.Location = stringOr(r.Location.DisplayName, DefaultText)
	}

	return record
}

func mentionsRemote(s string) bool {
	return strings.Contains(strings.ToLower(s), "remote")
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func truncate(f *float64) *int64 {
	if f == nil {
		return nil
	}
	v := int64(*f)
	return &v
}
