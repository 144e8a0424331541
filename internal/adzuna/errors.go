package adzuna

import (
	"fmt"
	"strings"
)

// ConfigurationError reports missing API credentials. No request is made.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// Remediation returns instructions for supplying the missing values
func (e *ConfigurationError) Remediation() string {
	var b strings.Builder
	b.WriteString("add these to your .env file:")
	for _, name := range e.Missing {
		fmt.Fprintf(&b, " %s=<your_%s>", name, strings.ToLower(name))
	}
	return b.String()
}

// UpstreamHTTPError reports a non-2xx response from the job search API
type UpstreamHTTPError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("job search API returned %d: %s", e.StatusCode, e.Message)
}

// UpstreamUnavailableError reports a transport or decoding failure
type UpstreamUnavailableError struct {
	Err error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("job search API unavailable: %v", e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}
