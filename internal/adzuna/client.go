// Package adzuna fetches job postings from the Adzuna search API and maps
// them into normalized job records.
package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rossigee/job-search-server/internal/config"
	"github.com/rossigee/job-search-server/internal/metrics"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
)

// maxErrorBody bounds how much of an error response is kept in the error message
const maxErrorBody = 512

// Client calls the Adzuna job search API
type Client struct {
	cfg        config.AdzunaConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new API client. Credentials are checked on each fetch,
// not here, so a client can be built before configuration is complete.
func NewClient(cfg config.AdzunaConfig) *Client {
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		now:        time.Now,
	}
}

// searchResponse mirrors the top-level search response
type searchResponse struct {
	Results []json.RawMessage `json:"results"`
	Count   int               `json:"count"`
}

// FetchJobs requests up to count postings for role in location and returns
// them normalized. Results that cannot be decoded are logged and skipped.
func (c *Client) FetchJobs(ctx context.Context, role, location string, count int) ([]types.JobRecord, error) {
	if missing := c.cfg.Missing(); len(missing) > 0 {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeConfig).Inc()
		return nil, &ConfigurationError{Missing: missing}
	}

	endpoint := fmt.Sprintf("%s/%s/search/1", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Country)

	params := url.Values{}
	params.Set("app_id", c.cfg.AppID)
	params.Set("app_key", c.cfg.APIKey)
	params.Set("results_per_page", strconv.Itoa(count))
	params.Set("what", role)
	params.Set("where", location)
	params.Set("content-type", "application/json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log := logrus.WithFields(logrus.Fields{
		"role":     role,
		"location": location,
		"count":    count,
	})
	log.Info("Searching job postings")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return nil, &UpstreamUnavailableError{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return nil, &UpstreamUnavailableError{Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeHTTPError).Inc()
		msg := strings.TrimSpace(string(body))
		msg = truncateMessage(msg, maxErrorBody)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &UpstreamHTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return nil, &UpstreamUnavailableError{Err: fmt.Errorf("decode response: %w", err)}
	}
	metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeOK).Inc()

	today := c.now().Format(DateLayout)
	records := make([]types.JobRecord, 0, len(apiResp.Results))
	for i, raw := range apiResp.Results {
		var r result
		if err := json.Unmarshal(raw, &r); err != nil {
			metrics.SkippedResults.Inc()
			log.WithError(err).WithField("index", i).Warn("Skipping job result that could not be decoded")
			continue
		}
		records = append(records, r.normalize(today))
	}
	metrics.FetchedJobs.Add(float64(len(records)))

	log.WithField("found", len(records)).Info("Fetched job postings")
	return records, nil
}

// truncateMessage cuts s to at most n bytes without splitting a rune
func truncateMessage(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
