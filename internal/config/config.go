// Package config loads runtime configuration from the environment, an optional
// .env file and an optional YAML file of search queries.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variable names for the job search API credentials
const (
	EnvAdzunaAppID  = "ADZUNA_APP_ID"
	EnvAdzunaAPIKey = "ADZUNA_API_KEY"
)

// AdzunaConfig holds the job search API settings
type AdzunaConfig struct {
	AppID   string
	APIKey  string
	Country string
	BaseURL string
}

// Missing returns the names of the credential variables that are not set
func (c AdzunaConfig) Missing() []string {
	var missing []string
	if c.AppID == "" {
		missing = append(missing, EnvAdzunaAppID)
	}
	if c.APIKey == "" {
		missing = append(missing, EnvAdzunaAPIKey)
	}
	return missing
}

// MinIOConfig holds the optional object storage settings for snapshot mirroring
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Object    string
}

// Enabled reports whether snapshots should be mirrored to object storage
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Config holds all runtime configuration
type Config struct {
	Adzuna          AdzunaConfig
	MinIO           MinIOConfig
	DBPath          string
	SnapshotPath    string
	Host            string
	Port            string
	LogLevel        string
	LogFormat       string
	QueriesFile     string
	RefreshSchedule string
}

// DefaultQueries are used when no search query file is configured
var DefaultQueries = []types.SearchQuery{
	{Role: "Software Engineer", Location: "San Francisco", NumResults: 8},
	{Role: "Software Engineer", Location: "New York", NumResults: 7},
	{Role: "Python Developer", Location: "Seattle", NumResults: 8},
	{Role: "Python Developer", Location: "Austin", NumResults: 7},
	{Role: "React Developer", Location: "Remote", NumResults: 10},
	{Role: "Data Scientist", Location: "Boston", NumResults: 8},
	{Role: "Data Scientist", Location: "Chicago", NumResults: 7},
	{Role: "DevOps Engineer", Location: "Denver", NumResults: 8},
	{Role: "DevOps Engineer", Location: "Portland", NumResults: 7},
}

// Load reads a .env file from the working directory when present, then
// builds the configuration from the environment. Missing API credentials are
// not an error here; the fetcher reports them per call.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to parse .env file")
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	if accessKey == "" {
		accessKey = os.Getenv("MINIO_ACCESS_KEY_ID")
	}
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	if secretKey == "" {
		secretKey = os.Getenv("MINIO_SECRET_ACCESS_KEY")
	}

	return &Config{
		Adzuna: AdzunaConfig{
			AppID:   os.Getenv(EnvAdzunaAppID),
			APIKey:  os.Getenv(EnvAdzunaAPIKey),
			Country: getenv("ADZUNA_COUNTRY", "us"),
			BaseURL: getenv("ADZUNA_BASE_URL", "http://api.adzuna.com/v1/api/jobs"),
		},
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: accessKey,
			SecretKey: secretKey,
			Bucket:    os.Getenv("SNAPSHOT_BUCKET"),
			Object:    getenv("SNAPSHOT_OBJECT", "snapshots/adzuna_jobs.json"),
		},
		DBPath:          getenv("JOBS_DB_PATH", "jobs.db"),
		SnapshotPath:    getenv("SNAPSHOT_PATH", "adzuna_jobs.json"),
		Host:            getenv("HOST", "0.0.0.0"),
		Port:            getenv("PORT", "8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "text"),
		QueriesFile:     os.Getenv("SEARCH_QUERIES_FILE"),
		RefreshSchedule: os.Getenv("REFRESH_SCHEDULE"),
	}
}

// SetupLogging configures the global logrus logger
func (c *Config) SetupLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL '%s': %w", c.LogLevel, err)
	}
	logrus.SetLevel(level)

	switch strings.ToLower(c.LogFormat) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT '%s': must be text or json", c.LogFormat)
	}
	return nil
}

type queriesFile struct {
	Queries []types.SearchQuery `yaml:"queries"`
}

// LoadQueries returns the search queries from the YAML file at path, or the
// default queries when path is empty
func LoadQueries(path string) ([]types.SearchQuery, error) {
	if path == "" {
		out := make([]types.SearchQuery, len(DefaultQueries))
		copy(out, DefaultQueries)
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read search queries file: %w", err)
	}

	var file queriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse search queries file %s: %w", path, err)
	}

	for i, q := range file.Queries {
		if strings.TrimSpace(q.Role) == "" {
			return nil, fmt.Errorf("search query %d: role is required", i+1)
		}
		if q.NumResults <= 0 {
			file.Queries[i].NumResults = 10
		}
	}

	logrus.WithFields(logrus.Fields{
		"path":    path,
		"queries": len(file.Queries),
	}).Debug("Loaded search queries")

	return file.Queries, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
