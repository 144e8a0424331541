package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register SQLite driver
	"github.com/rossigee/job-search-server/internal/metrics"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
)

// Query limits
const (
	DefaultLimit = 10
	MaxLimit     = 1000
	topN         = 10
)

// ErrNotFound is returned when no job has the requested id
var ErrNotFound = errors.New("job not found")

// StorageError reports a failure that leaves the store unusable for the
// current run, such as a failed schema reset or connection
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store provides SQLite-based job posting persistence
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens the SQLite database at dbPath and creates the jobs table
// when it does not exist yet. Existing postings are left untouched.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName(dbPath))
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	// Test connection
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "ping", Err: err}
	}

	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(time.Hour)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.withConn(context.Background(), func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(), CreateJobsTable)
		return err
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("Failed to close database connection after init error")
		}
		return nil, &StorageError{Op: "create schema", Err: err}
	}

	logrus.WithField("db_path", dbPath).Info("Initialized job storage database")
	return store, nil
}

// withConn runs fn on a connection acquired for this call only. The
// connection is returned to the pool on every exit path.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return &StorageError{Op: "connect", Err: err}
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("Failed to release database connection")
		}
	}()
	return fn(conn)
}

// ResetSchema drops the jobs table and creates it again, removing every
// stored posting
func (s *Store) ResetSchema(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, DropJobsTable); err != nil {
			return &StorageError{Op: "drop table", Err: err}
		}
		if _, err := conn.ExecContext(ctx, CreateJobsTable); err != nil {
			return &StorageError{Op: "create table", Err: err}
		}
		logrus.WithField("db_path", s.dbPath).Info("Reset jobs table")
		return nil
	})
}

// BulkInsert inserts records in a single transaction and returns how many
// were stored. A record that fails to insert is logged and skipped; the
// remaining records are still inserted.
func (s *Store) BulkInsert(ctx context.Context, records []types.JobRecord) (int, error) {
	inserted := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		inserted, err = insertRecords(ctx, tx, records)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.InsertedRecords.Add(float64(inserted))
	logrus.WithFields(logrus.Fields{
		"inserted": inserted,
		"skipped":  len(records) - inserted,
	}).Info("Bulk inserted jobs")
	return inserted, nil
}

// Replace drops and recreates the jobs table and inserts records, all in one
// transaction. Readers see either the previous postings or the new ones. A
// failing drop or create aborts the replacement and keeps the previous
// postings; a record that fails to insert is logged and skipped.
func (s *Store) Replace(ctx context.Context, records []types.JobRecord) (int, error) {
	inserted := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, DropJobsTable); err != nil {
			return &StorageError{Op: "drop table", Err: err}
		}
		if _, err := tx.ExecContext(ctx, CreateJobsTable); err != nil {
			return &StorageError{Op: "create table", Err: err}
		}
		var err error
		inserted, err = insertRecords(ctx, tx, records)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.InsertedRecords.Add(float64(inserted))
	logrus.WithFields(logrus.Fields{
		"db_path":  s.dbPath,
		"inserted": inserted,
		"skipped":  len(records) - inserted,
	}).Info("Replaced stored jobs")
	return inserted, nil
}

// inTx runs fn in a transaction on a scoped connection. The transaction is
// committed when fn succeeds and rolled back otherwise.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return &StorageError{Op: "begin transaction", Err: err}
		}
		committed := false
		defer func() {
			if !committed {
				if rollbackErr := tx.Rollback(); rollbackErr != nil {
					logrus.WithError(rollbackErr).Warn("Failed to rollback transaction")
				}
			}
		}()

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return &StorageError{Op: "commit", Err: err}
		}
		committed = true
		return nil
	})
}

// insertRecords inserts records within tx, skipping the ones that fail
func insertRecords(ctx context.Context, tx *sql.Tx, records []types.JobRecord) (int, error) {
	stmt, err := tx.PrepareContext(ctx, insertJob)
	if err != nil {
		return 0, &StorageError{Op: "prepare insert", Err: err}
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("Failed to close insert statement")
		}
	}()

	inserted := 0
	for i := range records {
		r := &records[i]
		if _, err := stmt.ExecContext(ctx,
			r.Title,
			r.Company,
			r.Location,
			nullableInt(r.SalaryMin),
			nullableInt(r.SalaryMax),
			r.SalaryCurrency,
			r.EmploymentType,
			r.ExperienceLevel,
			r.Skills,
			r.Description,
			r.PostedDate,
			r.ApplicationURL,
			flagToInt(r.RemoteOK),
		); err != nil {
			metrics.FailedInserts.Inc()
			logrus.WithError(err).WithFields(logrus.Fields{
				"title":   r.Title,
				"company": r.Company,
			}).Warn("Failed to insert job, skipping")
			continue
		}
		inserted++
	}
	return inserted, nil
}

// Query returns the jobs matching every non-empty criterion of filter,
// newest posting first
func (s *Store) Query(ctx context.Context, filter types.QueryFilter) ([]types.Job, error) {
	where, args := buildPredicate(filter)

	query := "SELECT " + jobColumns + " FROM jobs"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY posted_date DESC LIMIT ?"
	args = append(args, normalizeLimit(filter.Limit))

	var jobs []types.Job
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query jobs: %w", err)
		}
		defer func() {
			if closeErr := rows.Close(); closeErr != nil {
				logrus.WithError(closeErr).Warn("Failed to close database rows")
			}
		}()

		for rows.Next() {
			job, err := scanJob(rows)
			if err != nil {
				return fmt.Errorf("failed to scan job: %w", err)
			}
			jobs = append(jobs, *job)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating jobs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

// GetByID retrieves a job by id
func (s *Store) GetByID(ctx context.Context, id int64) (*types.Job, error) {
	var job *types.Job
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
		var err error
		job, err = scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to query job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Statistics returns the job counts used by the statistics operation. Groups
// with equal counts are ordered by name.
func (s *Store) Statistics(ctx context.Context) (*types.Statistics, error) {
	stats := &types.Statistics{
		TopLocations: []types.LocationCount{},
		TopCompanies: []types.CompanyCount{},
	}

	err := s.withConn(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&stats.TotalJobs); err != nil {
			return fmt.Errorf("failed to count jobs: %w", err)
		}
		if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE remote_ok = 1").Scan(&stats.RemoteJobs); err != nil {
			return fmt.Errorf("failed to count remote jobs: %w", err)
		}

		err := groupCounts(ctx, conn, "location", func(name string, count int) {
			stats.TopLocations = append(stats.TopLocations, types.LocationCount{Location: name, Count: count})
		})
		if err != nil {
			return err
		}
		return groupCounts(ctx, conn, "company", func(name string, count int) {
			stats.TopCompanies = append(stats.TopCompanies, types.CompanyCount{Company: name, Count: count})
		})
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Count returns the number of stored jobs
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&count); err != nil {
			return fmt.Errorf("failed to get job count: %w", err)
		}
		return nil
	})
	return count, err
}

// Sample returns up to n jobs in insertion order
func (s *Store) Sample(ctx context.Context, n int) ([]types.Job, error) {
	var jobs []types.Job
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, "SELECT "+jobColumns+" FROM jobs ORDER BY id LIMIT ?", n)
		if err != nil {
			return fmt.Errorf("failed to sample jobs: %w", err)
		}
		defer func() {
			if closeErr := rows.Close(); closeErr != nil {
				logrus.WithError(closeErr).Warn("Failed to close database rows")
			}
		}()

		for rows.Next() {
			job, err := scanJob(rows)
			if err != nil {
				return fmt.Errorf("failed to scan job: %w", err)
			}
			jobs = append(jobs, *job)
		}
		return rows.Err()
	})
	return jobs, err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}
	return nil
}

// Helper functions

// groupCounts reports the top groups of column by job count. column is
// always a constant from this package.
func groupCounts(ctx context.Context, conn *sql.Conn, column string, add func(name string, count int)) error {
	query := fmt.Sprintf(
		"SELECT %[1]s, COUNT(*) AS count FROM jobs GROUP BY %[1]s ORDER BY count DESC, %[1]s LIMIT %d",
		column, topN)

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to group jobs by %s: %w", column, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("Failed to close database rows")
		}
	}()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		add(name, count)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*types.Job, error) {
	job := &types.Job{}
	var salaryMin, salaryMax sql.NullInt64
	var currency, employment, experience, skills, description, posted, appURL sql.NullString
	var remote int64

	if err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Company,
		&job.Location,
		&salaryMin,
		&salaryMax,
		&currency,
		&employment,
		&experience,
		&skills,
		&description,
		&posted,
		&appURL,
		&remote,
	); err != nil {
		return nil, err
	}

	if salaryMin.Valid {
		job.SalaryMin = &salaryMin.Int64
	}
	if salaryMax.Valid {
		job.SalaryMax = &salaryMax.Int64
	}
	job.SalaryCurrency = currency.String
	job.EmploymentType = employment.String
	job.ExperienceLevel = experience.String
	job.Skills = skills.String
	job.Description = description.String
	job.PostedDate = posted.String
	job.ApplicationURL = appURL.String
	job.RemoteOK = remote == 1

	return job, nil
}

// dataSourceName enables WAL for file databases so readers keep seeing the
// last committed postings while a replacement is being written
func dataSourceName(dbPath string) string {
	if dbPath == ":memory:" || strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// nullableInt converts an optional integer to a driver value
func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func flagToInt(f types.Flag) int {
	if f {
		return 1
	}
	return 0
}

// likePattern wraps s for a substring LIKE match. SQLite LIKE is
// case-insensitive for ASCII; wildcards in s are passed through.
func likePattern(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}
