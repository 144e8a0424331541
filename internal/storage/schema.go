// Package storage provides job posting persistence using SQLite.
package storage

// Schema definitions for the job postings database
const (
	// DropJobsTable removes the jobs table and every stored posting
	DropJobsTable = `DROP TABLE IF EXISTS jobs`

	// CreateJobsTable is the single-table job postings schema
	CreateJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT NOT NULL,
	salary_min INTEGER,
	salary_max INTEGER,
	salary_currency TEXT DEFAULT 'USD',
	employment_type TEXT,
	experience_level TEXT,
	skills TEXT,
	description TEXT,
	posted_date TEXT,
	application_url TEXT,
	remote_ok INTEGER NOT NULL DEFAULT 0 CHECK (remote_ok IN (0, 1))
);

CREATE INDEX IF NOT EXISTS idx_jobs_posted_date ON jobs(posted_date);
`

	insertJob = `INSERT INTO jobs
	 (title, company, location, salary_min, salary_max, salary_currency,
	  employment_type, experience_level, skills, description, posted_date,
	  application_url, remote_ok)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	jobColumns = `id, title, company, location, salary_min, salary_max, salary_currency,
	employment_type, experience_level, skills, description, posted_date,
	application_url, remote_ok`
)
