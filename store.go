package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")
)

// Submission statuses.
const (
	StatusNew      = "new"
	StatusRead     = "read"
	StatusArchived = "archived"
)

func validSubmissionStatus(s string) bool {
	switch s {
	case StatusNew, StatusRead, StatusArchived:
		return true
	}
	return false
}

// ContactSubmission is a stored contact message.
type ContactSubmission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Company     string    `json:"company"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
	Status      string    `json:"status"`
}

// StatusCheck records a client that pinged the API.
type StatusCheck struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// VisitorMetric is one tracked page view. IPs are stored hashed.
type VisitorMetric struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// SiteStats feeds the admin dashboard.
type SiteStats struct {
	TotalVisitors     int64               `json:"total_visitors"`
	UniqueVisitors    int64               `json:"unique_visitors"`
	VisitorsToday     int64               `json:"visitors_today"`
	VisitorsThisWeek  int64               `json:"visitors_this_week"`
	TotalSubmissions  int64               `json:"total_submissions"`
	NewSubmissions    int64               `json:"new_submissions"`
	RecentSubmissions []ContactSubmission `json:"recent_submissions"`
	RecentVisitors    []VisitorMetric     `json:"recent_visitors"`
}

// Store persists submissions, status checks and visitor metrics in SQLite.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS contact_submissions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		submitted_at INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'new'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contact_submitted ON contact_submissions(submitted_at)`,
	`CREATE TABLE IF NOT EXISTS status_checks (
		id TEXT PRIMARY KEY,
		client_name TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp)`,
}

// OpenStore opens (creating if needed) the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Timestamps are stored as unix nanoseconds.
func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

func (s *Store) InsertSubmission(ctx context.Context, sub ContactSubmission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_submissions (id, name, email, company, message, submitted_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.Name, sub.Email, sub.Company, sub.Message, toUnix(sub.SubmittedAt), sub.Status)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// ListSubmissions returns the newest submissions first.
func (s *Store) ListSubmissions(ctx context.Context, limit int) ([]ContactSubmission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, company, message, submitted_at, status
		FROM contact_submissions
		ORDER BY submitted_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []ContactSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) GetSubmission(ctx context.Context, id string) (ContactSubmission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, company, message, submitted_at, status
		FROM contact_submissions WHERE id = ?
	`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, ErrNotFound
	}
	return sub, err
}

func (s *Store) UpdateSubmissionStatus(ctx context.Context, id, status string) error {
	if !validSubmissionStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE contact_submissions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(r scanner) (ContactSubmission, error) {
	var sub ContactSubmission
	var at int64
	if err := r.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Company, &sub.Message, &at, &sub.Status); err != nil {
		return sub, err
	}
	sub.SubmittedAt = fromUnix(at)
	return sub, nil
}

func (s *Store) InsertStatusCheck(ctx context.Context, sc StatusCheck) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO status_checks (id, client_name, timestamp) VALUES (?, ?, ?)`,
		sc.ID, sc.ClientName, toUnix(sc.Timestamp))
	if err != nil {
		return fmt.Errorf("insert status check: %w", err)
	}
	return nil
}

// ListStatusChecks returns checks in insertion order.
func (s *Store) ListStatusChecks(ctx context.Context, limit int) ([]StatusCheck, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_name, timestamp FROM status_checks ORDER BY timestamp ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list status checks: %w", err)
	}
	defer rows.Close()

	checks := []StatusCheck{}
	for rows.Next() {
		var sc StatusCheck
		var ts int64
		if err := rows.Scan(&sc.ID, &sc.ClientName, &ts); err != nil {
			return nil, err
		}
		sc.Timestamp = fromUnix(ts)
		checks = append(checks, sc)
	}
	return checks, rows.Err()
}

func (s *Store) RecordVisit(ctx context.Context, hashedIP, userAgent, path string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, hashedIP, userAgent, path, toUnix(at))
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// CleanupVisitors deletes visitor rows older than cutoff.
func (s *Store) CleanupVisitors(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, toUnix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	return res.RowsAffected()
}

// Stats gathers dashboard numbers relative to now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*SiteStats, error) {
	stats := &SiteStats{}
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{toUnix(dayStart)}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{toUnix(weekAgo)}},
		{&stats.TotalSubmissions, `SELECT COUNT(*) FROM contact_submissions`, nil},
		{&stats.NewSubmissions, `SELECT COUNT(*) FROM contact_submissions WHERE status = ?`, []any{StatusNew}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	subs, err := s.ListSubmissions(ctx, 20)
	if err != nil {
		return nil, err
	}
	stats.RecentSubmissions = subs

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC
		LIMIT 50
	`)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v VisitorMetric
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, err
		}
		v.Timestamp = fromUnix(ts)
		stats.RecentVisitors = append(stats.RecentVisitors, v)
	}
	return stats, rows.Err()
}
