package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

// LookupMetric records a single nutrition lookup.
type LookupMetric struct {
	Fruit     string
	Key       string
	Outcome   string
	LatencyMS int64
	Timestamp time.Time
}

// Store handles persistence of lookup metrics.
type Store struct {
	db *sqlx.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m LookupMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := s.db.Rebind(`INSERT INTO lookup_metrics (fruit, lookup_key, outcome, latency_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, m.Fruit, m.Key, m.Outcome, m.LatencyMS, ts.Unix()); err != nil {
		return fmt.Errorf("failed to record lookup metric: %w", err)
	}
	return nil
}

// DailyUsage represents lookup totals for a single day.
type DailyUsage struct {
	Date          string
	TotalLookups  int
	TotalFailures int
	AvgLatencyMS  int64
}

type metricRow struct {
	Outcome    string `db:"outcome"`
	LatencyMS  int64  `db:"latency_ms"`
	RecordedAt int64  `db:"recorded_at"`
}

// GetDailyUsage retrieves usage for the last N days, newest day first.
// Days are bucketed in UTC.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()

	var rows []metricRow
	query := s.db.Rebind("SELECT outcome, latency_ms, recorded_at FROM lookup_metrics WHERE recorded_at >= ?")
	if err := s.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("failed to query lookup metrics: %w", err)
	}

	byDay := map[string]*DailyUsage{}
	latency := map[string]int64{}
	for _, r := range rows {
		day := time.Unix(r.RecordedAt, 0).UTC().Format("2006-01-02")
		u, ok := byDay[day]
		if !ok {
			u = &DailyUsage{Date: day}
			byDay[day] = u
		}
		u.TotalLookups++
		if r.Outcome != "ok" {
			u.TotalFailures++
		}
		latency[day] += r.LatencyMS
	}

	results := make([]DailyUsage, 0, len(byDay))
	for day, u := range byDay {
		u.AvgLatencyMS = latency[day] / int64(u.TotalLookups)
		results = append(results, *u)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Date > results[j].Date })
	return results, nil
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -olderThanDays).Unix()
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM lookup_metrics WHERE recorded_at < ?"), threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up lookup metrics: %w", err)
	}
	return res.RowsAffected()
}
