// Package history persists per-interface speed samples in SQLite and rolls
// them up into minute and hour aggregates as they age.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is bumped whenever the tables change; an older database is
// rebuilt from scratch.
const SchemaVersion = 2

// Ages at which rows move to the next coarser tier.
const (
	RawRetention    = 24 * time.Hour
	MinuteRetention = 30 * 24 * time.Hour
)

// ErrClosed is returned by every call on a closed store.
var ErrClosed = errors.New("history: store closed")

// Tier identifies the resolution a Point came from.
type Tier int

const (
	TierRaw Tier = iota
	TierMinute
	TierHour
)

func (t Tier) String() string {
	switch t {
	case TierRaw:
		return "raw"
	case TierMinute:
		return "minute"
	case TierHour:
		return "hour"
	}
	return "unknown"
}

// Sample is one per-interface reading in bytes per second.
type Sample struct {
	Time      time.Time
	Interface string
	Upload    float64
	Download  float64
}

// Point is a stored row. Raw rows have Avg == Max.
type Point struct {
	Time        time.Time
	Interface   string
	UploadAvg   float64
	DownloadAvg float64
	UploadMax   float64
	DownloadMax float64
	Tier        Tier
}

// Query selects points in [From, To). An empty Interface sums all
// interfaces per timestamp.
type Query struct {
	From      time.Time
	To        time.Time
	Interface string
}

// Stats summarises the database contents.
type Stats struct {
	Rows         map[Tier]int
	Earliest     time.Time
	Latest       time.Time
	PeakUpload   float64
	PeakDownload float64
	Interfaces   []string
}

// MaintenanceResult counts the rows each maintenance step touched.
type MaintenanceResult struct {
	MinuteRows int64
	HourRows   int64
	Pruned     int64
	Vacuumed   bool
}

const schema = `
CREATE TABLE metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE speed_history_raw (
	timestamp INTEGER NOT NULL,
	interface_name TEXT NOT NULL,
	upload_bytes_sec REAL NOT NULL,
	download_bytes_sec REAL NOT NULL,
	PRIMARY KEY (timestamp, interface_name)
);
CREATE INDEX idx_raw_timestamp ON speed_history_raw (timestamp DESC);
CREATE TABLE speed_history_minute (
	timestamp INTEGER NOT NULL,
	interface_name TEXT NOT NULL,
	upload_avg REAL NOT NULL,
	download_avg REAL NOT NULL,
	upload_max REAL NOT NULL,
	download_max REAL NOT NULL,
	PRIMARY KEY (timestamp, interface_name)
);
CREATE INDEX idx_minute_interface_timestamp ON speed_history_minute (interface_name, timestamp DESC);
CREATE TABLE speed_history_hour (
	timestamp INTEGER NOT NULL,
	interface_name TEXT NOT NULL,
	upload_avg REAL NOT NULL,
	download_avg REAL NOT NULL,
	upload_max REAL NOT NULL,
	download_max REAL NOT NULL,
	PRIMARY KEY (timestamp, interface_name)
);
CREATE INDEX idx_hour_interface_timestamp ON speed_history_hour (interface_name, timestamp DESC);
`

const dropSchema = `
DROP TABLE IF EXISTS speed_history_raw;
DROP TABLE IF EXISTS speed_history_minute;
DROP TABLE IF EXISTS speed_history_hour;
DROP TABLE IF EXISTS metadata;
`

// unionTiers reads every tier as one relation. It takes a [from, to) pair of
// bind parameters per tier.
const unionTiers = `
SELECT timestamp, interface_name, upload_bytes_sec AS up_avg, download_bytes_sec AS down_avg,
       upload_bytes_sec AS up_max, download_bytes_sec AS down_max, 0 AS tier
  FROM speed_history_raw WHERE timestamp >= ? AND timestamp < ?
UNION ALL
SELECT timestamp, interface_name, upload_avg, download_avg, upload_max, download_max, 1
  FROM speed_history_minute WHERE timestamp >= ? AND timestamp < ?
UNION ALL
SELECT timestamp, interface_name, upload_avg, download_avg, upload_max, download_max, 2
  FROM speed_history_hour WHERE timestamp >= ? AND timestamp < ?
`

// Store is a SQLite-backed speed history.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the database at path and brings its schema to
// SchemaVersion.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// A single connection serialises writers; SQLite would anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}

	s := &Store{db: db, path: path, logger: logger.With("component", "history")}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string { return s.path }

// Close closes the database
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Version returns the schema version recorded in the metadata table.
func (s *Store) Version(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.version(ctx)
}

func (s *Store) version(ctx context.Context) (int, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = 'db_version'`).Scan(&v)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	current, err := s.version(ctx)
	if err == nil && current == SchemaVersion {
		return nil
	}
	if err == nil {
		s.logger.Warn("history schema version mismatch, rebuilding", "current", current, "target", SchemaVersion)
	} else {
		s.logger.Info("creating history schema", "version", SchemaVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dropSchema); err != nil {
		return fmt.Errorf("drop old schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES ('db_version', ?)`, strconv.Itoa(SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return tx.Commit()
}

// Record inserts samples in one transaction. Duplicate (second, interface)
// pairs are ignored.
func (s *Store) Record(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO speed_history_raw
		(timestamp, interface_name, upload_bytes_sec, download_bytes_sec) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		if _, err := stmt.ExecContext(ctx, smp.Time.Unix(), smp.Interface, smp.Upload, smp.Download); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}
	return tx.Commit()
}

// Points returns stored rows across all tiers in chronological order.
func (s *Store) Points(ctx context.Context, q Query) ([]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	from, to := q.From.Unix(), q.To.Unix()
	if q.To.IsZero() {
		to = time.Now().Add(time.Hour).Unix()
	}
	args := []any{from, to, from, to, from, to}

	var query string
	if q.Interface == "" {
		query = `SELECT timestamp, '', SUM(up_avg), SUM(down_avg), SUM(up_max), SUM(down_max), MIN(tier)
			FROM (` + unionTiers + `) GROUP BY timestamp ORDER BY timestamp`
	} else {
		query = `SELECT * FROM (` + unionTiers + `) WHERE interface_name = ? ORDER BY timestamp`
		args = append(args, q.Interface)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var (
			p    Point
			ts   int64
			tier int
		)
		if err := rows.Scan(&ts, &p.Interface, &p.UploadAvg, &p.DownloadAvg, &p.UploadMax, &p.DownloadMax, &tier); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		p.Time = time.Unix(ts, 0)
		p.Tier = Tier(tier)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats summarises what the database holds.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}, ErrClosed
	}

	st := Stats{Rows: make(map[Tier]int)}
	tables := map[Tier]string{
		TierRaw:    "speed_history_raw",
		TierMinute: "speed_history_minute",
		TierHour:   "speed_history_hour",
	}
	for tier, table := range tables {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", table, err)
		}
		st.Rows[tier] = n
	}

	var (
		earliest, latest sql.NullInt64
		peakUp, peakDown sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `SELECT MIN(timestamp), MAX(timestamp), MAX(up_max), MAX(down_max)
		FROM (`+unionTiers+`)`, int64(0), int64(1<<62), int64(0), int64(1<<62), int64(0), int64(1<<62)).
		Scan(&earliest, &latest, &peakUp, &peakDown)
	if err != nil {
		return Stats{}, fmt.Errorf("history range: %w", err)
	}
	if earliest.Valid {
		st.Earliest = time.Unix(earliest.Int64, 0)
		st.Latest = time.Unix(latest.Int64, 0)
	}
	st.PeakUpload, st.PeakDownload = peakUp.Float64, peakDown.Float64

	rows, err := s.db.QueryContext(ctx, `SELECT interface_name FROM speed_history_raw
		UNION SELECT interface_name FROM speed_history_minute
		UNION SELECT interface_name FROM speed_history_hour ORDER BY 1`)
	if err != nil {
		return Stats{}, fmt.Errorf("list interfaces: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Stats{}, err
		}
		st.Interfaces = append(st.Interfaces, name)
	}
	return st, rows.Err()
}

// Maintain rolls raw rows older than RawRetention into minute rows, minute
// rows older than MinuteRetention into hour rows, and deletes anything older
// than keepDays. The file is vacuumed after a prune.
func (s *Store) Maintain(ctx context.Context, now time.Time, keepDays int) (MaintenanceResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return MaintenanceResult{}, ErrClosed
	}

	var res MaintenanceResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin maintenance tx: %w", err)
	}
	defer tx.Rollback()

	rawCutoff := now.Add(-RawRetention).Unix()
	r, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO speed_history_minute
		(timestamp, interface_name, upload_avg, download_avg, upload_max, download_max)
		SELECT (timestamp / 60) * 60 AS minute_ts, interface_name,
		       AVG(upload_bytes_sec), AVG(download_bytes_sec),
		       MAX(upload_bytes_sec), MAX(download_bytes_sec)
		  FROM speed_history_raw WHERE timestamp < ?
		 GROUP BY minute_ts, interface_name`, rawCutoff)
	if err != nil {
		return res, fmt.Errorf("aggregate raw: %w", err)
	}
	res.MinuteRows, _ = r.RowsAffected()
	if _, err := tx.ExecContext(ctx, `DELETE FROM speed_history_raw WHERE timestamp < ?`, rawCutoff); err != nil {
		return res, fmt.Errorf("delete aggregated raw: %w", err)
	}

	minuteCutoff := now.Add(-MinuteRetention).Unix()
	r, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO speed_history_hour
		(timestamp, interface_name, upload_avg, download_avg, upload_max, download_max)
		SELECT (timestamp / 3600) * 3600 AS hour_ts, interface_name,
		       AVG(upload_avg), AVG(download_avg), MAX(upload_max), MAX(download_max)
		  FROM speed_history_minute WHERE timestamp < ?
		 GROUP BY hour_ts, interface_name`, minuteCutoff)
	if err != nil {
		return res, fmt.Errorf("aggregate minutes: %w", err)
	}
	res.HourRows, _ = r.RowsAffected()
	if _, err := tx.ExecContext(ctx, `DELETE FROM speed_history_minute WHERE timestamp < ?`, minuteCutoff); err != nil {
		return res, fmt.Errorf("delete aggregated minutes: %w", err)
	}

	keepCutoff := now.Add(-time.Duration(max(keepDays, 1)) * 24 * time.Hour).Unix()
	for _, table := range []string{"speed_history_minute", "speed_history_hour"} {
		r, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE timestamp < ?`, keepCutoff)
		if err != nil {
			return res, fmt.Errorf("prune %s: %w", table, err)
		}
		n, _ := r.RowsAffected()
		res.Pruned += n
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit maintenance: %w", err)
	}

	if res.Pruned > 0 {
		if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
			s.logger.Warn("vacuum failed", "error", err)
		} else {
			res.Vacuumed = true
		}
	}
	s.logger.Info("history maintenance done",
		"minute_rows", res.MinuteRows, "hour_rows", res.HourRows, "pruned", res.Pruned)
	return res, nil
}
