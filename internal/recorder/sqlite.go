package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists alert and scan history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id         TEXT PRIMARY KEY,
			scan_id    TEXT,
			created_at INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			direction  TEXT NOT NULL,
			bar_time   INTEGER NOT NULL,
			close      REAL,
			fast_ma    REAL,
			slow_ma    REAL,
			delivered  INTEGER NOT NULL,
			replay     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol_bar ON alerts(symbol, bar_time)`,

		`CREATE TABLE IF NOT EXISTS scans (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER,
			symbols     INTEGER,
			alerts      INTEGER,
			suppressed  INTEGER,
			failures    INTEGER,
			skipped     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(s), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRecorder) RecordAlert(rec *AlertRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := r.db.Exec(`INSERT INTO alerts
		(id, scan_id, created_at, symbol, direction, bar_time, close, fast_ma, slow_ma, delivered, replay)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.ScanID, time.Now().Unix(), rec.Symbol, rec.Direction,
		rec.BarTime.Unix(), rec.Close, rec.FastMA, rec.SlowMA,
		boolInt(rec.Delivered), boolInt(rec.Replay),
	)
	return err
}

func (r *SQLiteRecorder) RecordScan(sum *ScanSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sum.ID == "" {
		sum.ID = uuid.New().String()
	}
	_, err := r.db.Exec(`INSERT INTO scans
		(id, started_at, duration_ms, symbols, alerts, suppressed, failures, skipped)
		VALUES (?,?,?,?,?,?,?,?)`,
		sum.ID, sum.StartedAt.Unix(), sum.Duration.Milliseconds(),
		sum.Symbols, sum.Alerts, sum.Suppressed, sum.Failures, boolInt(sum.Skipped),
	)
	return err
}

// RecentAlerts returns the latest alerts, newest bar first.
func (r *SQLiteRecorder) RecentAlerts(limit int) ([]AlertRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, scan_id, symbol, direction, bar_time, close, fast_ma, slow_ma, delivered, replay
		FROM alerts ORDER BY bar_time DESC, created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var a AlertRecord
		var barTime int64
		var delivered, replay int
		if err := rows.Scan(&a.ID, &a.ScanID, &a.Symbol, &a.Direction, &barTime,
			&a.Close, &a.FastMA, &a.SlowMA, &delivered, &replay); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		a.BarTime = time.Unix(barTime, 0)
		a.Delivered = delivered == 1
		a.Replay = replay == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
