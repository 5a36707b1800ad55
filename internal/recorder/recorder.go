package recorder

import "time"

// AlertRecord is one crossover notification attempt.
type AlertRecord struct {
	ID        string
	ScanID    string
	Symbol    string
	Direction string // "BULLISH" or "BEARISH"
	BarTime   time.Time
	Close     float64
	FastMA    float64
	SlowMA    float64
	Delivered bool
	Replay    bool
}

// ScanSummary records the outcome of one scan pass.
type ScanSummary struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Symbols    int
	Alerts     int
	Suppressed int
	Failures   int
	Skipped    bool // market closed
}

// Recorder persists alert and scan history for analysis.
type Recorder interface {
	RecordAlert(rec *AlertRecord) error
	RecordScan(sum *ScanSummary) error
	RecentAlerts(limit int) ([]AlertRecord, error)
	Close() error
}
