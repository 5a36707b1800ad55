package recorder

import (
	"testing"
	"time"
)

func newMemoryRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(":memory:")
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_Alerts(t *testing.T) {
	r := newMemoryRecorder(t)
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	first := &AlertRecord{Symbol: "RELIANCE", Direction: "BULLISH", BarTime: base, Close: 2905.5, Delivered: true}
	if err := r.RecordAlert(first); err != nil {
		t.Fatalf("record alert: %v", err)
	}
	if first.ID == "" {
		t.Error("expected generated id")
	}
	if err := r.RecordAlert(&AlertRecord{Symbol: "TCS", Direction: "BEARISH", BarTime: base.Add(5 * time.Minute), Replay: true}); err != nil {
		t.Fatal(err)
	}

	alerts, err := r.RecentAlerts(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Symbol != "TCS" || !alerts[0].Replay || alerts[0].Delivered {
		t.Errorf("unexpected newest alert %+v", alerts[0])
	}
	if alerts[1].Close != 2905.5 || !alerts[1].BarTime.Equal(base) || !alerts[1].Delivered {
		t.Errorf("unexpected oldest alert %+v", alerts[1])
	}

	limited, err := r.RecentAlerts(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d (%v)", len(limited), err)
	}
}

func TestSQLiteRecorder_Scan(t *testing.T) {
	r := newMemoryRecorder(t)
	sum := &ScanSummary{StartedAt: time.Now(), Duration: 1500 * time.Millisecond, Symbols: 3, Alerts: 1}
	if err := r.RecordScan(sum); err != nil {
		t.Fatalf("record scan: %v", err)
	}
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM scans WHERE duration_ms = 1500").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 scan row, got %d", n)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordAlert(&AlertRecord{}); err != nil {
		t.Error(err)
	}
	if alerts, err := r.RecentAlerts(5); err != nil || alerts != nil {
		t.Errorf("unexpected %v %v", alerts, err)
	}
}
