package markethours

import (
	"strings"
	"testing"
	"time"
)

func mustWindow(t *testing.T, weekdaysOnly bool, holidays ...string) *Window {
	t.Helper()
	w, err := New("09:15", "15:30", "Asia/Kolkata", weekdaysOnly, holidays)
	if err != nil {
		t.Fatalf("new window: %v", err)
	}
	return w
}

func TestContains(t *testing.T) {
	w := mustWindow(t, false)
	ist := w.Location
	tests := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 3, 4, 9, 14, 59, 0, ist), false},
		{time.Date(2024, 3, 4, 9, 15, 0, 0, ist), true},
		{time.Date(2024, 3, 4, 12, 0, 0, 0, ist), true},
		{time.Date(2024, 3, 4, 15, 30, 0, 0, ist), true},
		{time.Date(2024, 3, 4, 15, 31, 0, 0, ist), false},
		{time.Date(2024, 3, 4, 4, 0, 0, 0, time.UTC), true}, // 09:30 IST
		{time.Date(2024, 3, 9, 10, 0, 0, 0, ist), true},     // Saturday, weekdays not enforced
	}
	for _, tt := range tests {
		if got := w.Contains(tt.at); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestWeekdaysAndHolidays(t *testing.T) {
	w := mustWindow(t, true, "2024-03-08")
	ist := w.Location
	if w.Contains(time.Date(2024, 3, 9, 10, 0, 0, 0, ist)) {
		t.Error("Saturday should be closed")
	}
	if w.Contains(time.Date(2024, 3, 8, 10, 0, 0, 0, ist)) {
		t.Error("holiday should be closed")
	}
	next := w.NextOpen(time.Date(2024, 3, 7, 16, 0, 0, 0, ist))
	want := time.Date(2024, 3, 11, 9, 15, 0, 0, ist)
	if !next.Equal(want) {
		t.Errorf("NextOpen = %s, want %s", next, want)
	}
}

func TestStatusString(t *testing.T) {
	w := mustWindow(t, true)
	ist := w.Location
	if s := w.StatusString(time.Date(2024, 3, 4, 14, 30, 0, 0, ist)); !strings.HasPrefix(s, "Market Open") || !strings.Contains(s, "1h0m") {
		t.Errorf("unexpected open status %q", s)
	}
	if s := w.StatusString(time.Date(2024, 3, 4, 8, 15, 0, 0, ist)); !strings.Contains(s, "Market Closed") || !strings.Contains(s, "Mon 09:15") {
		t.Errorf("unexpected closed status %q", s)
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New("9am", "15:30", "Asia/Kolkata", false, nil); err == nil {
		t.Error("expected bad open time error")
	}
	if _, err := New("15:30", "09:15", "Asia/Kolkata", false, nil); err == nil {
		t.Error("expected close-before-open error")
	}
	if _, err := New("09:15", "15:30", "Mars/Olympus", false, nil); err == nil {
		t.Error("expected bad zone error")
	}
	if _, err := New("09:15", "15:30", "Asia/Kolkata", false, []string{"03/08/2024"}); err == nil {
		t.Error("expected bad holiday error")
	}
}
