package markethours

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Window is a daily trading window in a fixed location.
type Window struct {
	Open         time.Duration // offset from local midnight
	Close        time.Duration
	Location     *time.Location
	WeekdaysOnly bool
	holidays     map[string]bool
}

// New builds a window from "HH:MM" open/close strings, an IANA zone name and optional
// YYYY-MM-DD holidays.
func New(openAt, closeAt, zone string, weekdaysOnly bool, holidays []string) (*Window, error) {
	o, err := parseClock(openAt)
	if err != nil {
		return nil, fmt.Errorf("open time: %w", err)
	}
	c, err := parseClock(closeAt)
	if err != nil {
		return nil, fmt.Errorf("close time: %w", err)
	}
	if c <= o {
		return nil, fmt.Errorf("close %s must be after open %s", closeAt, openAt)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	w := &Window{Open: o, Close: c, Location: loc, WeekdaysOnly: weekdaysOnly, holidays: make(map[string]bool)}
	for _, h := range holidays {
		d, err := time.ParseInLocation("2006-01-02", h, loc)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		w.holidays[d.Format("2006-01-02")] = true
	}
	return w, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// IsTradingDay reports whether t falls on a day the window applies to.
func (w *Window) IsTradingDay(t time.Time) bool {
	local := t.In(w.Location)
	if w.WeekdaysOnly {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	return !w.holidays[local.Format("2006-01-02")]
}

// Contains reports whether t is within [open, close] on a trading day.
func (w *Window) Contains(t time.Time) bool {
	if !w.IsTradingDay(t) {
		return false
	}
	local := t.In(w.Location)
	tod := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	return tod >= w.Open && tod <= w.Close
}

func (w *Window) dayAt(t time.Time, offset time.Duration) time.Time {
	local := t.In(w.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.Location)
	return midnight.Add(offset)
}

// NextOpen returns the next open at or after t.
func (w *Window) NextOpen(t time.Time) time.Time {
	open := w.dayAt(t, w.Open)
	if !t.After(open) && w.IsTradingDay(t) {
		return open
	}
	d := t.In(w.Location)
	for i := 0; i < 14; i++ {
		d = time.Date(d.Year(), d.Month(), d.Day()+1, 12, 0, 0, 0, w.Location)
		if w.IsTradingDay(d) {
			return w.dayAt(d, w.Open)
		}
	}
	return w.dayAt(d, w.Open)
}

// StatusString returns a human-readable market status.
func (w *Window) StatusString(t time.Time) string {
	if w.Contains(t) {
		return fmt.Sprintf("Market Open, closes in %s", fmtDur(w.dayAt(t, w.Close).Sub(t)))
	}
	next := w.NextOpen(t).In(w.Location)
	return fmt.Sprintf("Market Closed, opens %s %s (%s)",
		next.Weekday().String()[:3], next.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
