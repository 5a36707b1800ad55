package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"CrossoverSentinel/internal/model"
)

func TestSend(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" || got["parse_mode"] != "HTML" || got["disable_web_page_preview"] != true {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSend_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	err := n.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single delivery attempt, got %d", calls)
	}
}

func TestFormatCrossoverAlert(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	evt := &model.CrossoverEvent{
		Symbol:    "NSE:RELIANCE",
		Time:      time.Date(2024, 3, 4, 10, 30, 0, 0, ist),
		Close:     2905.5,
		Direction: model.DirectionBullish,
		FastMA:    2901.123,
		SlowMA:    2899.9,
		FastLen:   9,
		SlowLen:   20,
	}
	msg := FormatCrossoverAlert(evt)
	for _, want := range []string{"BULLISH CROSSOVER", "NSE:RELIANCE", "MA9 crossed ABOVE MA20", "BUY SIGNAL", "Price: 2905.50", "2024-03-04 10:30 IST"} {
		if !strings.Contains(msg, want) {
			t.Errorf("alert missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "TEST") {
		t.Error("live alert must not carry the test label")
	}

	evt.Direction = model.DirectionBearish
	replay := FormatReplayAlert(evt)
	for _, want := range []string{"TEST / HISTORICAL", "BEARISH CROSSOVER", "crossed BELOW", "SELL SIGNAL"} {
		if !strings.Contains(replay, want) {
			t.Errorf("replay alert missing %q:\n%s", want, replay)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	r := &StatusReport{
		Market:     "Market Open, closes in 1h0m",
		LastScanAt: time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC),
		Symbols:    3,
		Alerts:     1,
		LastAlerts: map[string]time.Time{"TCS": time.Date(2024, 3, 4, 10, 25, 0, 0, time.UTC)},
	}
	s := FormatStatus(r)
	for _, want := range []string{"Market Open", "Symbols: 3 | Alerts: 1", "• TCS"} {
		if !strings.Contains(s, want) {
			t.Errorf("status missing %q:\n%s", want, s)
		}
	}
	if !strings.Contains(FormatStatus(&StatusReport{Market: "x"}), "none yet") {
		t.Error("expected placeholder for missing scan")
	}
}

func TestNormalizeCommand(t *testing.T) {
	tests := map[string]string{
		" /status ":         "/status",
		"/Scan@sentinelbot": "/scan",
		"/status extra":     "/status",
		"":                  "",
	}
	for in, want := range tests {
		if got := normalizeCommand(in); got != want {
			t.Errorf("normalizeCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStartPolling(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	served := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			served = true
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":1,"message":{"text":"/status","chat":{"id":42}}},
				{"update_id":2,"message":{"text":"/status","chat":{"id":7}}}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var p struct {
				Text string `json:"text"`
			}
			json.NewDecoder(r.Body).Decode(&p)
			sent = append(sent, p.Text)
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string { return "reply:" + cmd })
		close(done)
	}()

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		count := len(sent)
		mu.Unlock()
		if count > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for reply")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 || sent[0] != "reply:/status" {
		t.Errorf("expected one reply to the configured chat, got %v", sent)
	}
}
