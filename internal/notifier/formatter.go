package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"CrossoverSentinel/internal/model"

	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04 MST"

func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatCrossoverAlert formats a live crossover alert.
func FormatCrossoverAlert(evt *model.CrossoverEvent) string {
	return formatEvent(evt, "")
}

// FormatReplayAlert formats a historical crossover found in replay mode.
func FormatReplayAlert(evt *model.CrossoverEvent) string {
	return formatEvent(evt, "🧪 <b>TEST / HISTORICAL</b>\n\n")
}

func formatEvent(evt *model.CrossoverEvent, header string) string {
	var b strings.Builder
	b.WriteString(header)

	headline, verb, action := "🚀 <b>BULLISH CROSSOVER DETECTED</b>", "ABOVE", "BUY SIGNAL"
	if evt.Direction == model.DirectionBearish {
		headline, verb, action = "🔻 <b>BEARISH CROSSOVER DETECTED</b>", "BELOW", "SELL SIGNAL"
	}
	b.WriteString(headline + "\n\n")
	b.WriteString(fmt.Sprintf("Symbol: %s\n", html.EscapeString(evt.Symbol)))
	b.WriteString(fmt.Sprintf("Signal: MA%d crossed %s MA%d, %s\n", evt.FastLen, verb, evt.SlowLen, action))
	b.WriteString(fmt.Sprintf("Price: %s\n", price(evt.Close)))
	b.WriteString(fmt.Sprintf("MA%d: %s | MA%d: %s\n", evt.FastLen, price(evt.FastMA), evt.SlowLen, price(evt.SlowMA)))
	b.WriteString(fmt.Sprintf("Time: %s", evt.Time.Format(timeLayout)))
	return b.String()
}

// StatusReport is the data shown by the /status command.
type StatusReport struct {
	Market        string
	SessionExpiry time.Time
	LastScanAt    time.Time
	LastScanTook  time.Duration
	Symbols       int
	Alerts        int
	Suppressed    int
	Failures      int
	LastAlerts    map[string]time.Time
}

// FormatStatus formats the bot status for display.
func FormatStatus(r *StatusReport) string {
	var b strings.Builder
	b.WriteString("📦 <b>Crossover Sentinel Status</b>\n\n")
	b.WriteString(r.Market + "\n")
	if !r.SessionExpiry.IsZero() {
		b.WriteString(fmt.Sprintf("Session expires: %s\n", r.SessionExpiry.Format(timeLayout)))
	}
	if r.LastScanAt.IsZero() {
		b.WriteString("Last scan: none yet\n")
	} else {
		b.WriteString(fmt.Sprintf("Last scan: %s (%s)\n", r.LastScanAt.Format(timeLayout), r.LastScanTook.Round(time.Millisecond)))
		b.WriteString(fmt.Sprintf("Symbols: %d | Alerts: %d | Suppressed: %d | Failures: %d\n",
			r.Symbols, r.Alerts, r.Suppressed, r.Failures))
	}
	if len(r.LastAlerts) > 0 {
		b.WriteString("\nLast alerted bars:\n")
		names := make([]string, 0, len(r.LastAlerts))
		for name := range r.LastAlerts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(fmt.Sprintf("• %s: %s\n", html.EscapeString(name), r.LastAlerts[name].Format(timeLayout)))
		}
	}
	return b.String()
}

// HelpText lists the supported commands.
const HelpText = "Available commands:\n• /status\n• /scan"
