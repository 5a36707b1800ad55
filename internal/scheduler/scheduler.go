package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"CrossoverSentinel/internal/notifier"
	"CrossoverSentinel/internal/recorder"
	"CrossoverSentinel/internal/scanner"

	"github.com/robfig/cron/v3"
)

// Mode selects how Run drives the scanner.
type Mode string

const (
	ModeContinuous Mode = "continuous"
	ModeOnce       Mode = "once"
	ModeReplay     Mode = "replay"
)

// ParseMode validates a mode name. An empty name selects continuous.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeContinuous:
		return ModeContinuous, nil
	case ModeOnce, ModeReplay:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want continuous, once or replay)", s)
	}
}

// Scheduler invokes the scanner once, or immediately and then every Interval.
// A scan that overruns the interval delays the next tick instead of overlapping it.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  *scanner.Scanner
	Interval time.Duration

	fatal chan error
}

// NewScheduler creates a new Scheduler.
func NewScheduler(sc *scanner.Scanner, interval time.Duration) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		Cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.DelayIfStillRunning(logger))),
		Scanner:  sc,
		Interval: interval,
		fatal:    make(chan error, 1),
	}
}

// Run blocks until the mode completes, ctx is cancelled, or a scan reports a fatal error.
func (s *Scheduler) Run(ctx context.Context, mode Mode) error {
	switch mode {
	case ModeOnce:
		log.Println("[INFO] running single scan")
		return s.Scanner.Scan(ctx)
	case ModeReplay:
		log.Println("[INFO] running historical replay")
		_, err := s.Scanner.Replay(ctx)
		return err
	case ModeContinuous:
		return s.runContinuous(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (s *Scheduler) runContinuous(ctx context.Context) error {
	s.scanTask(ctx)
	select {
	case err := <-s.fatal:
		return err
	default:
	}

	expr := fmt.Sprintf("@every %s", s.Interval)
	if _, err := s.Cron.AddFunc(expr, func() { s.scanTask(ctx) }); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	s.Start()
	defer s.Stop()
	log.Printf("[INFO] scanning every %s", s.Interval)

	select {
	case <-ctx.Done():
		return nil
	case err := <-s.fatal:
		return err
	}
}

// scanTask runs one scan and returns its summary, or nil when ctx is already done.
func (s *Scheduler) scanTask(ctx context.Context) *recorder.ScanSummary {
	if ctx.Err() != nil {
		return nil
	}
	sum, err := s.Scanner.RunScan(ctx)
	if err != nil {
		log.Printf("[FATAL] scan: %v", err)
		select {
		case s.fatal <- err:
		default:
		}
	}
	return sum
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/status":
		return notifier.FormatStatus(s.Scanner.Status(ctx))
	case "/scan":
		last := s.scanTask(ctx)
		if last == nil {
			return "Scan did not run"
		}
		if last.Skipped {
			return "Scan skipped: market closed"
		}
		return fmt.Sprintf("Scan complete: alerts=%d suppressed=%d failures=%d", last.Alerts, last.Suppressed, last.Failures)
	default:
		return notifier.HelpText
	}
}
