package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"CrossoverSentinel/internal/alertstore"
	"CrossoverSentinel/internal/collector"
	"CrossoverSentinel/internal/config"
	"CrossoverSentinel/internal/metrics"
	"CrossoverSentinel/internal/notifier"
	"CrossoverSentinel/internal/recorder"
	"CrossoverSentinel/internal/scanner"
	"CrossoverSentinel/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	modeName := os.Getenv("RUN_MODE")
	flag.StringVar(&cfgPath, "config", cfgPath, "path to YAML config")
	flag.StringVar(&modeName, "mode", modeName, "run mode: continuous, once or replay")
	flag.Parse()

	os.Exit(run(cfgPath, modeName))
}

func run(cfgPath, modeName string) int {
	log.Println("[INFO] CrossoverSentinel starting...")

	mode, err := scheduler.ParseMode(modeName)
	if err != nil {
		log.Printf("[FATAL] %v", err)
		return 2
	}

	// Load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("[FATAL] load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[FATAL] config validation: %v", err)
		return 1
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Printf("[FATAL] market timezone: %v", err)
		return 1
	}
	hours, err := cfg.MarketWindow()
	if err != nil {
		log.Printf("[FATAL] market hours: %v", err)
		return 1
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go m.Serve(ctx, cfg.Metrics.Addr)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init alert store
	var store alertstore.Store
	switch cfg.Dedup.Backend {
	case "redis":
		rs, err := alertstore.NewRedis(alertstore.RedisConfig{
			Addr:     cfg.Dedup.RedisAddr,
			Password: cfg.Dedup.RedisPassword,
			DB:       cfg.Dedup.RedisDB,
			Key:      cfg.Dedup.RedisKey,
		})
		if err != nil {
			log.Printf("[FATAL] init redis alert store: %v", err)
			return 1
		}
		store = rs
	default:
		store = alertstore.NewMemory()
	}

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if cfg.Telegram.BaseURL != "" {
		tn.BaseURL = cfg.Telegram.BaseURL
	}

	// Init SmartAPI session and collector
	api := collector.NewSmartAPIClient(collector.SmartAPIConfig{
		APIKey:     cfg.SmartAPI.APIKey,
		ClientID:   cfg.SmartAPI.ClientID,
		MPIN:       cfg.SmartAPI.MPIN,
		TOTPSecret: cfg.SmartAPI.TOTPSecret,
		BaseURL:    cfg.SmartAPI.BaseURL,
		Timeout:    cfg.SmartAPI.Timeout,
		Proxy:      cfg.Proxy,
	})
	col := collector.NewCollector(api, cfg.Strategy.CandleInterval, loc)
	col.MaxRetries = cfg.SmartAPI.MaxRetries
	col.RetryDelayBase = cfg.SmartAPI.RetryDelayBase
	col.TransientCodes = cfg.SmartAPI.TransientErrorCodes
	col.Metrics = m

	if err := api.Login(ctx); err != nil {
		log.Printf("[FATAL] initial login: %v", err)
		return 1
	}

	sc := scanner.New(col, api, store, tn, cfg.Symbols, scanner.Config{
		Strategy:       cfg.StrategyParams(),
		Interval:       cfg.Strategy.CandleInterval,
		Lookback:       cfg.Strategy.Lookback,
		ReplayLookback: cfg.Replay.Lookback,
	})
	sc.Recorder = rec
	sc.Metrics = m
	sc.Hours = hours

	sched := scheduler.NewScheduler(sc, cfg.Schedule.PollInterval)

	if mode == scheduler.ModeContinuous && cfg.Telegram.Commands {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	log.Printf("[INFO] CrossoverSentinel running in %s mode over %d symbols", mode, len(cfg.Symbols))
	if err := sched.Run(ctx, mode); err != nil {
		if errors.Is(err, scanner.ErrAuthFatal) {
			log.Printf("[FATAL] %v", err)
		} else {
			log.Printf("[ERROR] run: %v", err)
		}
		return 1
	}

	log.Println("[INFO] CrossoverSentinel stopped")
	return 0
}
