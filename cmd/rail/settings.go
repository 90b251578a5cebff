package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/amonks/rail/internal/config"
	"github.com/amonks/rail/internal/notify"
	"github.com/amonks/rail/train"
	"github.com/amonks/rail/worker"
	"github.com/amonks/rail/workflow"
)

var (
	globalURL     string
	globalVerbose bool
)

// settings is the configuration after merging config files, environment,
// and global flags.
type settings struct {
	workerURL      string
	requestTimeout time.Duration
	interval       time.Duration
	pollTimeout    time.Duration
	mode           train.Mode
	accountID      int64
	clock          string
	ntfyURL        string
	logger         *log.Logger
}

var current settings

func loadSettings() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	addr := cfg.Worker.URL
	if globalURL != "" {
		addr = globalURL
	}
	workerURL, err := worker.ResolveURL(addr)
	if err != nil {
		return err
	}

	mode := train.ModeKTX
	if cfg.Defaults.Mode != "" {
		mode, err = train.ParseMode(cfg.Defaults.Mode)
		if err != nil {
			return fmt.Errorf("config defaults.mode: %w", err)
		}
	}

	clock := workflow.DefaultTime
	if cfg.Defaults.Time != "" {
		clock, err = train.ParseClock(cfg.Defaults.Time)
		if err != nil {
			return fmt.Errorf("config defaults.time: %w", err)
		}
	}

	var logger *log.Logger
	if globalVerbose {
		logger = log.New(os.Stderr, "rail: ", log.LstdFlags)
	}

	current = settings{
		workerURL:      workerURL,
		requestTimeout: cfg.Worker.RequestTimeout.Duration,
		interval:       cfg.Monitor.Interval.Duration,
		pollTimeout:    cfg.Monitor.PollTimeout.Duration,
		mode:           mode,
		accountID:      cfg.Defaults.Account,
		clock:          clock,
		ntfyURL:        cfg.Notify.NtfyURL,
		logger:         logger,
	}
	return nil
}

func newClient() *worker.Client {
	return worker.NewClient(current.workerURL, worker.ClientOptions{
		Timeout: current.requestTimeout,
		Logger:  current.logger,
	})
}

func newNotifier() *notify.Notifier {
	return notify.New(current.ntfyURL, notify.Options{Logger: current.logger})
}

// newController builds a controller seeded from settings. onChange may be nil.
func newController(onChange func(workflow.Session)) (*workflow.Controller, error) {
	return workflow.New(newClient(), workflow.Options{
		Mode:        current.mode,
		AccountID:   current.accountID,
		Date:        train.DateOf(time.Now()),
		Time:        current.clock,
		Interval:    current.interval,
		PollTimeout: current.pollTimeout,
		Logger:      current.logger,
		OnChange:    onChange,
	})
}
