package cmd

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/logger"
)

const defaultInterval = "6h"

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run cycles on a schedule until interrupted",
	Run: func(_ *cobra.Command, _ []string) {
		daemon()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func daemon() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting candigo daemon", zap.String("version", version))

	eng, err := buildEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}
	defer eng.Close()

	cycle := func() {
		report, err := eng.controller.RunCycle(ctx, eng.fetchers, eng.query, config.Profile)
		if err != nil {
			logger.Error("cycle failed", zap.Error(err))
			return
		}
		logger.Info("cycle summary", zap.String("summary", report.Summary()))
	}

	specs, err := scheduleSpecs(config.Daemon)
	if err != nil {
		logger.Fatal("building the schedule", zap.Error(err))
	}

	// Overlapping triggers skip instead of queueing: one cycle at a time.
	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	for _, spec := range specs {
		if _, err := scheduler.AddFunc(spec, cycle); err != nil {
			logger.Fatal("adding schedule entry", zap.String("spec", spec), zap.Error(err))
		}
		logger.Info("scheduled cycles", zap.String("spec", spec))
	}

	scheduler.Start()
	cycle()

	<-ctx.Done()
	logger.Info("shutting down, waiting for the running cycle to finish")

	// Stop returns once the in-flight jobs are done.
	<-scheduler.Stop().Done()
	logger.Info("daemon stopped")
}

// scheduleSpecs turns the daemon config into cron specs: a periodic
// interval plus optional fixed daily times.
func scheduleSpecs(cfg *DaemonConfig) ([]string, error) {
	interval := defaultInterval
	if cfg != nil && cfg.Every != "" {
		interval = cfg.Every
	}
	if _, err := time.ParseDuration(interval); err != nil {
		return nil, fmt.Errorf("invalid daemon.every %q: %w", interval, err)
	}

	specs := []string{"@every " + interval}

	if cfg == nil {
		return specs, nil
	}
	for _, at := range cfg.At {
		t, err := time.Parse("15:04", strings.TrimSpace(at))
		if err != nil {
			return nil, fmt.Errorf("invalid daemon.at entry %q, want HH:MM: %w", at, err)
		}
		specs = append(specs, fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()))
	}

	return specs, nil
}
