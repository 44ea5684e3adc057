package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/omni/tokenbridge-antelope/app"
	"github.com/omni/tokenbridge-antelope/config"
	"github.com/omni/tokenbridge-antelope/logging"
)

var configPath = flag.String("config", "config.yml", "path to the config file")

func main() {
	flag.Parse()
	logger := logging.New()

	cfg, err := config.ReadConfigFile(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)

	if err = run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Fatal("reconciliation failed")
	}
}

// run reconciles requests, then refunds, once.
func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("can't initialize bridge: %w", err)
	}
	defer a.Close()

	results, err := a.Monitor.RunOnce(ctx)
	for _, res := range results {
		logger.WithFields(logrus.Fields{
			"kind":      res.Kind,
			"pruned":    res.Pruned,
			"pending":   res.Pending,
			"processed": res.Processed,
			"skipped":   res.Skipped,
		}).Info("reconciled settlements")
	}
	return err
}
