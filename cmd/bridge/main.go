package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

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

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("can't initialize bridge")
	}
	defer a.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: ":2112", Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		if err2 := srv.ListenAndServe(); err2 != nil {
			logger.WithError(err2).Fatal("can't start listener for prometheus metrics")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if cfg.Presenter != nil {
		pr := a.NewPresenter(logger.WithField("service", "presenter"))
		go func() {
			if err2 := pr.Serve(ctx, cfg.Presenter.Host); err2 != nil {
				logger.WithError(err2).Fatal("can't serve presenter")
			}
		}()
	}

	a.Monitor.Start(ctx)

	<-ctx.Done()
	logger.Warn("caught CTRL-C, gracefully terminating")
}
