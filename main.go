package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sdow11/live-ad-detection-sub000/cluster"
	"github.com/sdow11/live-ad-detection-sub000/election"
	"github.com/sdow11/live-ad-detection-sub000/shared/logging"
)

func main() {
	cfg, err := election.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.Errorf("config: %v", err)
		os.Exit(1)
	}

	logging.SetLevel(cfg.LogLevel)

	device := cluster.NewDevice(cfg.DeviceID)

	coord, err := election.NewCoordinator(cfg, device, nil)
	if err != nil {
		logging.Errorf("coordinator: %v", err)
		os.Exit(1)
	}

	coord.Start()

	srv := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: election.NewServer(coord).Router(),
	}

	go func() {
		logging.Infof("%s listening on %s", cfg.DeviceID, cfg.BindAddr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("http server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	<-c

	logging.Infof("%s shutting down", cfg.DeviceID)

	coord.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("http shutdown: %v", err)
	}
}
