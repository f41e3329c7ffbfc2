package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-cz/devslog"

	"github.com/flowbed/floodcycle"
	"github.com/flowbed/floodcycle/config"
	"github.com/flowbed/floodcycle/internal/environment"
	"github.com/flowbed/floodcycle/types"
)

// denverStations is a small hand-maintained geocoding table standing in
// for the production deployment's real station/postcode catalog, which
// spec.md §1 keeps out of the core's own scope.
var denverStations = []types.Station{
	{ID: "denver-intl", Name: "Denver International Airport", Latitude: 39.8561, Longitude: -104.6737},
}

var denverPostcodes = environment.PostcodeTable{
	"80202": denverStations[0],
}

func main() {
	log := slog.New(devslog.NewHandler(os.Stdout, &devslog.Options{
		HandlerOptions: &slog.HandlerOptions{Level: slog.LevelInfo},
	}))
	slog.SetDefault(log)

	normalized, err := config.LoadAndValidate("floodcycle.yaml", ".env")
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := floodcycle.New(floodcycle.NewAppRequest{
		Config:    normalized,
		Postcodes: denverPostcodes,
		Stations:  denverStations,
		Log:       log,
	})
	if err != nil {
		log.Error("failed to construct floodcycle app", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	log.Info("floodcycle running", "status", app.Status())

	<-ctx.Done()
	log.Info("shutting down")
	if err := app.Stop(); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("shutdown complete")
}
