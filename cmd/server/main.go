// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/shiori/internal/api"
	"github.com/tomtom215/shiori/internal/config"
	"github.com/tomtom215/shiori/internal/feed"
	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/metadata"
	"github.com/tomtom215/shiori/internal/poller"
	"github.com/tomtom215/shiori/internal/quota"
	"github.com/tomtom215/shiori/internal/reminders"
	"github.com/tomtom215/shiori/internal/store"
	"github.com/tomtom215/shiori/internal/supervisor"
	"github.com/tomtom215/shiori/internal/supervisor/services"
	"github.com/tomtom215/shiori/internal/tracked"
	ws "github.com/tomtom215/shiori/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().Str("version", api.Version).Msg("Starting Shiori")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Shiori stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and blocks until a shutdown signal arrives.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kvStore, err := kv.OpenBadger(kv.Options{
		Dir:      cfg.Storage.Dir,
		InMemory: cfg.Storage.InMemory,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := kvStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	guard, err := newGuard(cfg, kvStore)
	if err != nil {
		return err
	}

	fetcher, err := metadata.New(&cfg.Metadata)
	if err != nil {
		return fmt.Errorf("metadata provider: %w", err)
	}

	st := store.New(kvStore, guard)
	cache := tracked.New(kvStore, fetcher)
	hub := ws.NewHub()

	// The cache subscribes before Load so the initial snapshot reconciles it.
	st.Subscribe(cache)
	st.Subscribe(hub)

	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("load list data: %w", err)
	}

	p := poller.New(st, cache, fetcher, poller.Config{
		StartupDelay: cfg.Poller.StartupDelay,
		Interval:     cfg.Poller.Interval,
		RunTimeout:   cfg.Poller.RunTimeout,
	})
	engine := reminders.New(st, cache, reminders.Config{
		StartupDelay:   cfg.Reminders.StartupDelay,
		Interval:       cfg.Reminders.Interval,
		Location:       cfg.Reminders.Location(),
		RearmRepeating: cfg.Reminders.RearmRepeating,
	})

	handler := api.NewHandler(api.Deps{
		Store:   st,
		Feed:    feed.New(st),
		KV:      kvStore,
		Poller:  p,
		Tracked: cache,
		Details: fetcher,
		Guard:   guard,
		Hub:     hub,
	}, cfg)
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromServer(&cfg.Server))

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if cfg.Poller.Enabled {
		tree.AddSchedulingService(services.NewSchedulerService("update-poller", p))
	} else {
		logging.Info().Msg("Update poller disabled")
	}
	if cfg.Reminders.Enabled {
		tree.AddSchedulingService(services.NewSchedulerService("reminder-engine", engine))
	} else {
		logging.Info().Msg("Reminder engine disabled")
	}
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.Timeout))

	logging.Info().
		Str("addr", srv.Addr).
		Bool("poller", cfg.Poller.Enabled).
		Bool("reminders", cfg.Reminders.Enabled).
		Str("metadata_provider", cfg.Metadata.Provider).
		Msg("Services registered")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case sig := <-sigChan:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
		serveErr = <-errCh
	case serveErr = <-errCh:
		cancel()
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree stopped with an error")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}

// newGuard builds the quota guard over the badger size estimate.
func newGuard(cfg *config.Config, kvStore *kv.BadgerStore) (*quota.Guard, error) {
	policy, err := quota.ParsePolicy(cfg.Quota.FallbackPolicy)
	if err != nil {
		return nil, fmt.Errorf("quota policy: %w", err)
	}
	estimator := quota.NewBadgerEstimator(kvStore.DB(), cfg.Storage.CapacityBytes)
	return quota.NewGuard(estimator,
		quota.WithPolicy(policy),
		quota.WithTimeout(cfg.Quota.EstimateTimeout),
	), nil
}
