package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cursive-labs/beacon/aggregate"
	backendredis "github.com/cursive-labs/beacon/backend/redis"
	"github.com/cursive-labs/beacon/config"
	"github.com/cursive-labs/beacon/definition"
	"github.com/cursive-labs/beacon/enforce"
	"github.com/cursive-labs/beacon/ingest"
	"github.com/cursive-labs/beacon/log"
	"github.com/cursive-labs/beacon/metrics"
	"github.com/cursive-labs/beacon/profile"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the tracking pixel intake",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to beacond.yaml",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP listen address",
				Value: ":8330",
			},
			&cli.StringFlag{
				Name:    "backend-url",
				Usage:   "Redis backend URL",
				EnvVars: []string{"BEACON_BACKEND_URL"},
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// CLI flags override config values.
	if c.IsSet("listen") || cfg.Listen == "" {
		cfg.Listen = c.String("listen")
	}
	if url := c.String("backend-url"); url != "" {
		cfg.Backend.URL = url
	}
	if cfg.Backend.URL == "" {
		return errors.New("a backend URL is required (--backend-url or config)")
	}

	logger := log.NewLogger("beacond")

	be, err := backendredis.New(backendredis.Config{
		URL:       cfg.Backend.URL,
		Timeout:   cfg.Backend.Timeout.Duration,
		EntityTTL: cfg.Backend.EntityTTL.Duration,
	})
	if err != nil {
		return err
	}
	defer func() { _ = be.Close() }()

	actorCfg := ingest.DefaultConfig()
	if cfg.Ingest.Mode != "" {
		actorCfg.Mode = ingest.Mode(cfg.Ingest.Mode)
	}
	if cfg.Ingest.QueueSize > 0 {
		actorCfg.QueueSize = cfg.Ingest.QueueSize
	}
	if cfg.Ingest.MaxBatch > 0 {
		actorCfg.MaxBatch = cfg.Ingest.MaxBatch
	}
	if cfg.Ingest.Workers > 0 {
		actorCfg.Workers = cfg.Ingest.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	actor := ingest.New(actorCfg, be, logger.Named("ingest"))
	actor.Start(ctx)
	defer func() { _ = actor.Close() }()

	defs := definition.Builtin()
	profiles := profile.NewRegistry()
	if err := registerBaseProfiles(profiles, defs); err != nil {
		return err
	}

	counterMode := aggregate.CounterMode(cfg.Tracking.CounterMode)
	agg := aggregate.NewEngine(counterMode, logger.Named("aggregate"))

	collector := metrics.NewCollector(string(actorCfg.Mode), "redis")

	engine := enforce.NewEngine(enforce.EngineConfig{
		SentinelParam:            cfg.Tracking.SentinelParam,
		DiscardOnMissingSentinel: cfg.Tracking.DiscardOnMissingSentinel,
		EventChannel:             cfg.Tracking.EventChannel,
		ErrorChannel:             cfg.Tracking.ErrorChannel,
	}, profiles, agg, actor, logger.Named("enforce"), collector)

	mux := http.NewServeMux()
	mux.Handle("GET /v1/hit", hitHandler(engine, false))
	mux.Handle("GET /v1/r", hitHandler(engine, true))
	mux.HandleFunc("GET /v1/stats", statsHandler(collector, actor))

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	logger.Info("serving", map[string]any{"listen": cfg.Listen})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// hitHandler turns an HTTP hit into an enforcement call. The pixel
// response itself carries no body; clients only care that the hit
// landed.
func hitHandler(engine *enforce.Engine, legacy bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := enforce.NewRequestData(r)

		hit := enforce.Hit{
			URL:     r.URL.String(),
			Method:  r.Method,
			Profile: r.URL.Query().Get("profile"),
			Legacy:  legacy,
			Data:    data,
		}
		if legacy {
			hit.Ref = r.URL.Query().Get(enforce.LegacyRefKey)
		}
		if cookie, err := r.Cookie("bfp"); err == nil {
			hit.Fingerprint = cookie.Value
		}

		if _, err := engine.Enforce(r.Context(), hit); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// statusFor maps enforcement errors onto HTTP status classes:
// resolution and policy errors are the client's fault, backpressure is
// not.
func statusFor(err error) int {
	switch {
	case errors.Is(err, profile.ErrUnknownRefcode),
		errors.Is(err, profile.ErrInvalidRefcode),
		errors.Is(err, profile.ErrUnknownProfile),
		enforce.IsMissingParameter(err),
		enforce.IsUnexpectedParameter(err),
		enforce.IsMissingSentinel(err):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func statsHandler(collector *metrics.Collector, actor *ingest.Actor) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := collector.Snapshot()
		actorStats := actor.Stats()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "hits_received %d\n", snap.HitsReceived)
		fmt.Fprintf(w, "hits_enforced %d\n", snap.HitsEnforced)
		fmt.Fprintf(w, "hits_warned %d\n", snap.HitsWarned)
		fmt.Fprintf(w, "hits_aborted %d\n", snap.HitsAborted)
		fmt.Fprintf(w, "legacy_resolved %d\n", snap.LegacyResolved)
		fmt.Fprintf(w, "increments_planned %d\n", snap.IncrementsPlanned)
		fmt.Fprintf(w, "batches_enqueued %d\n", actorStats.BatchesEnqueued)
		fmt.Fprintf(w, "batches_rejected %d\n", actorStats.BatchesRejected)
		fmt.Fprintf(w, "flush_count %d\n", actorStats.FlushCount)
		fmt.Fprintf(w, "ops_committed %d\n", actorStats.OpsCommitted)
		fmt.Fprintf(w, "batch_failures %d\n", actorStats.Failures)
	}
}
