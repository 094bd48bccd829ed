package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/eventadmin/client"
	"github.com/gabrielmiguelok/eventadmin/internal/admin"
	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/health"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/metrics"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
	"github.com/gabrielmiguelok/eventadmin/pkg/pubsub"
	"github.com/gabrielmiguelok/eventadmin/pkg/router"
	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
	"github.com/gabrielmiguelok/eventadmin/pkg/shutdown"
	"github.com/gabrielmiguelok/eventadmin/pkg/state"
	"github.com/gabrielmiguelok/eventadmin/pkg/uploads"
)

// maxSessions is the live session count at which readiness fails.
const maxSessions = 1000

// Per client upload pacing.
const (
	uploadRate  = 1.0
	uploadBurst = 5
)

func newServeCmd() *cobra.Command {
	var (
		dev    bool
		addr   string
		apiURL string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dev)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Address = addr
			}
			if apiURL != "" {
				cfg.API.BaseURL = apiURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "use the development defaults")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "admin backend base URL")
	return cmd
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func serve(ctx context.Context, cfg core.Config) error {
	logger := newLogger(cfg.Log)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	breaker := api.NewBreaker(&api.BreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 1,
		OnStateChange: func(from, to api.BreakerState) {
			logger.Warn("backend circuit changed", logging.String("from", from.String()), logging.String("to", to.String()))
		},
	})
	m := metrics.NewConsole("eventadmin")
	backend, err := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithBasicAuth(cfg.API.Username, cfg.API.Password),
		api.WithBreaker(breaker),
		api.WithLocation(loc),
		api.WithMetrics(m),
		api.WithLogger(logger.With(logging.String("component", "api"))),
	)
	if err != nil {
		return err
	}

	stop := shutdown.New(cfg.Timeouts.GracefulShutdown, logger.With(logging.String("component", "shutdown")))

	ps := pubsub.NewMemoryPubSub(64)
	notes := notify.NewStore(
		notify.WithDefaultDuration(cfg.Notifications.DefaultDuration),
		notify.WithPubSub(ps),
	)
	stop.AddFunc("notifications", shutdown.PriorityBroker, notes.Close)
	stop.AddCloser("pubsub", shutdown.PriorityBroker, ps)

	drafts := state.NewMemoryStore(time.Minute)
	stop.AddCloser("drafts", shutdown.PriorityStore, drafts)

	r := router.New(
		router.WithLogger(logger),
		router.WithScript("/assets/"+client.Script),
		router.WithPubSub(ps, notify.Topic),
		router.WithOriginPatterns(cfg.AllowedOrigins...),
		router.WithReadLimit(cfg.MaxMessageSize),
		router.WithTimeouts(cfg.Timeouts),
		router.WithMetrics(m),
	)
	r.Use(router.RequestID())
	r.Use(router.Recovery(logger))
	r.Use(router.SecureHeaders())

	admin.Register(r, admin.Deps{
		Backend: backend,
		Notify:  notes,
		Checker: schedule.NewChecker(backend,
			schedule.WithLocation(loc),
			schedule.WithLogger(logger.With(logging.String("component", "conflicts"))),
		),
		Drafts:   drafts,
		DraftTTL: cfg.Drafts.TTL,
		Metrics:  m,
		Location: loc,
		Logger:   logger,
	})
	upload := uploads.NewHandler(uploads.Config{
		Accept:      cfg.Uploads.Accept,
		MaxFileSize: cfg.Uploads.MaxFileSize,
		Metrics:     m,
	}, backend, logger.With(logging.String("component", "uploads")))
	r.Handle("POST /upload", router.RateLimit(uploadRate, uploadBurst)(upload))
	r.Assets("/assets", client.Assets())

	hc := health.NewChecker(version)
	hc.AddCriticalCheck("backend", health.BackendCheck(backend.Ping), 3*time.Second)
	hc.AddCheck("circuit", health.BreakerCheck(func() fmt.Stringer { return breaker.State() }), time.Second)
	hc.AddCheck("sessions", health.SessionsCheck(r.Sessions, maxSessions), time.Second)
	r.Handle("GET /healthz", hc.ReadinessHandler())
	r.Handle("GET /livez", hc.LivenessHandler())
	r.Handle("GET /metrics", m.Handler())

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           logging.RequestLogger(logger)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("console listening", logging.String("addr", cfg.Address), logging.String("backend", cfg.API.BaseURL))
		errc <- server.ListenAndServe()
	}()

	stop.Add("live sessions", shutdown.PrioritySessions, r.Shutdown)
	stop.Add("http", shutdown.PriorityHTTP, func(ctx context.Context) error {
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case err := <-errc:
		stop.Run(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return stop.Run(context.Background())
}
