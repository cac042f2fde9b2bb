package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/jensneuse/abstractlogger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/datasource"
	"github.com/wundergraph/pgfederation/pkg/datasource/memory"
	"github.com/wundergraph/pgfederation/pkg/datasource/postgres"
	"github.com/wundergraph/pgfederation/pkg/federation"
	graphqlhttp "github.com/wundergraph/pgfederation/pkg/http"
)

const graphqlEndpoint = "/graphql"

func newServeCommand(v *viper.Viper) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve starts the federation endpoint",
		Long: `serve answers _entities and _service requests on /graphql and exposes
prometheus metrics on /metrics.

Rows are fetched from PostgreSQL when --dsn is set. Without a DSN rows are
served from memory, seeded from --fixtures.`,
		Example: "pgfederation serve --catalog catalog.yaml --dsn postgres://localhost/forum?sslmode=disable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	serveCmd.Flags().String("dsn", "", "PostgreSQL connection string (optional)")
	serveCmd.Flags().String("fixtures", "", "YAML file with rows for the in-memory store, used without --dsn (optional)")
	serveCmd.Flags().String("listen", ":4001", "host:port to listen on")
	serveCmd.Flags().Int("concurrency", federation.DefaultConcurrency, "concurrent row fetches per _entities call")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "time to drain requests on shutdown")
	return serveCmd
}

func serve(ctx context.Context, cfg Config) error {
	zapLogger, logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer zapLogger.Sync() // nolint

	c, schema, err := buildSchema(cfg, logger)
	if err != nil {
		return err
	}
	fetcher, closeFetcher, err := newFetcher(ctx, cfg, c, logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := federation.NewMetrics(registry)
	if err != nil {
		return err
	}
	service, err := federation.NewService(schema, fetcher, federation.Config{
		Concurrency: cfg.Concurrency,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           newRouter(service, registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Listening",
		log.String("addr", listener.Addr().String()),
		log.Strings("entities", schema.Entities()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err = <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newFetcher(ctx context.Context, cfg Config, c *catalog.Catalog, logger log.Logger) (datasource.Fetcher, func(), error) {
	if cfg.DSN != "" {
		fetcher, err := postgres.Open(ctx, cfg.DSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return fetcher, func() {
			if err := fetcher.Close(); err != nil {
				logger.Error("postgres.Fetcher.Close", log.Error(err))
			}
		}, nil
	}

	store := memory.New()
	if cfg.Fixtures != "" {
		if err := store.LoadFixturesFile(c, cfg.Fixtures); err != nil {
			return nil, nil, err
		}
	} else {
		logger.Warn("no --dsn or --fixtures configured, every entity resolves to null")
	}
	return store, func() {}, nil
}

func newRouter(service *federation.Service, gatherer prometheus.Gatherer, logger log.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Handle(graphqlEndpoint, graphqlhttp.NewGraphqlHTTPHandler(service, logger))
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return router
}
