/*
main.go - Application entry point

PURPOSE:
  The docfin command. Runs the HTTP service and offers offline
  calculations over terms files.

COMMANDS:
  serve      Start the HTTP API
  schedule   Print the amortization schedule for a terms file
  render     Render a loan document from a terms file to stdout
  apr        Solve an APR from amount financed, payment and term

SERVE STARTUP SEQUENCE:
  1. Load configuration (.env, environment, defaults)
  2. Build the zap logger
  3. Open SQLite metadata store (migrations applied on open)
  4. Connect Redis schedule cache, or fall back to in-process cache
  5. Open S3 document storage, or fall back to in-memory storage
  6. Wire calculator, narrator, builder, document service
  7. Start the stale generation sweeper and the HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper, close cache and database
  4. Exit

ENVIRONMENT:
  See config/config.go. PORT, DATABASE_PATH, REDIS_ADDR, S3_BUCKET,
  LLM_API_KEY and LOG_LEVEL are the ones usually set.

EXAMPLES:
  # Run with an in-memory database and no external services
  DATABASE_PATH=":memory:" docfin serve

  # Schedule for a YAML terms file
  docfin schedule --terms deal.yaml

  # APR for a 36-month loan
  docfin apr --financed 10000 --payment 322.67 --term 36

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealforge/docfin/api"
	"github.com/dealforge/docfin/cache"
	"github.com/dealforge/docfin/config"
	"github.com/dealforge/docfin/document"
	"github.com/dealforge/docfin/factory"
	"github.com/dealforge/docfin/loan"
	"github.com/dealforge/docfin/store/blob"
	"github.com/dealforge/docfin/store/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

var timeNow = time.Now

func main() {
	rootCmd := &cobra.Command{
		Use:          "docfin",
		Short:        "docfin - financial figures and documents for deal terms",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(aprCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	return cmd
}

func serve(cfg *config.Config) error {
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	checks := []api.HealthCheck{{Name: "sqlite", Check: store.Ping}}

	var scheduleCache cache.Cache = cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.CacheTTL)
		defer rc.Close()
		if err := rc.Ping(context.Background()); err != nil {
			// reads miss and writes are logged until redis comes back
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		scheduleCache = rc
		checks = append(checks, api.HealthCheck{Name: "redis", Check: rc.Ping})
	}

	var blobs blob.Store
	if cfg.S3Bucket != "" {
		s3Store, err := blob.NewS3Store(blob.S3Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region, Endpoint: cfg.S3Endpoint})
		if err != nil {
			return fmt.Errorf("failed to open document storage: %w", err)
		}
		blobs = s3Store
	} else {
		logger.Warn("S3_BUCKET not set; rendered documents are kept in memory")
		blobs = blob.NewMemoryStore()
	}

	narrator := document.NewLLMNarrator(document.LLMConfig{
		APIKey:  cfg.LLMAPIKey,
		APIURL:  cfg.LLMAPIURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	}, logger)
	if cfg.LLMAPIKey == "" {
		logger.Info("LLM_API_KEY not set; using template prose")
	}

	calc := loan.NewCalculator(logger, scheduleCache)
	terms := factory.NewTermsFactory(cfg.PaymentDayPolicy)
	docs := document.NewService(calc, document.NewBuilder(narrator, logger), terms, store, blobs, logger)

	handler := api.NewHandler(docs, calc, terms, logger, checks...)
	router, err := api.NewRouter(handler, api.RouterOptions{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
	})
	if err != nil {
		return err
	}

	sweeper := api.NewGenerationSweeper(store, logger)
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.LLMTimeout),
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("version", Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// writeTimeout leaves a document request room for one narration call at
// the narrator's own timeout plus building, rendering and storing the body.
func writeTimeout(narration time.Duration) time.Duration {
	return narration + 30*time.Second
}
