package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "cv-processor/docs" // Swagger docs
	"cv-processor/internal/api"
	"cv-processor/internal/app"
	"cv-processor/internal/config"
	"cv-processor/internal/logger"
	"cv-processor/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title CV Processing API
// @version 1.0.0
// @description Parses uploaded CVs, stores candidates and job descriptions with embeddings, and ranks candidates against a job description.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /

// @securityDefinitions.apikey SecretKey
// @in header
// @name X-Secret-Key

var (
	cfgFile string
	debug   bool
	jsonLog bool

	rootCmd = &cobra.Command{
		Use:           "cv-processor",
		Short:         "HTTP API for CV ingestion and candidate matching",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLog, "json", "j", false, "json format for logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context) error {
	zl, err := logger.New(jsonLog, debug)
	if err != nil {
		return err
	}
	defer zl.Sync()

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if cfg.SecretKey == "" {
		zl.Warn("SECRET_KEY is not set, every request will be rejected")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl.Info("starting", zap.String("app", cfg.App.Name), zap.String("version", cfg.App.Version))

	services, err := app.Build(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer services.Close()

	embedders := struct {
		*service.CVService
		*service.JobService
	}{services.CVs, services.Jobs}
	worker := api.NewEmbeddingWorker(embedders, embedders, api.WorkerOptions{}, zl)
	services.CVs.SetRetrier(worker)
	services.Jobs.SetRetrier(worker)
	go worker.Start(ctx)

	apiSrv := api.NewAPI(api.Options{
		AppName:        cfg.App.Name,
		AppVersion:     cfg.App.Version,
		SecretKey:      cfg.SecretKey,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, services.CVs, services.Jobs, services.Contacts, services.Ranker, zl)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(apiSrv),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // LLM extraction retries + embedding
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("API server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
	return nil
}
