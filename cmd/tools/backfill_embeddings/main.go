package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"cv-processor/internal/app"
	"cv-processor/internal/config"
	"cv-processor/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	dryRun  bool
	limit   int
	jsonLog bool

	rootCmd = &cobra.Command{
		Use:          "backfill_embeddings",
		Short:        "Generate embeddings for CVs and job descriptions stored without one",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
)

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "optional config file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", true, "if true, only list the records that would be embedded")
	rootCmd.Flags().IntVar(&limit, "limit", 200, "max number of records of each kind to process in one run")
	rootCmd.Flags().BoolVarP(&jsonLog, "json", "j", false, "json format for logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

type pass struct {
	kind    string
	pending func(ctx context.Context, limit int) ([]string, error)
	embed   func(ctx context.Context, id string) error
}

func run(ctx context.Context) error {
	zl, err := logger.New(jsonLog, true)
	if err != nil {
		return err
	}
	defer zl.Sync()

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.Build(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer services.Close()

	passes := []pass{
		{kind: "cv", pending: services.Store.PendingCVEmbeddings, embed: services.CVs.EmbedCV},
		{kind: "jd", pending: services.Store.PendingJobPostingEmbeddings, embed: services.Jobs.EmbedJobPosting},
	}

	for _, p := range passes {
		ids, err := p.pending(ctx, limit)
		if err != nil {
			return err
		}
		zl.Info("[Backfill] records without embedding", zap.String("kind", p.kind), zap.Int("count", len(ids)), zap.Int("limit", limit))

		var done, failed int
		for _, id := range ids {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if dryRun {
				zl.Info("[Backfill] would embed", zap.String("kind", p.kind), zap.String("id", id))
				continue
			}
			if err := p.embed(ctx, id); err != nil {
				failed++
				zl.Warn("[Backfill] embedding failed", zap.String("kind", p.kind), zap.String("id", id), zap.Error(err))
				continue
			}
			done++
		}
		zl.Info("[Backfill] pass finished",
			zap.String("kind", p.kind),
			zap.Int("embedded", done),
			zap.Int("failed", failed),
			zap.Bool("dry_run", dryRun),
		)
	}
	return nil
}
