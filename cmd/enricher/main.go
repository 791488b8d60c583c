package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_enricher/internal/adapters/inference"
	"review_enricher/internal/adapters/observability"
	redisad "review_enricher/internal/adapters/redis"
	"review_enricher/internal/app"
	"review_enricher/internal/shared"
	mysqlrepo "review_enricher/internal/storage/mysql"
)

// One-shot batch run: enrich every review that has no sentiment yet, then
// exit. Interrupting mid-run is safe; the next run's scan picks up whatever
// is still unannotated.
func main() {
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("inference_url", cfg.InferenceURL).
		Int("workers", cfg.Workers).
		Int("max_tokens", cfg.ModelMaxTokens).
		Msg("enricher starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	clf, err := inference.New(cfg.InferenceURL, cfg.InferenceToken, cfg.InferenceRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize inference client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	svc := app.NewEnrichmentService(repo, clf, cache, cfg.CacheTTL, cfg.ModelMaxTokens, cfg.Workers)

	report, err := svc.EnrichAllPending(ctx)
	if err != nil {
		log.Fatal().Err(err).
			Int("enriched", len(report.Enriched)).
			Int("failed", len(report.Failed)).
			Msg("batch enrichment aborted")
	}

	log.Info().
		Int("enriched", len(report.Enriched)).
		Int("failed", len(report.Failed)).
		Msg("batch enrichment completed")
}
