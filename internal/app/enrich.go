package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_enricher/internal/adapters/observability"
	"review_enricher/internal/domain"
)

const defaultMaxTokens = 512

// EnrichmentService runs the pipeline validate -> lookup -> normalize ->
// classify -> write-back for one review, and drives it over a scan of all
// unannotated reviews.
type EnrichmentService struct {
	repo      domain.ReviewRepository
	clf       domain.Classifier
	cache     domain.Cache // optional; nil disables inference caching
	cacheTTL  time.Duration
	maxTokens int
	workers   int
}

func NewEnrichmentService(r domain.ReviewRepository, c domain.Classifier, cache domain.Cache, cacheTTL time.Duration, maxTokens, workers int) *EnrichmentService {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if workers < 1 {
		workers = 1
	}
	return &EnrichmentService{repo: r, clf: c, cache: cache, cacheTTL: cacheTTL, maxTokens: maxTokens, workers: workers}
}

// EnrichOne classifies the identified review and persists the annotation.
// The id is validated before any store call. A classifier failure leaves the
// record untouched; the single UpdateAnnotation is the only mutation and runs
// at most once, after a successful inference.
func (s *EnrichmentService) EnrichOne(ctx context.Context, rawID string) (domain.Enrichment, error) {
	id, err := domain.ParseReviewID(rawID)
	if err != nil {
		return domain.Enrichment{}, err
	}

	rv, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return domain.Enrichment{}, err
	}

	res, err := s.classify(ctx, rv.Text)
	if err != nil {
		observability.ObserveEnrichment("inference_error")
		return domain.Enrichment{}, err
	}

	if err := s.repo.UpdateAnnotation(ctx, id, res.Label, res.Score); err != nil {
		observability.ObserveEnrichment("store_error")
		return domain.Enrichment{}, fmt.Errorf("update annotation for %s: %w", id, err)
	}

	observability.ObserveEnrichment("ok")
	return domain.Enrichment{ReviewText: rv.Text, Sentiment: res.Label, Confidence: res.Score}, nil
}

// BatchFailure records one review the batch run could not enrich.
type BatchFailure struct {
	ID  domain.ReviewID
	Err error
}

// BatchReport accumulates the outcome of one EnrichAllPending run.
type BatchReport struct {
	Enriched []domain.Enrichment
	Failed   []BatchFailure
}

// EnrichAllPending enriches every review whose sentiment is absent. Inference
// failures are isolated per record: the failure is recorded and the scan moves
// on. Store failures (scan or write-back) abort the remaining run; the report
// still carries everything accumulated so far. An aborted run is safe to
// repeat; the next scan naturally picks up whatever is still unannotated.
func (s *EnrichmentService) EnrichAllPending(ctx context.Context) (BatchReport, error) {
	if s.workers > 1 {
		return s.enrichAllParallel(ctx)
	}

	var report BatchReport
	err := s.repo.ScanUnannotated(ctx, func(rv domain.Review) error {
		res, cerr := s.classify(ctx, rv.Text)
		if cerr != nil {
			observability.ObserveEnrichment("inference_error")
			log.Warn().Str("review_id", rv.ID.String()).Err(cerr).Msg("enrichment skipped")
			report.Failed = append(report.Failed, BatchFailure{ID: rv.ID, Err: cerr})
			return nil
		}
		if uerr := s.repo.UpdateAnnotation(ctx, rv.ID, res.Label, res.Score); uerr != nil {
			observability.ObserveEnrichment("store_error")
			return fmt.Errorf("update annotation for %s: %w", rv.ID, uerr)
		}
		observability.ObserveEnrichment("ok")
		report.Enriched = append(report.Enriched, domain.Enrichment{ReviewText: rv.Text, Sentiment: res.Label, Confidence: res.Score})
		return nil
	})
	return report, err
}

// enrichAllParallel fans records out to a bounded worker pool. Per-record
// atomicity is unchanged: each worker performs its own classify-then-update
// sequence. A write-back failure cancels the scan.
func (s *EnrichmentService) enrichAllParallel(ctx context.Context) (BatchReport, error) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		report  BatchReport
		mu      sync.Mutex
		wg      sync.WaitGroup
		fatal   error
		fatalMu sync.Mutex
	)
	sem := semaphore.NewWeighted(int64(s.workers))

	err := s.repo.ScanUnannotated(scanCtx, func(rv domain.Review) error {
		if err := sem.Acquire(scanCtx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(rv domain.Review) {
			defer wg.Done()
			defer sem.Release(1)

			res, cerr := s.classify(scanCtx, rv.Text)
			if cerr != nil {
				observability.ObserveEnrichment("inference_error")
				log.Warn().Str("review_id", rv.ID.String()).Err(cerr).Msg("enrichment skipped")
				mu.Lock()
				report.Failed = append(report.Failed, BatchFailure{ID: rv.ID, Err: cerr})
				mu.Unlock()
				return
			}
			if uerr := s.repo.UpdateAnnotation(scanCtx, rv.ID, res.Label, res.Score); uerr != nil {
				observability.ObserveEnrichment("store_error")
				fatalMu.Lock()
				if fatal == nil {
					fatal = fmt.Errorf("update annotation for %s: %w", rv.ID, uerr)
				}
				fatalMu.Unlock()
				cancel()
				return
			}
			observability.ObserveEnrichment("ok")
			mu.Lock()
			report.Enriched = append(report.Enriched, domain.Enrichment{ReviewText: rv.Text, Sentiment: res.Label, Confidence: res.Score})
			mu.Unlock()
		}(rv)
		return nil
	})
	wg.Wait()

	fatalMu.Lock()
	defer fatalMu.Unlock()
	if fatal != nil {
		return report, fatal
	}
	return report, err
}

// classify normalizes the text to the model's token budget and runs inference,
// consulting the result cache first. The classifier is deterministic for a
// fixed input, so caching on the normalized text is safe.
func (s *EnrichmentService) classify(ctx context.Context, text string) (domain.InferenceResult, error) {
	norm := normalizeText(text, s.maxTokens)
	key := inferenceKey(norm)

	var res domain.InferenceResult
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &res); ok {
			return res, nil
		}
	}

	res, err := s.clf.Classify(ctx, norm)
	if err != nil {
		return domain.InferenceResult{}, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, res, int(s.cacheTTL.Seconds()))
	}
	return res, nil
}

func inferenceKey(normalized string) string {
	sum := sha1.Sum([]byte(normalized))
	return "inference:" + hex.EncodeToString(sum[:])
}
