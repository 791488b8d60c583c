// internal/adapters/http_server/handlers.go
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"review_enricher/internal/app"
	"review_enricher/internal/domain"
)

type Handlers struct{ E *app.EnrichmentService }

// enrichmentResponse mirrors the persisted field names, which is the shape
// API consumers already depend on.
type enrichmentResponse struct {
	Review     string  `json:"Review"`
	Sentiment  string  `json:"Sentiment"`
	Confidence float64 `json:"Confidence_score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Welcome to the Sentiment Analysis API. Use /analyze_review?review_id=<id> to analyze a review."))
	})
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.With(Timeout(30 * time.Second)).Get("/analyze_review", h.analyzeReview)
	// The batch scan is exhaustive by contract, so it gets no timeout wrapper;
	// clients cancel via the request context.
	s.mux.Get("/analyze_reviews_with_no_sentiment", h.analyzeAllPending)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func toResponse(e domain.Enrichment) enrichmentResponse {
	return enrichmentResponse{Review: e.ReviewText, Sentiment: e.Sentiment, Confidence: e.Confidence}
}

func (h *Handlers) analyzeReview(w http.ResponseWriter, r *http.Request) {
	rawID := r.URL.Query().Get("review_id")

	res, err := h.E.EnrichOne(r.Context(), rawID)
	if err != nil {
		var infErr *domain.InferenceError
		switch {
		case errors.Is(err, domain.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "Invalid review ID format")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "Review not found")
		case errors.As(err, &infErr):
			log.Error().Err(err).Str("review_id", rawID).Msg("inference failed")
			writeError(w, http.StatusBadGateway, "sentiment analysis failed")
		default:
			log.Error().Err(err).Str("review_id", rawID).Msg("enrichment failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toResponse(res))
}

func (h *Handlers) analyzeAllPending(w http.ResponseWriter, r *http.Request) {
	report, err := h.E.EnrichAllPending(r.Context())
	if err != nil {
		// Records enriched before the abort stay annotated; the next run's
		// scan picks up the remainder.
		log.Error().Err(err).Int("enriched", len(report.Enriched)).Msg("batch enrichment aborted")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	updated := make([]enrichmentResponse, 0, len(report.Enriched))
	for _, e := range report.Enriched {
		updated = append(updated, toResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated_reviews": updated})
}
