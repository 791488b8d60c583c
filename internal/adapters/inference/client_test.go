package inference_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"review_enricher/internal/adapters/inference"
	"review_enricher/internal/domain"
)

func TestClient_Classify_TopCandidateWins(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Inputs string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Inputs == "" {
			w.WriteHeader(400)
			return
		}
		_ = json.NewEncoder(w).Encode([][]map[string]any{{
			{"label": "NEGATIVE", "score": 0.03},
			{"label": "POSITIVE", "score": 0.97},
		}})
	}))
	defer ts.Close()

	cl, err := inference.New(ts.URL, "", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := cl.Classify(ctx, "Great product, fast shipping!")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Label != "POSITIVE" || got.Score != 0.97 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestClient_Classify_FlatResponseShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"label": "NEGATIVE", "score": 0.81}})
	}))
	defer ts.Close()

	cl, _ := inference.New(ts.URL, "", 100)
	got, err := cl.Classify(context.Background(), "meh")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Label != "NEGATIVE" || got.Score != 0.81 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestClient_Classify_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// cold-start style transient failures
			w.WriteHeader(503)
		default:
			_ = json.NewEncoder(w).Encode([][]map[string]any{{{"label": "POSITIVE", "score": 0.9}}})
		}
	}))
	defer ts.Close()

	cl, _ := inference.New(ts.URL, "token", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.Classify(ctx, "fine")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Label != "POSITIVE" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_Classify_TerminalFailureIsInferenceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer ts.Close()

	cl, _ := inference.New(ts.URL, "", 100)
	_, err := cl.Classify(context.Background(), "anything")
	var infErr *domain.InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
}

func TestClient_Classify_EmptyResponseIsInferenceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([][]map[string]any{})
	}))
	defer ts.Close()

	cl, _ := inference.New(ts.URL, "", 100)
	_, err := cl.Classify(context.Background(), "anything")
	var infErr *domain.InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError for empty payload, got %v", err)
	}
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := inference.New("", "", 5); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
