// internal/adapters/inference/client.go
package inference

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_enricher/internal/adapters/observability"
	"review_enricher/internal/domain"
)

// Client calls a hosted text-classification endpoint speaking the common
// inference-API wire shape: POST {"inputs": <text>} returning the candidate
// labels with scores. The top-scoring candidate wins, matching a
// sentiment-analysis pipeline's single-verdict output.
type Client struct {
	url   string
	token string
	hc    *http.Client
	rl    *rate.Limiter
}

func New(url, token string, rps int) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("inference URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		url:   url,
		token: token,
		hc:    &http.Client{Timeout: 30 * time.Second},
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type classifyRequest struct {
	Inputs string `json:"inputs"`
}

type candidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify implements domain.Classifier. Every failure mode (transport,
// non-2xx after retries, undecodable or empty payload) is reported as
// *domain.InferenceError so callers can treat it as a per-record failure.
func (c *Client) Classify(ctx context.Context, text string) (domain.InferenceResult, error) {
	cands, err := c.post(ctx, text)
	if err != nil {
		return domain.InferenceResult{}, &domain.InferenceError{Err: err}
	}
	if len(cands) == 0 {
		return domain.InferenceResult{}, &domain.InferenceError{Err: fmt.Errorf("empty classification response")}
	}
	best := cands[0]
	for _, cd := range cands[1:] {
		if cd.Score > best.Score {
			best = cd
		}
	}
	return domain.InferenceResult{Label: best.Label, Score: best.Score}, nil
}

// post performs the classify call with client-side rate limiting and retries
// on 429/transient 5xx, honoring Retry-After when provided.
func (c *Client) post(ctx context.Context, text string) ([]candidate, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(classifyRequest{Inputs: text})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("inference", "classify", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			cands, derr := decodeCandidates(resp.Body)
			resp.Body.Close()
			return cands, derr

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			// 503 is also how hosted models report a cold start.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("inference backend %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return nil, lastErr
}

// decodeCandidates accepts both response nestings in the wild:
// [[{"label","score"},...]] for a single input, and the flat [{"label","score"},...].
func decodeCandidates(r io.Reader) ([]candidate, error) {
	raw, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return nil, err
	}
	var nested [][]candidate
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []candidate
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode classification response: %w", err)
	}
	return flat, nil
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
