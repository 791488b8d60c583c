package domain

import "context"

type ReviewRepository interface {
	// GetReview is a point lookup; returns ErrNotFound when no row matches.
	GetReview(ctx context.Context, id ReviewID) (Review, error)

	// UpdateAnnotation sets sentiment and confidence atomically on the
	// matching record. Idempotent: repeating the same values is a no-op.
	// Returns ErrNotFound when no row matches.
	UpdateAnnotation(ctx context.Context, id ReviewID, sentiment string, confidence float64) error

	// ScanUnannotated streams every review whose sentiment is absent through
	// fn, in store-defined order. A non-nil error from fn stops the scan and
	// is returned. Whether rows annotated mid-scan by other writers are still
	// yielded is up to the store's snapshot semantics; callers must not rely
	// on exclusion of in-flight updates.
	ScanUnannotated(ctx context.Context, fn func(Review) error) error
}

type Classifier interface {
	// Classify returns the single most likely sentiment class for text,
	// which must already fit the model's token budget. Failures are
	// reported as *InferenceError.
	Classify(ctx context.Context, text string) (InferenceResult, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
