package domain

import "strings"

// ReviewID is the store's opaque identifier: 24 lowercase hex characters.
type ReviewID string

func (id ReviewID) String() string { return string(id) }

// ParseReviewID validates the raw identifier before any store call.
// Uppercase hex is accepted and folded to lowercase.
func ParseReviewID(raw string) (ReviewID, error) {
	if len(raw) != 24 {
		return "", ErrInvalidID
	}
	for _, c := range raw {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return "", ErrInvalidID
		}
	}
	return ReviewID(strings.ToLower(raw)), nil
}

type Review struct {
	ID         ReviewID
	Text       string
	Sentiment  *string  // nil until enriched
	Confidence *float64 // written together with Sentiment, never alone
}

// Annotated reports whether the review already carries a sentiment pair.
func (r Review) Annotated() bool { return r.Sentiment != nil }

// InferenceResult is the classifier's verdict for one text. Ephemeral;
// consumed immediately to update a Review.
type InferenceResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Enrichment is the caller-facing outcome of enriching one review.
type Enrichment struct {
	ReviewText string
	Sentiment  string
	Confidence float64
}
