package mysql

import (
	"context"
	"database/sql"

	"review_enricher/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetReview(ctx context.Context, id domain.ReviewID) (domain.Review, error) {
	row := r.db.QueryRowContext(ctx, getReviewSQL, id.String())

	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

func (r *Repo) UpdateAnnotation(ctx context.Context, id domain.ReviewID, sentiment string, confidence float64) error {
	res, err := r.db.ExecContext(ctx, updateAnnotationSQL, sentiment, confidence, id.String())
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports changed rows, not matched rows, so writing the same
		// annotation twice looks identical to a miss. Re-check existence to
		// tell the idempotent no-op apart from a missing record.
		var exists bool
		if err := r.db.QueryRowContext(ctx, reviewExistsSQL, id.String()).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
	}
	return nil
}

// ScanUnannotated streams matching rows through fn as they arrive from the
// server. InnoDB's REPEATABLE READ snapshot is taken at statement start, so
// rows annotated by concurrent writers after that point are still yielded.
func (r *Repo) ScanUnannotated(ctx context.Context, fn func(domain.Review) error) error {
	rows, err := r.db.QueryContext(ctx, scanUnannotatedSQL)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return err
		}
		if err := fn(rv); err != nil {
			return err
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		rv         domain.Review
		id         string
		sentiment  sql.NullString
		confidence sql.NullFloat64
	)
	if err := row.Scan(&id, &rv.Text, &sentiment, &confidence); err != nil {
		return domain.Review{}, err
	}
	rv.ID = domain.ReviewID(id)
	if sentiment.Valid {
		s := sentiment.String
		rv.Sentiment = &s
	}
	if confidence.Valid {
		f := confidence.Float64
		rv.Confidence = &f
	}
	return rv, nil
}
