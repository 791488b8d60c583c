package mysql

const getReviewSQL = `
SELECT id, review_text, sentiment, confidence_score
FROM reviews
WHERE id = ?
`

// Both annotation columns move in one statement so a record can never end up
// with a sentiment but no confidence (or the reverse).
const updateAnnotationSQL = `
UPDATE reviews
SET sentiment = ?, confidence_score = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const reviewExistsSQL = `
SELECT EXISTS(SELECT 1 FROM reviews WHERE id = ?)
`

// "Needs enrichment" is exactly sentiment IS NULL; nothing else qualifies.
const scanUnannotatedSQL = `
SELECT id, review_text, sentiment, confidence_score
FROM reviews
WHERE sentiment IS NULL
ORDER BY id
`
