package domain

import (
	"time"

	"github.com/google/uuid"
)

// Fact is a factual assertion that arguments can depend on. Confidence moves
// toward 1 on citation and toward 0 on challenge, with diminishing per-event
// impact. Facts are historical record and are never deleted.
type Fact struct {
	ID             uuid.UUID  `json:"id"`
	Claim          string     `json:"claim"`
	SourcePostID   *uuid.UUID `json:"source_post_id,omitempty"`
	SourceUserID   *uuid.UUID `json:"source_user_id,omitempty"`
	Embedding      []float32  `json:"-"`
	Confidence     float64    `json:"confidence"`
	CitationCount  int        `json:"citation_count"`
	ChallengeCount int        `json:"challenge_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FactWithScore is a fact annotated with its cosine similarity to a query
// vector.
type FactWithScore struct {
	Fact
	Similarity float64 `json:"similarity"`
}
