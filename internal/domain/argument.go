package domain

import (
	"time"

	"github.com/google/uuid"
)

// Argument is a claim extracted from user discourse. Confidence is the
// argument's own epistemic weight; EffectiveConfidence is that weight dampened
// by the facts the argument depends on and is always derived, never set
// directly by callers.
type Argument struct {
	ID                  uuid.UUID  `json:"id"`
	Content             string     `json:"content"`
	Summary             string     `json:"summary,omitempty"`
	SourcePostID        *uuid.UUID `json:"source_post_id,omitempty"`
	SourceUserID        *uuid.UUID `json:"source_user_id,omitempty"`
	Embedding           []float32  `json:"-"`
	Confidence          float64    `json:"confidence"`
	EffectiveConfidence float64    `json:"effective_confidence"`
	SupportCount        int        `json:"support_count"`
	RefuteCount         int        `json:"refute_count"`
	ClusterID           *uuid.UUID `json:"cluster_id,omitempty"`
	IsClusterHead       bool       `json:"is_cluster_head"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ArgumentWithScore is an argument annotated with its cosine similarity to a
// query vector.
type ArgumentWithScore struct {
	Argument
	Similarity float64 `json:"similarity"`
}

// ArgumentFactLink is a directed dependency edge: the argument relies on the
// fact with the given strength. The (argument, fact) pair is unique; re-linking
// updates the strength in place.
type ArgumentFactLink struct {
	ArgumentID         uuid.UUID `json:"argument_id"`
	FactID             uuid.UUID `json:"fact_id"`
	DependencyStrength float64   `json:"dependency_strength"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FactDependency is a fact joined with the strength of one argument's
// dependency on it, as loaded for effective-confidence recalculation.
type FactDependency struct {
	FactID             uuid.UUID `json:"fact_id"`
	Claim              string    `json:"claim"`
	FactConfidence     float64   `json:"fact_confidence"`
	DependencyStrength float64   `json:"dependency_strength"`
}

// DependentArgument is an argument joined with its dependency strength on a
// given fact.
type DependentArgument struct {
	Argument
	DependencyStrength float64 `json:"dependency_strength"`
}
