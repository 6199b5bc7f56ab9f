package domain

import (
	"context"

	"github.com/google/uuid"
)

// SimilarOpts controls a similarity-index query. Entities whose stored
// embeddings are NULL are never candidates.
type SimilarOpts struct {
	Limit         int
	MinSimilarity float64
	ExcludeID     *uuid.UUID
}

type ArgumentStore interface {
	// Create persists the argument together with its initial confidence
	// history entry, in one transaction.
	Create(ctx context.Context, a *Argument) error
	GetByID(ctx context.Context, id uuid.UUID) (*Argument, error)
	FindSimilar(ctx context.Context, embedding []float32, opts SimilarOpts) ([]ArgumentWithScore, error)

	// SetConfidence sets the argument's confidence to the given (already
	// clamped) value under a row lock and writes the audit record in the same
	// transaction. The returned record carries the old value.
	SetConfidence(ctx context.Context, id uuid.UUID, confidence float64, audit ConfidenceAudit) (*ConfidenceUpdate, error)

	// NudgeConfidence applies a relative delta under a row lock, clamping the
	// result to [0, 1]. If the resulting change does not exceed minChange the
	// row and its history are left untouched and (nil, nil) is returned.
	NudgeConfidence(ctx context.Context, id uuid.UUID, delta, minChange float64, audit ConfidenceAudit) (*ConfidenceUpdate, error)

	SetEffectiveConfidence(ctx context.Context, id uuid.UUID, effective float64) error
	IncrementSupport(ctx context.Context, id uuid.UUID) (int, error)
	IncrementRefute(ctx context.Context, id uuid.UUID) (int, error)

	AssignCluster(ctx context.Context, id, clusterID uuid.UUID, head bool) error
	GetClusterMembers(ctx context.Context, clusterID uuid.UUID) ([]Argument, error)
	ListTopByEffectiveConfidence(ctx context.Context, limit int) ([]Argument, error)
}

type FactStore interface {
	Create(ctx context.Context, f *Fact) error
	GetByID(ctx context.Context, id uuid.UUID) (*Fact, error)
	FindSimilar(ctx context.Context, embedding []float32, opts SimilarOpts) ([]FactWithScore, error)

	SetConfidence(ctx context.Context, id uuid.UUID, confidence float64, audit ConfidenceAudit) (*ConfidenceUpdate, error)
	NudgeConfidence(ctx context.Context, id uuid.UUID, delta, minChange float64, audit ConfidenceAudit) (*ConfidenceUpdate, error)

	IncrementCitation(ctx context.Context, id uuid.UUID) (int, error)
	IncrementChallenge(ctx context.Context, id uuid.UUID) (int, error)

	ListLowConfidence(ctx context.Context, threshold float64, limit int) ([]Fact, error)
	ListEstablished(ctx context.Context, threshold float64, limit int) ([]Fact, error)
}

type LinkStore interface {
	// Upsert inserts the link or, if the (argument, fact) pair already exists,
	// updates the dependency strength in place.
	Upsert(ctx context.Context, link *ArgumentFactLink) error
	ListByArgument(ctx context.Context, argumentID uuid.UUID) ([]FactDependency, error)
	ListArgumentIDsByFact(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error)
	ListDependentArguments(ctx context.Context, factID uuid.UUID) ([]DependentArgument, error)
}

type AuditStore interface {
	ListByArgument(ctx context.Context, argumentID uuid.UUID, limit int) ([]ConfidenceUpdate, error)
	ListByFact(ctx context.Context, factID uuid.UUID, limit int) ([]ConfidenceUpdate, error)
}

// EmbeddingClient turns text into a fixed-dimension vector. Identical text
// yields the same vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
