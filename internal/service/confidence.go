package service

import (
	"math"

	"github.com/google/uuid"

	"github.com/veritaslabs/veritas/internal/domain"
)

const (
	// DefaultInitialConfidence is the neutral prior for newly extracted claims.
	DefaultInitialConfidence = 0.5
	// DefaultPropagationThreshold gates rippling: direct changes at or below
	// this magnitude never propagate to similar claims.
	DefaultPropagationThreshold = 0.05
	// DefaultMinPropagatedChange suppresses propagated updates whose resulting
	// change would not exceed this floor, bounding audit growth and
	// micro-oscillation.
	DefaultMinPropagatedChange = 0.01
	// DefaultPropagationDecay is the fixed per-hop decay factor.
	DefaultPropagationDecay = 0.9
	// DefaultSimilarityThreshold is the minimum cosine similarity for two
	// claims to count as related.
	DefaultSimilarityThreshold = 0.85
	// DefaultClusterThreshold is the near-duplicate bar for clustering,
	// stricter than the related threshold.
	DefaultClusterThreshold = 0.95
	// DefaultFactSimilarityThreshold is the looser bar used for similar-fact
	// lookup and fact search.
	DefaultFactSimilarityThreshold = 0.80
	// DefaultNeighborLimit caps how many related claims one update can touch.
	DefaultNeighborLimit = 20
	// ClusterCandidateLimit is how many similar arguments the clustering check
	// inspects.
	ClusterCandidateLimit = 5

	// SupportConfidenceDelta is the confidence movement per support reaction.
	SupportConfidenceDelta = 0.02
	// RefuteConfidenceDelta is the confidence movement per refute reaction.
	RefuteConfidenceDelta = 0.02
	// ChallengeBaseImpact is divided by sqrt(challengeCount); deliberately
	// 2.5x the citation impact so debunking moves faster than reinforcement.
	ChallengeBaseImpact = 0.05
	// CitationBaseImpact is divided by sqrt(citationCount).
	CitationBaseImpact = 0.02

	// DefaultLowConfidenceCutoff and DefaultEstablishedCutoff are the query
	// defaults for fact triage listings.
	DefaultLowConfidenceCutoff = 0.3
	DefaultEstablishedCutoff   = 0.8
)

// Tunables groups the threshold configuration shared by the argument and fact
// ledgers. The relative ordering cluster > similarity > fact-similarity is
// assumed throughout and should be preserved when overriding.
type Tunables struct {
	PropagationThreshold    float64
	PropagationDecay        float64
	MinPropagatedChange     float64
	SimilarityThreshold     float64
	ClusterThreshold        float64
	FactSimilarityThreshold float64
	NeighborLimit           int
}

func DefaultTunables() Tunables {
	return Tunables{
		PropagationThreshold:    DefaultPropagationThreshold,
		PropagationDecay:        DefaultPropagationDecay,
		MinPropagatedChange:     DefaultMinPropagatedChange,
		SimilarityThreshold:     DefaultSimilarityThreshold,
		ClusterThreshold:        DefaultClusterThreshold,
		FactSimilarityThreshold: DefaultFactSimilarityThreshold,
		NeighborLimit:           DefaultNeighborLimit,
	}
}

// ShouldPropagate reports whether a confidence change is large enough to
// ripple to semantically related claims.
func ShouldPropagate(delta, threshold float64) bool {
	return math.Abs(delta) > threshold
}

// PropagationStep is one planned neighbor update.
type PropagationStep struct {
	TargetID   uuid.UUID
	Delta      float64
	Similarity float64
}

// PlanPropagation computes the per-neighbor deltas for a source confidence
// change. Influence decays with both the fixed decay factor and each
// neighbor's similarity. Propagation is one level deep: planned targets never
// re-propagate.
func PlanPropagation(delta float64, t Tunables, neighbors []domain.ArgumentWithScore) []PropagationStep {
	steps := make([]PropagationStep, 0, len(neighbors))
	for _, n := range neighbors {
		steps = append(steps, PropagationStep{
			TargetID:   n.ID,
			Delta:      domain.PropagatedDelta(delta, t.PropagationDecay, n.Similarity),
			Similarity: n.Similarity,
		})
	}
	return steps
}

// DiminishingImpact returns base/sqrt(count): the first citation or challenge
// matters more than the hundredth.
func DiminishingImpact(base float64, count int) float64 {
	if count < 1 {
		count = 1
	}
	return base / math.Sqrt(float64(count))
}
