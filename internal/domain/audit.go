package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConfidenceUpdate is one immutable audit record per elementary confidence
// change. Exactly one of ArgumentID or FactID is set. PropagatedFrom and
// CosineSimilarity are populated only for propagated updates. Records are
// append-only and, ordered by CreatedAt, form the entity's confidence history.
type ConfidenceUpdate struct {
	ID               uuid.UUID  `json:"id"`
	ArgumentID       *uuid.UUID `json:"argument_id,omitempty"`
	FactID           *uuid.UUID `json:"fact_id,omitempty"`
	InteractionID    *uuid.UUID `json:"interaction_id,omitempty"`
	OldConfidence    float64    `json:"old_confidence"`
	NewConfidence    float64    `json:"new_confidence"`
	Reason           string     `json:"reason"`
	PropagatedFrom   *uuid.UUID `json:"propagated_from,omitempty"`
	CosineSimilarity *float64   `json:"cosine_similarity,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Delta returns the signed confidence change this record captured.
func (u *ConfidenceUpdate) Delta() float64 {
	return u.NewConfidence - u.OldConfidence
}

// ConfidenceAudit carries the audit metadata for a confidence mutation. The
// store writes the resulting ConfidenceUpdate row in the same transaction as
// the confidence write itself.
type ConfidenceAudit struct {
	Reason           string
	InteractionID    *uuid.UUID
	PropagatedFrom   *uuid.UUID
	CosineSimilarity *float64
}
