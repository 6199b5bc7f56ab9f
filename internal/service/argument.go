package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veritaslabs/veritas/internal/domain"
	"github.com/veritaslabs/veritas/internal/store"
)

var (
	ErrArgumentNotFound     = errors.New("argument not found")
	ErrArgumentContentEmpty = errors.New("content is required")
	ErrInvalidStrength      = errors.New("dependency strength must be between 0 and 1")
)

// ArgumentService orchestrates the argument ledger: creation with embeddings,
// direct and reaction-driven confidence updates with similarity-weighted
// propagation, near-duplicate clustering, and effective-confidence
// recalculation against linked facts.
type ArgumentService struct {
	arguments       domain.ArgumentStore
	facts           domain.FactStore
	links           domain.LinkStore
	audits          domain.AuditStore
	embeddingClient domain.EmbeddingClient
	logger          *zap.Logger

	Tunables
}

func NewArgumentService(as domain.ArgumentStore, fs domain.FactStore, ls domain.LinkStore, aus domain.AuditStore, ec domain.EmbeddingClient, logger *zap.Logger) *ArgumentService {
	return &ArgumentService{
		arguments:       as,
		facts:           fs,
		links:           ls,
		audits:          aus,
		embeddingClient: ec,
		logger:          logger,
		Tunables:        DefaultTunables(),
	}
}

// Create embeds and persists a new argument with the neutral prior, then runs
// the best-effort clustering check. Clustering failures are logged and
// swallowed; creation has already succeeded by then.
func (s *ArgumentService) Create(ctx context.Context, a *domain.Argument) error {
	if strings.TrimSpace(a.Content) == "" {
		return ErrArgumentContentEmpty
	}
	if s.embeddingClient == nil {
		return errors.New("embedding client not configured")
	}

	emb, err := s.embeddingClient.Embed(ctx, a.Content)
	if err != nil {
		return fmt.Errorf("generate embedding: %w", err)
	}
	a.Embedding = emb

	if a.Confidence == 0 {
		a.Confidence = DefaultInitialConfidence
	}
	a.Confidence = domain.Clamp(a.Confidence)

	if err := s.arguments.Create(ctx, a); err != nil {
		return err
	}

	if err := s.checkForClustering(ctx, a); err != nil {
		s.logger.Warn("clustering check failed",
			zap.String("argument_id", a.ID.String()),
			zap.Error(err))
	}

	return nil
}

// checkForClustering looks up the closest arguments and, when the best match
// crosses the near-duplicate bar, either joins its existing cluster or forms a
// new one keyed by the new argument's id, with the new argument as head.
func (s *ArgumentService) checkForClustering(ctx context.Context, a *domain.Argument) error {
	if len(a.Embedding) == 0 {
		return nil
	}

	matches, err := s.arguments.FindSimilar(ctx, a.Embedding, domain.SimilarOpts{
		Limit:         ClusterCandidateLimit,
		MinSimilarity: s.ClusterThreshold,
		ExcludeID:     &a.ID,
	})
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	best := matches[0]

	if best.ClusterID != nil {
		if err := s.arguments.AssignCluster(ctx, a.ID, *best.ClusterID, false); err != nil {
			return err
		}
		a.ClusterID = best.ClusterID
		s.logger.Debug("argument joined existing cluster",
			zap.String("argument_id", a.ID.String()),
			zap.String("cluster_id", best.ClusterID.String()),
			zap.Float64("similarity", best.Similarity))
		return nil
	}

	// Fresh cluster: the newest argument's id becomes the cluster id and the
	// newest argument is marked head.
	if err := s.arguments.AssignCluster(ctx, best.ID, a.ID, false); err != nil {
		return err
	}
	if err := s.arguments.AssignCluster(ctx, a.ID, a.ID, true); err != nil {
		return err
	}
	clusterID := a.ID
	a.ClusterID = &clusterID
	a.IsClusterHead = true
	s.logger.Debug("formed new argument cluster",
		zap.String("cluster_id", a.ID.String()),
		zap.String("matched_argument_id", best.ID.String()),
		zap.Float64("similarity", best.Similarity))
	return nil
}

// ConfidenceUpdateResult reports a direct confidence change and the related
// arguments it rippled to.
type ConfidenceUpdateResult struct {
	ArgumentID    uuid.UUID   `json:"argument_id"`
	OldConfidence float64     `json:"old_confidence"`
	NewConfidence float64     `json:"new_confidence"`
	PropagatedTo  []uuid.UUID `json:"propagated_to"`
}

// UpdateConfidence clamps and applies a direct confidence change, then ripples
// it, decayed, to related arguments when the delta is large enough.
func (s *ArgumentService) UpdateConfidence(ctx context.Context, id uuid.UUID, newConfidence float64, reason string, interactionID *uuid.UUID) (*ConfidenceUpdateResult, error) {
	rec, err := s.arguments.SetConfidence(ctx, id, domain.Clamp(newConfidence), domain.ConfidenceAudit{
		Reason:        reason,
		InteractionID: interactionID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrArgumentNotFound
		}
		return nil, err
	}

	return &ConfidenceUpdateResult{
		ArgumentID:    id,
		OldConfidence: rec.OldConfidence,
		NewConfidence: rec.NewConfidence,
		PropagatedTo:  s.propagate(ctx, id, rec.Delta()),
	}, nil
}

// Support records a support reaction and nudges confidence up by the fixed
// per-reaction delta.
func (s *ArgumentService) Support(ctx context.Context, id, userID uuid.UUID, interactionID *uuid.UUID) (*ConfidenceUpdateResult, error) {
	count, err := s.arguments.IncrementSupport(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrArgumentNotFound
		}
		return nil, err
	}
	reason := fmt.Sprintf("supported by user %s (total supports: %d)", userID, count)
	return s.react(ctx, id, SupportConfidenceDelta, reason, interactionID)
}

// Refute records a refute reaction and nudges confidence down by the fixed
// per-reaction delta.
func (s *ArgumentService) Refute(ctx context.Context, id, userID uuid.UUID, interactionID *uuid.UUID) (*ConfidenceUpdateResult, error) {
	count, err := s.arguments.IncrementRefute(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrArgumentNotFound
		}
		return nil, err
	}
	reason := fmt.Sprintf("refuted by user %s (total refutes: %d)", userID, count)
	return s.react(ctx, id, -RefuteConfidenceDelta, reason, interactionID)
}

func (s *ArgumentService) react(ctx context.Context, id uuid.UUID, delta float64, reason string, interactionID *uuid.UUID) (*ConfidenceUpdateResult, error) {
	rec, err := s.arguments.NudgeConfidence(ctx, id, delta, 0, domain.ConfidenceAudit{
		Reason:        reason,
		InteractionID: interactionID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrArgumentNotFound
		}
		return nil, err
	}

	return &ConfidenceUpdateResult{
		ArgumentID:    id,
		OldConfidence: rec.OldConfidence,
		NewConfidence: rec.NewConfidence,
		PropagatedTo:  s.propagate(ctx, id, rec.Delta()),
	}, nil
}

// propagate ripples a confidence delta one level deep to related arguments.
// Failures here degrade to no propagation rather than failing the originating
// update, which has already committed.
func (s *ArgumentService) propagate(ctx context.Context, sourceID uuid.UUID, delta float64) []uuid.UUID {
	propagated := []uuid.UUID{}
	if !ShouldPropagate(delta, s.PropagationThreshold) {
		return propagated
	}

	source, err := s.arguments.GetByID(ctx, sourceID)
	if err != nil {
		s.logger.Warn("failed to load propagation source", zap.String("argument_id", sourceID.String()), zap.Error(err))
		return propagated
	}
	if len(source.Embedding) == 0 {
		return propagated
	}

	neighbors, err := s.arguments.FindSimilar(ctx, source.Embedding, domain.SimilarOpts{
		Limit:         s.NeighborLimit,
		MinSimilarity: s.SimilarityThreshold,
		ExcludeID:     &sourceID,
	})
	if err != nil {
		s.logger.Warn("similarity lookup failed, skipping propagation",
			zap.String("argument_id", sourceID.String()),
			zap.Error(err))
		return propagated
	}

	for _, step := range PlanPropagation(delta, s.Tunables, neighbors) {
		similarity := step.Similarity
		rec, err := s.arguments.NudgeConfidence(ctx, step.TargetID, step.Delta, s.MinPropagatedChange, domain.ConfidenceAudit{
			Reason:           fmt.Sprintf("propagated from related claim %s", sourceID),
			PropagatedFrom:   &sourceID,
			CosineSimilarity: &similarity,
		})
		if err != nil {
			s.logger.Warn("propagated update failed",
				zap.String("argument_id", step.TargetID.String()),
				zap.Error(err))
			continue
		}
		if rec == nil {
			// Resulting change below the floor, suppressed.
			continue
		}
		propagated = append(propagated, step.TargetID)
		s.logger.Debug("propagated confidence change",
			zap.String("from", sourceID.String()),
			zap.String("to", step.TargetID.String()),
			zap.Float64("similarity", step.Similarity),
			zap.Float64("old_confidence", rec.OldConfidence),
			zap.Float64("new_confidence", rec.NewConfidence))
	}
	return propagated
}

// RecalculateEffectiveConfidence recomputes the fact-dampened confidence from
// the argument's current dependency links. Idempotent; reads confidence, never
// writes it.
func (s *ArgumentService) RecalculateEffectiveConfidence(ctx context.Context, id uuid.UUID) (float64, error) {
	a, err := s.arguments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrArgumentNotFound
		}
		return 0, err
	}

	deps, err := s.links.ListByArgument(ctx, id)
	if err != nil {
		return 0, err
	}

	effective := domain.EffectiveConfidence(a.Confidence, deps)
	if err := s.arguments.SetEffectiveConfidence(ctx, id, effective); err != nil {
		return 0, err
	}
	return effective, nil
}

// LinkToFact upserts the dependency edge and immediately recalculates the
// argument's effective confidence. Returns the new effective confidence.
func (s *ArgumentService) LinkToFact(ctx context.Context, argumentID, factID uuid.UUID, strength float64) (*domain.ArgumentFactLink, float64, error) {
	if strength < 0 || strength > 1 {
		return nil, 0, ErrInvalidStrength
	}

	if _, err := s.arguments.GetByID(ctx, argumentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrArgumentNotFound
		}
		return nil, 0, err
	}
	if _, err := s.facts.GetByID(ctx, factID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrFactNotFound
		}
		return nil, 0, err
	}

	link := &domain.ArgumentFactLink{
		ArgumentID:         argumentID,
		FactID:             factID,
		DependencyStrength: strength,
	}
	if err := s.links.Upsert(ctx, link); err != nil {
		return nil, 0, err
	}

	effective, err := s.RecalculateEffectiveConfidence(ctx, argumentID)
	if err != nil {
		return nil, 0, err
	}
	return link, effective, nil
}

// Get returns the argument together with its most recent confidence history.
func (s *ArgumentService) Get(ctx context.Context, id uuid.UUID, historyLimit int) (*domain.Argument, []domain.ConfidenceUpdate, error) {
	a, err := s.arguments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrArgumentNotFound
		}
		return nil, nil, err
	}

	history, err := s.audits.ListByArgument(ctx, id, historyLimit)
	if err != nil {
		s.logger.Warn("failed to load confidence history", zap.String("argument_id", id.String()), zap.Error(err))
		history = nil
	}
	return a, history, nil
}

// ClusterArguments returns every member of the argument's cluster; an
// unclustered argument yields just itself.
func (s *ArgumentService) ClusterArguments(ctx context.Context, id uuid.UUID) ([]domain.Argument, error) {
	a, err := s.arguments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrArgumentNotFound
		}
		return nil, err
	}

	if a.ClusterID == nil {
		return []domain.Argument{*a}, nil
	}
	return s.arguments.GetClusterMembers(ctx, *a.ClusterID)
}

// TopArguments lists arguments ranked by effective confidence.
func (s *ArgumentService) TopArguments(ctx context.Context, limit int) ([]domain.Argument, error) {
	return s.arguments.ListTopByEffectiveConfidence(ctx, limit)
}
