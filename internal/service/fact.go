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
	ErrFactNotFound   = errors.New("fact not found")
	ErrFactClaimEmpty = errors.New("claim is required")
)

// EffectiveConfidenceRecalculator lets the fact ledger cascade into the
// argument ledger without a hard dependency between the two services.
type EffectiveConfidenceRecalculator interface {
	RecalculateEffectiveConfidence(ctx context.Context, argumentID uuid.UUID) (float64, error)
}

// FactService orchestrates the fact ledger: creation, citation and challenge
// reactions with diminishing impact, and the cascade that keeps every
// dependent argument's effective confidence in step with the fact's current
// confidence.
type FactService struct {
	facts           domain.FactStore
	links           domain.LinkStore
	audits          domain.AuditStore
	embeddingClient domain.EmbeddingClient
	recalculator    EffectiveConfidenceRecalculator
	logger          *zap.Logger

	Tunables
}

func NewFactService(fs domain.FactStore, ls domain.LinkStore, aus domain.AuditStore, ec domain.EmbeddingClient, logger *zap.Logger) *FactService {
	return &FactService{
		facts:           fs,
		links:           ls,
		audits:          aus,
		embeddingClient: ec,
		logger:          logger,
		Tunables:        DefaultTunables(),
	}
}

// SetRecalculator wires the argument-side recalculation used by the cascade.
func (s *FactService) SetRecalculator(r EffectiveConfidenceRecalculator) {
	s.recalculator = r
}

// FactCreateResult flags an advisory near-duplicate when one exists. Creation
// proceeds regardless; facts are historical record and dedup is advisory.
type FactCreateResult struct {
	SimilarFactID *uuid.UUID `json:"similar_fact_id,omitempty"`
	Similarity    float64    `json:"similarity,omitempty"`
}

func (s *FactService) Create(ctx context.Context, f *domain.Fact) (*FactCreateResult, error) {
	if strings.TrimSpace(f.Claim) == "" {
		return nil, ErrFactClaimEmpty
	}
	if s.embeddingClient == nil {
		return nil, errors.New("embedding client not configured")
	}

	emb, err := s.embeddingClient.Embed(ctx, f.Claim)
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	f.Embedding = emb

	if f.Confidence == 0 {
		f.Confidence = DefaultInitialConfidence
	}
	f.Confidence = domain.Clamp(f.Confidence)

	result := &FactCreateResult{}
	similar, err := s.facts.FindSimilar(ctx, f.Embedding, domain.SimilarOpts{
		Limit:         1,
		MinSimilarity: s.FactSimilarityThreshold,
	})
	if err != nil {
		s.logger.Warn("similar fact lookup failed", zap.Error(err))
	} else if len(similar) > 0 {
		id := similar[0].ID
		result.SimilarFactID = &id
		result.Similarity = similar[0].Similarity
	}

	if err := s.facts.Create(ctx, f); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateConfidence clamps and applies a direct fact confidence change, then
// cascades recalculation to every dependent argument. The cascade has no
// magnitude gate: effective confidence must always reflect the latest fact
// state exactly.
func (s *FactService) UpdateConfidence(ctx context.Context, id uuid.UUID, newConfidence float64, reason string) (*domain.ConfidenceUpdate, error) {
	rec, err := s.facts.SetConfidence(ctx, id, domain.Clamp(newConfidence), domain.ConfidenceAudit{Reason: reason})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFactNotFound
		}
		return nil, err
	}

	if err := s.cascade(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

// Challenge increments the challenge counter and moves confidence toward 0
// with diminishing per-event impact, then cascades.
func (s *FactService) Challenge(ctx context.Context, id uuid.UUID, reason string) (*domain.ConfidenceUpdate, int, error) {
	count, err := s.facts.IncrementChallenge(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrFactNotFound
		}
		return nil, 0, err
	}

	auditReason := fmt.Sprintf("challenged (total challenges: %d)", count)
	if reason != "" {
		auditReason = fmt.Sprintf("challenged: %s (total challenges: %d)", reason, count)
	}

	rec, err := s.facts.NudgeConfidence(ctx, id, -DiminishingImpact(ChallengeBaseImpact, count), 0, domain.ConfidenceAudit{Reason: auditReason})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrFactNotFound
		}
		return nil, 0, err
	}

	if err := s.cascade(ctx, id); err != nil {
		return nil, 0, err
	}
	return rec, count, nil
}

// Cite increments the citation counter and moves confidence toward 1 with
// diminishing per-event impact, then cascades.
func (s *FactService) Cite(ctx context.Context, id uuid.UUID, contextPostID *uuid.UUID) (*domain.ConfidenceUpdate, int, error) {
	count, err := s.facts.IncrementCitation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrFactNotFound
		}
		return nil, 0, err
	}

	auditReason := fmt.Sprintf("cited (total citations: %d)", count)
	if contextPostID != nil {
		auditReason = fmt.Sprintf("cited in post %s (total citations: %d)", contextPostID, count)
	}

	rec, err := s.facts.NudgeConfidence(ctx, id, DiminishingImpact(CitationBaseImpact, count), 0, domain.ConfidenceAudit{Reason: auditReason})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrFactNotFound
		}
		return nil, 0, err
	}

	if err := s.cascade(ctx, id); err != nil {
		return nil, 0, err
	}
	return rec, count, nil
}

// cascade recalculates effective confidence for every argument that depends on
// the fact. Failures propagate: a stale effective confidence is a correctness
// bug, not a degradation.
func (s *FactService) cascade(ctx context.Context, factID uuid.UUID) error {
	if s.recalculator == nil {
		return errors.New("effective confidence recalculator not configured")
	}

	argumentIDs, err := s.links.ListArgumentIDsByFact(ctx, factID)
	if err != nil {
		return fmt.Errorf("list dependents for cascade: %w", err)
	}

	for _, argumentID := range argumentIDs {
		if _, err := s.recalculator.RecalculateEffectiveConfidence(ctx, argumentID); err != nil {
			return fmt.Errorf("recalculate argument %s: %w", argumentID, err)
		}
	}

	if len(argumentIDs) > 0 {
		s.logger.Debug("cascaded fact confidence change",
			zap.String("fact_id", factID.String()),
			zap.Int("dependents", len(argumentIDs)))
	}
	return nil
}

// Get returns the fact together with its most recent confidence history.
func (s *FactService) Get(ctx context.Context, id uuid.UUID, historyLimit int) (*domain.Fact, []domain.ConfidenceUpdate, error) {
	f, err := s.facts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrFactNotFound
		}
		return nil, nil, err
	}

	history, err := s.audits.ListByFact(ctx, id, historyLimit)
	if err != nil {
		s.logger.Warn("failed to load confidence history", zap.String("fact_id", id.String()), zap.Error(err))
		history = nil
	}
	return f, history, nil
}

// Search finds facts semantically similar to the query text. Read path:
// embedding or index failure degrades to an empty result.
func (s *FactService) Search(ctx context.Context, query string, limit int) ([]domain.FactWithScore, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrFactClaimEmpty
	}
	if s.embeddingClient == nil {
		return []domain.FactWithScore{}, nil
	}

	emb, err := s.embeddingClient.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, returning empty search result", zap.Error(err))
		return []domain.FactWithScore{}, nil
	}

	results, err := s.facts.FindSimilar(ctx, emb, domain.SimilarOpts{
		Limit:         limit,
		MinSimilarity: s.FactSimilarityThreshold,
	})
	if err != nil {
		s.logger.Warn("fact search failed, returning empty result", zap.Error(err))
		return []domain.FactWithScore{}, nil
	}
	return results, nil
}

// LowConfidence lists facts below the cutoff, weakest first.
func (s *FactService) LowConfidence(ctx context.Context, cutoff float64, limit int) ([]domain.Fact, error) {
	if cutoff <= 0 {
		cutoff = DefaultLowConfidenceCutoff
	}
	return s.facts.ListLowConfidence(ctx, cutoff, limit)
}

// Established lists facts at or above the cutoff, strongest first.
func (s *FactService) Established(ctx context.Context, cutoff float64, limit int) ([]domain.Fact, error) {
	if cutoff <= 0 {
		cutoff = DefaultEstablishedCutoff
	}
	return s.facts.ListEstablished(ctx, cutoff, limit)
}

// DependentArguments lists the arguments that rely on the fact, with their
// dependency strengths.
func (s *FactService) DependentArguments(ctx context.Context, factID uuid.UUID) ([]domain.DependentArgument, error) {
	if _, err := s.facts.GetByID(ctx, factID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFactNotFound
		}
		return nil, err
	}
	return s.links.ListDependentArguments(ctx, factID)
}
