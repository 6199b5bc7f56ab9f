package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/veritaslabs/veritas/internal/domain"
)

const factColumns = `id, claim, source_post_id, source_user_id, confidence, citation_count, challenge_count, created_at, updated_at`

type FactStore struct {
	db *pgxpool.Pool
}

func NewFactStore(db *pgxpool.Pool) *FactStore {
	return &FactStore{db: db}
}

func (s *FactStore) Create(ctx context.Context, f *domain.Fact) error {
	var embedding *pgvector.Vector
	if len(f.Embedding) > 0 {
		v := pgvector.NewVector(f.Embedding)
		embedding = &v
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create fact: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO facts (claim, source_post_id, source_user_id, embedding, confidence)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		f.Claim, f.SourcePostID, f.SourceUserID, embedding, f.Confidence,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}

	initial := &domain.ConfidenceUpdate{
		FactID:        &f.ID,
		OldConfidence: f.Confidence,
		NewConfidence: f.Confidence,
		Reason:        "initial",
	}
	if err := insertConfidenceUpdate(ctx, tx, initial); err != nil {
		return fmt.Errorf("insert initial confidence record: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *FactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error) {
	f := &domain.Fact{}
	var embedding *pgvector.Vector
	err := s.db.QueryRow(ctx,
		`SELECT id, claim, source_post_id, source_user_id, embedding, confidence, citation_count, challenge_count, created_at, updated_at
		 FROM facts WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.Claim, &f.SourcePostID, &f.SourceUserID, &embedding, &f.Confidence, &f.CitationCount, &f.ChallengeCount, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if embedding != nil {
		f.Embedding = embedding.Slice()
	}
	return f, nil
}

func (s *FactStore) FindSimilar(ctx context.Context, embedding []float32, opts domain.SimilarOpts) ([]domain.FactWithScore, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT %s, 1 - (embedding <=> $1) AS similarity
		 FROM facts
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		   AND ($3::uuid IS NULL OR id != $3)
		 ORDER BY similarity DESC
		 LIMIT $4`, factColumns),
		vec, opts.MinSimilarity, opts.ExcludeID, opts.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find similar facts: %w", err)
	}
	defer rows.Close()

	var results []domain.FactWithScore
	for rows.Next() {
		var fs domain.FactWithScore
		err := rows.Scan(&fs.ID, &fs.Claim, &fs.SourcePostID, &fs.SourceUserID, &fs.Confidence, &fs.CitationCount, &fs.ChallengeCount, &fs.CreatedAt, &fs.UpdatedAt, &fs.Similarity)
		if err != nil {
			return nil, fmt.Errorf("scan similar fact: %w", err)
		}
		results = append(results, fs)
	}
	return results, rows.Err()
}

func (s *FactStore) SetConfidence(ctx context.Context, id uuid.UUID, confidence float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	return applyConfidence(ctx, s.db, "facts", id, func(old float64) float64 { return confidence }, 0, audit)
}

func (s *FactStore) NudgeConfidence(ctx context.Context, id uuid.UUID, delta, minChange float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	return applyConfidence(ctx, s.db, "facts", id, func(old float64) float64 { return domain.Clamp(old + delta) }, minChange, audit)
}

func (s *FactStore) IncrementCitation(ctx context.Context, id uuid.UUID) (int, error) {
	return s.incrementCounter(ctx, id, "citation_count")
}

func (s *FactStore) IncrementChallenge(ctx context.Context, id uuid.UUID) (int, error) {
	return s.incrementCounter(ctx, id, "challenge_count")
}

func (s *FactStore) incrementCounter(ctx context.Context, id uuid.UUID, column string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, fmt.Sprintf(
		`UPDATE facts SET %s = %s + 1, updated_at = NOW() WHERE id = $1 RETURNING %s`,
		column, column, column),
		id,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

func (s *FactStore) ListLowConfidence(ctx context.Context, threshold float64, limit int) ([]domain.Fact, error) {
	return s.listByConfidence(ctx, `confidence < $1 ORDER BY confidence ASC`, threshold, limit)
}

func (s *FactStore) ListEstablished(ctx context.Context, threshold float64, limit int) ([]domain.Fact, error) {
	return s.listByConfidence(ctx, `confidence >= $1 ORDER BY confidence DESC`, threshold, limit)
}

func (s *FactStore) listByConfidence(ctx context.Context, filter string, threshold float64, limit int) ([]domain.Fact, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM facts WHERE %s, created_at DESC LIMIT $2`, factColumns, filter),
		threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list facts by confidence: %w", err)
	}
	defer rows.Close()

	var facts []domain.Fact
	for rows.Next() {
		var f domain.Fact
		if err := rows.Scan(&f.ID, &f.Claim, &f.SourcePostID, &f.SourceUserID, &f.Confidence, &f.CitationCount, &f.ChallengeCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
