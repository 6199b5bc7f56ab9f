package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/veritaslabs/veritas/internal/domain"
)

const argumentColumns = `id, content, summary, source_post_id, source_user_id, confidence, effective_confidence, support_count, refute_count, cluster_id, is_cluster_head, created_at, updated_at`

type ArgumentStore struct {
	db *pgxpool.Pool
}

func NewArgumentStore(db *pgxpool.Pool) *ArgumentStore {
	return &ArgumentStore{db: db}
}

func (s *ArgumentStore) Create(ctx context.Context, a *domain.Argument) error {
	var embedding *pgvector.Vector
	if len(a.Embedding) > 0 {
		v := pgvector.NewVector(a.Embedding)
		embedding = &v
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create argument: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO arguments (content, summary, source_post_id, source_user_id, embedding, confidence, effective_confidence)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING id, created_at, updated_at`,
		a.Content, a.Summary, a.SourcePostID, a.SourceUserID, embedding, a.Confidence,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert argument: %w", err)
	}
	a.EffectiveConfidence = a.Confidence

	initial := &domain.ConfidenceUpdate{
		ArgumentID:    &a.ID,
		OldConfidence: a.Confidence,
		NewConfidence: a.Confidence,
		Reason:        "initial",
	}
	if err := insertConfidenceUpdate(ctx, tx, initial); err != nil {
		return fmt.Errorf("insert initial confidence record: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *ArgumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Argument, error) {
	a := &domain.Argument{}
	var embedding *pgvector.Vector
	err := s.db.QueryRow(ctx,
		`SELECT id, content, summary, source_post_id, source_user_id, embedding, confidence, effective_confidence, support_count, refute_count, cluster_id, is_cluster_head, created_at, updated_at
		 FROM arguments WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Content, &a.Summary, &a.SourcePostID, &a.SourceUserID, &embedding, &a.Confidence, &a.EffectiveConfidence, &a.SupportCount, &a.RefuteCount, &a.ClusterID, &a.IsClusterHead, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if embedding != nil {
		a.Embedding = embedding.Slice()
	}
	return a, nil
}

func (s *ArgumentStore) FindSimilar(ctx context.Context, embedding []float32, opts domain.SimilarOpts) ([]domain.ArgumentWithScore, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	vec := pgvector.NewVector(embedding)

	query := fmt.Sprintf(
		`SELECT %s, 1 - (embedding <=> $1) AS similarity
		 FROM arguments
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		   AND ($3::uuid IS NULL OR id != $3)
		 ORDER BY similarity DESC
		 LIMIT $4`, argumentColumns)

	rows, err := s.db.Query(ctx, query, vec, opts.MinSimilarity, opts.ExcludeID, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("find similar arguments: %w", err)
	}
	defer rows.Close()

	var results []domain.ArgumentWithScore
	for rows.Next() {
		var as domain.ArgumentWithScore
		err := rows.Scan(&as.ID, &as.Content, &as.Summary, &as.SourcePostID, &as.SourceUserID, &as.Confidence, &as.EffectiveConfidence, &as.SupportCount, &as.RefuteCount, &as.ClusterID, &as.IsClusterHead, &as.CreatedAt, &as.UpdatedAt, &as.Similarity)
		if err != nil {
			return nil, fmt.Errorf("scan similar argument: %w", err)
		}
		results = append(results, as)
	}
	return results, rows.Err()
}

func (s *ArgumentStore) SetConfidence(ctx context.Context, id uuid.UUID, confidence float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	return applyConfidence(ctx, s.db, "arguments", id, func(old float64) float64 { return confidence }, 0, audit)
}

func (s *ArgumentStore) NudgeConfidence(ctx context.Context, id uuid.UUID, delta, minChange float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	return applyConfidence(ctx, s.db, "arguments", id, func(old float64) float64 { return domain.Clamp(old + delta) }, minChange, audit)
}

// applyConfidence performs the read-modify-write for a confidence mutation
// under a row lock. The audit row is written in the same transaction as the
// update, so no partial state can commit. With minChange > 0, a resulting
// change at or below the floor is suppressed entirely: the transaction rolls
// back and (nil, nil) is returned.
func applyConfidence(ctx context.Context, db *pgxpool.Pool, table string, id uuid.UUID, next func(old float64) float64, minChange float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin confidence update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var old float64
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT confidence FROM %s WHERE id = $1 FOR UPDATE`, table),
		id,
	).Scan(&old)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock %s row: %w", table, err)
	}

	updated := next(old)
	if minChange > 0 && math.Abs(updated-old) <= minChange {
		return nil, nil
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET confidence = $1, updated_at = NOW() WHERE id = $2`, table),
		updated, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update %s confidence: %w", table, err)
	}

	rec := &domain.ConfidenceUpdate{
		OldConfidence:    old,
		NewConfidence:    updated,
		Reason:           audit.Reason,
		InteractionID:    audit.InteractionID,
		PropagatedFrom:   audit.PropagatedFrom,
		CosineSimilarity: audit.CosineSimilarity,
	}
	if table == "arguments" {
		rec.ArgumentID = &id
	} else {
		rec.FactID = &id
	}
	if err := insertConfidenceUpdate(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("insert confidence record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit confidence update: %w", err)
	}
	return rec, nil
}

func (s *ArgumentStore) SetEffectiveConfidence(ctx context.Context, id uuid.UUID, effective float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE arguments SET effective_confidence = $1, updated_at = NOW() WHERE id = $2`,
		effective, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ArgumentStore) IncrementSupport(ctx context.Context, id uuid.UUID) (int, error) {
	return s.incrementCounter(ctx, id, "support_count")
}

func (s *ArgumentStore) IncrementRefute(ctx context.Context, id uuid.UUID) (int, error) {
	return s.incrementCounter(ctx, id, "refute_count")
}

func (s *ArgumentStore) incrementCounter(ctx context.Context, id uuid.UUID, column string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, fmt.Sprintf(
		`UPDATE arguments SET %s = %s + 1, updated_at = NOW() WHERE id = $1 RETURNING %s`,
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

func (s *ArgumentStore) AssignCluster(ctx context.Context, id, clusterID uuid.UUID, head bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE arguments SET cluster_id = $1, is_cluster_head = $2, updated_at = NOW() WHERE id = $3`,
		clusterID, head, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ArgumentStore) GetClusterMembers(ctx context.Context, clusterID uuid.UUID) ([]domain.Argument, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM arguments WHERE cluster_id = $1 ORDER BY is_cluster_head DESC, created_at ASC`, argumentColumns),
		clusterID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cluster members: %w", err)
	}
	defer rows.Close()
	return scanArguments(rows)
}

func (s *ArgumentStore) ListTopByEffectiveConfidence(ctx context.Context, limit int) ([]domain.Argument, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM arguments ORDER BY effective_confidence DESC, created_at DESC LIMIT $1`, argumentColumns),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list top arguments: %w", err)
	}
	defer rows.Close()
	return scanArguments(rows)
}

func scanArguments(rows pgx.Rows) ([]domain.Argument, error) {
	var arguments []domain.Argument
	for rows.Next() {
		var a domain.Argument
		if err := rows.Scan(&a.ID, &a.Content, &a.Summary, &a.SourcePostID, &a.SourceUserID, &a.Confidence, &a.EffectiveConfidence, &a.SupportCount, &a.RefuteCount, &a.ClusterID, &a.IsClusterHead, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan argument: %w", err)
		}
		arguments = append(arguments, a)
	}
	return arguments, rows.Err()
}
