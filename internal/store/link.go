package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritaslabs/veritas/internal/domain"
)

type LinkStore struct {
	db *pgxpool.Pool
}

func NewLinkStore(db *pgxpool.Pool) *LinkStore {
	return &LinkStore{db: db}
}

func (s *LinkStore) Upsert(ctx context.Context, link *domain.ArgumentFactLink) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO argument_fact_links (argument_id, fact_id, dependency_strength)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (argument_id, fact_id) DO UPDATE
		 SET dependency_strength = EXCLUDED.dependency_strength,
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		link.ArgumentID, link.FactID, link.DependencyStrength,
	).Scan(&link.CreatedAt, &link.UpdatedAt)
}

func (s *LinkStore) ListByArgument(ctx context.Context, argumentID uuid.UUID) ([]domain.FactDependency, error) {
	rows, err := s.db.Query(ctx,
		`SELECT l.fact_id, f.claim, f.confidence, l.dependency_strength
		 FROM argument_fact_links l
		 INNER JOIN facts f ON f.id = l.fact_id
		 WHERE l.argument_id = $1
		 ORDER BY l.created_at ASC`,
		argumentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list fact dependencies: %w", err)
	}
	defer rows.Close()

	var deps []domain.FactDependency
	for rows.Next() {
		var d domain.FactDependency
		if err := rows.Scan(&d.FactID, &d.Claim, &d.FactConfidence, &d.DependencyStrength); err != nil {
			return nil, fmt.Errorf("scan fact dependency: %w", err)
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func (s *LinkStore) ListArgumentIDsByFact(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT argument_id FROM argument_fact_links WHERE fact_id = $1`,
		factID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dependent argument ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *LinkStore) ListDependentArguments(ctx context.Context, factID uuid.UUID) ([]domain.DependentArgument, error) {
	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.content, a.summary, a.source_post_id, a.source_user_id, a.confidence, a.effective_confidence, a.support_count, a.refute_count, a.cluster_id, a.is_cluster_head, a.created_at, a.updated_at,
		        l.dependency_strength
		 FROM arguments a
		 INNER JOIN argument_fact_links l ON l.argument_id = a.id
		 WHERE l.fact_id = $1
		 ORDER BY l.dependency_strength DESC, a.created_at ASC`,
		factID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dependent arguments: %w", err)
	}
	defer rows.Close()

	var dependents []domain.DependentArgument
	for rows.Next() {
		var d domain.DependentArgument
		if err := rows.Scan(&d.ID, &d.Content, &d.Summary, &d.SourcePostID, &d.SourceUserID, &d.Confidence, &d.EffectiveConfidence, &d.SupportCount, &d.RefuteCount, &d.ClusterID, &d.IsClusterHead, &d.CreatedAt, &d.UpdatedAt, &d.DependencyStrength); err != nil {
			return nil, fmt.Errorf("scan dependent argument: %w", err)
		}
		dependents = append(dependents, d)
	}
	return dependents, rows.Err()
}
