package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritaslabs/veritas/internal/domain"
)

type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(db *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: db}
}

// insertConfidenceUpdate appends one audit row inside the caller's transaction
// so a confidence write and its record always commit together.
func insertConfidenceUpdate(ctx context.Context, tx pgx.Tx, rec *domain.ConfidenceUpdate) error {
	return tx.QueryRow(ctx,
		`INSERT INTO confidence_updates (argument_id, fact_id, interaction_id, old_confidence, new_confidence, reason, propagated_from, cosine_similarity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		rec.ArgumentID, rec.FactID, rec.InteractionID, rec.OldConfidence, rec.NewConfidence, rec.Reason, rec.PropagatedFrom, rec.CosineSimilarity,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func (s *AuditStore) ListByArgument(ctx context.Context, argumentID uuid.UUID, limit int) ([]domain.ConfidenceUpdate, error) {
	return s.list(ctx, "argument_id", argumentID, limit)
}

func (s *AuditStore) ListByFact(ctx context.Context, factID uuid.UUID, limit int) ([]domain.ConfidenceUpdate, error) {
	return s.list(ctx, "fact_id", factID, limit)
}

func (s *AuditStore) list(ctx context.Context, column string, id uuid.UUID, limit int) ([]domain.ConfidenceUpdate, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT id, argument_id, fact_id, interaction_id, old_confidence, new_confidence, reason, propagated_from, cosine_similarity, created_at
		 FROM confidence_updates
		 WHERE %s = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, column),
		id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list confidence updates: %w", err)
	}
	defer rows.Close()

	var updates []domain.ConfidenceUpdate
	for rows.Next() {
		var u domain.ConfidenceUpdate
		if err := rows.Scan(&u.ID, &u.ArgumentID, &u.FactID, &u.InteractionID, &u.OldConfidence, &u.NewConfidence, &u.Reason, &u.PropagatedFrom, &u.CosineSimilarity, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan confidence update: %w", err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
