package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modashopapp/modashop/internal/models"
)

// OrderLogStore appends to and reads the immutable order audit table.
// Entries are never updated or deleted.
type OrderLogStore struct {
	pool *pgxpool.Pool
}

func NewOrderLogStore(pool *pgxpool.Pool) *OrderLogStore {
	return &OrderLogStore{pool: pool}
}

func (s *OrderLogStore) Append(ctx context.Context, entry *models.OrderLogEntry) error {
	if entry == nil {
		return fmt.Errorf("log entry is required")
	}

	priorJSON, err := json.Marshal(entry.Prior)
	if err != nil {
		return fmt.Errorf("failed to encode prior snapshot: %w", err)
	}
	newJSON, err := json.Marshal(entry.New)
	if err != nil {
		return fmt.Errorf("failed to encode new snapshot: %w", err)
	}

	query := `
		INSERT INTO order_logs (order_id, action, prior, new, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	row := s.pool.QueryRow(ctx, query, entry.OrderID, entry.Action, priorJSON, newJSON, entry.Note)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&entry.ID, &createdAt); err != nil {
		return fmt.Errorf("failed to append order log entry: %w", err)
	}
	entry.CreatedAt = createdAt.Time
	return nil
}

// History returns all audit entries for an order, oldest first.
func (s *OrderLogStore) History(ctx context.Context, orderID uuid.UUID) ([]*models.OrderLogEntry, error) {
	query := `
		SELECT id, order_id, action, prior, new, note, created_at
		FROM order_logs
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	var entries []*models.OrderLogEntry
	for rows.Next() {
		var (
			entry     models.OrderLogEntry
			priorJSON []byte
			newJSON   []byte
			note      pgtype.Text
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Action, &priorJSON, &newJSON, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan order log entry: %w", err)
		}
		if priorJSON != nil {
			if err := json.Unmarshal(priorJSON, &entry.Prior); err != nil {
				return nil, fmt.Errorf("failed to decode prior snapshot: %w", err)
			}
		}
		if newJSON != nil {
			if err := json.Unmarshal(newJSON, &entry.New); err != nil {
				return nil, fmt.Errorf("failed to decode new snapshot: %w", err)
			}
		}
		if note.Valid {
			entry.Note = note.String
		}
		entry.CreatedAt = createdAt.Time
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
