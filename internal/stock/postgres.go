package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists counters in the stock_levels table. The decrement
// is a single conditional UPDATE guarded on the current quantity, so racing
// webhook deliveries serialize on the row without a broader lock.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) Decrement(ctx context.Context, productID, size string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", quantity)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin stock transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		UPDATE stock_levels
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE product_id = $1 AND size = $2 AND quantity >= $3
	`
	cmdTag, err := tx.Exec(ctx, query, productID, size, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		var onHand int
		err := tx.QueryRow(ctx, "SELECT quantity FROM stock_levels WHERE product_id = $1 AND size = $2", productID, size).Scan(&onHand)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s size %s", ErrNotFound, productID, size)
		}
		if err != nil {
			return fmt.Errorf("failed to read stock level: %w", err)
		}
		return fmt.Errorf("%w: %s size %s has %d, need %d", ErrInsufficientStock, productID, size, onHand, quantity)
	}

	if err := appendMovement(ctx, tx, Movement{
		ProductID: productID,
		Size:      size,
		Delta:     -quantity,
		Reason:    ReasonSale,
		Actor:     ActorSystem,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (l *PostgresLedger) Increment(ctx context.Context, productID, size string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", quantity)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin stock transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO stock_levels (product_id, size, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, size)
		DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity, updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, query, productID, size, quantity); err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}

	if err := appendMovement(ctx, tx, Movement{
		ProductID: productID,
		Size:      size,
		Delta:     quantity,
		Reason:    ReasonRestock,
		Actor:     ActorAdmin,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (l *PostgresLedger) Movements(ctx context.Context, productID string) ([]Movement, error) {
	query := `
		SELECT product_id, size, delta, reason, actor, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at
	`
	rows, err := l.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var movement Movement
		if err := rows.Scan(&movement.ProductID, &movement.Size, &movement.Delta, &movement.Reason, &movement.Actor, &movement.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return movements, nil
}

func appendMovement(ctx context.Context, tx pgx.Tx, movement Movement) error {
	query := `
		INSERT INTO stock_movements (product_id, size, delta, reason, actor)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, query, movement.ProductID, movement.Size, movement.Delta, movement.Reason, movement.Actor); err != nil {
		return fmt.Errorf("failed to append stock movement: %w", err)
	}
	return nil
}
