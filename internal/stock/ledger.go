// Package stock owns per-size inventory counters and their movement history.
// All mutation goes through a Ledger; order code never writes stock directly.
package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInsufficientStock is returned when a decrement would take a
	// counter below zero. Nothing is mutated.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNotFound is returned when no stock record exists for the
	// product/size pair.
	ErrNotFound = errors.New("stock record not found")
)

// Movement reasons and actors recorded in the audit trail.
const (
	ReasonSale    = "sale"
	ReasonRestock = "restock"

	ActorSystem = "system"
	ActorAdmin  = "admin"
)

// Movement is an append-only record of a single stock mutation.
type Movement struct {
	ProductID string    `json:"product_id"`
	Size      string    `json:"size"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger mutates inventory counters atomically per (product, size) key.
// Implementations must be safe under concurrent invocation for the same key.
type Ledger interface {
	// Decrement reduces the on-hand quantity, recording a negative
	// movement with reason "sale" and actor "system". Fails with
	// ErrInsufficientStock without mutating when on-hand < quantity.
	Decrement(ctx context.Context, productID, size string, quantity int) error
	// Increment raises the on-hand quantity (manual restock path),
	// recording a positive movement with reason "restock" and actor
	// "admin".
	Increment(ctx context.Context, productID, size string, quantity int) error
	// Movements returns the movement history for a product, oldest first.
	Movements(ctx context.Context, productID string) ([]Movement, error)
}

type Config struct {
	Provider string
	Pool     *pgxpool.Pool
}

func NewLedger(cfg Config) (Ledger, error) {
	switch cfg.Provider {
	case "postgres", "":
		if cfg.Pool == nil {
			return nil, fmt.Errorf("postgres stock ledger requires a connection pool")
		}
		return NewPostgresLedger(cfg.Pool), nil
	case "memory":
		return NewMemoryLedger(), nil
	default:
		return nil, fmt.Errorf("unsupported stock ledger provider: %s", cfg.Provider)
	}
}
