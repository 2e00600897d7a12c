// Package store holds the Analysis store: the engine's durability boundary.
package store

import (
	"context"

	"marketanalysis/internal/models"
)

// Store is a keyed store of the latest Analysis per symbol, per §4.3.
type Store interface {
	Upsert(ctx context.Context, a models.Analysis) error
	Get(ctx context.Context, symbol string) (*models.Analysis, error)
	All(ctx context.Context) ([]models.Analysis, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
