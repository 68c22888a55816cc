package repository

import (
	"context"

	"visuallm-be/internal/model"
)

type TraceRepository interface {
	// Migrate creates or updates the traces table.
	Migrate(ctx context.Context) error
	Create(ctx context.Context, trace *model.InteractionTrace) error
	// List returns the newest traces first. An empty component matches all.
	List(ctx context.Context, component string, limit int) ([]model.InteractionTrace, error)
}
