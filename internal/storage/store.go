package storage

import (
	"context"

	"popcoal/internal/model"
)

// Store persists completed simulation runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
}

// Resetter is implemented by stores that can drop all records.
type Resetter interface {
	Reset(ctx context.Context) error
}
