package storage

import (
	"context"
	"time"

	"swapdesk/internal/model"
)

// Journal records finished actions.
type Journal interface {
	RecordAction(ctx context.Context, action model.ActionSnapshot) error
}

// ActionFilter narrows a journal listing. Zero values mean no constraint.
type ActionFilter struct {
	Account string
	Kind    model.ActionKind
	Since   time.Time
	Limit   int
}

// ActionLister reads journaled actions back.
type ActionLister interface {
	ListActions(ctx context.Context, filter ActionFilter) ([]model.ActionSnapshot, error)
}

// PoolSink persists pool snapshots after a refresh.
type PoolSink interface {
	UpsertPools(ctx context.Context, pools []model.Pool) error
}
