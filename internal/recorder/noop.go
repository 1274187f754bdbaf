package recorder

import (
	"context"

	"ProtectiveAllocator/internal/model"
)

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAllocation(_ context.Context, _ *model.Allocation) error { return nil }

func (n *NoopRecorder) History(_ context.Context) ([]model.AllocationRecord, error) { return nil, nil }

func (n *NoopRecorder) Latest(_ context.Context) ([]model.AllocationRecord, error) { return nil, nil }

func (n *NoopRecorder) Close() error { return nil }
