package ports

import (
	"context"
	"errors"

	"github.com/aescanero/agor/internal/domain"
)

// ErrRunNotFound is returned when no record exists for a run ID.
var ErrRunNotFound = errors.New("run not found")

// RunStore persists run records for the API surface. The core itself
// does not depend on persistence across restarts.
type RunStore interface {
	SaveRun(ctx context.Context, record *domain.RunRecord) error
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)
	ListRuns(ctx context.Context) ([]*domain.RunRecord, error)
}
