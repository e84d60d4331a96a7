package interfaces

import (
	"context"
	"errors"

	"github.com/carbonledger/api/internal/types"
	"github.com/gofrs/uuid"
)

// ErrTargetNotFound is returned by TargetResolver when no target has the name.
var ErrTargetNotFound = errors.New("target not found")

// TargetResolver resolves a target name to its id for tasks.
type TargetResolver interface {
	TargetIDByName(ctx context.Context, name string) (uuid.UUID, error)
}

// Notifier records an activity performed by actor. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, actor types.UserContext, message string)
}
