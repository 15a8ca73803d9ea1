package ports

import (
	"context"

	"github.com/layer-3/wellness/core"
)

// EventPublisher broadcasts session lifecycle events to whoever renders the
// application.
type EventPublisher interface {
	Publish(ctx context.Context, event core.SessionEvent) error
}
