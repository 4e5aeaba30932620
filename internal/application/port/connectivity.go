package port

import (
	"context"

	"github.com/bnema/waypoint/internal/domain/entity"
)

// ConnectivityMonitor observes the network path in the background.
type ConnectivityMonitor interface {
	// Run reports status changes to onChange until ctx is done.
	Run(ctx context.Context, onChange func(entity.ConnectivityStatus)) error
}
