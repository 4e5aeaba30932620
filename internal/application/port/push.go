package port

import "context"

// PushPermission requests notification authorization from the platform.
type PushPermission interface {
	// RequestAuthorization asks the user and reports whether permission was granted.
	RequestAuthorization(ctx context.Context) (bool, error)
	// RegisterForRemoteNotifications starts token registration after a grant.
	RegisterForRemoteNotifications(ctx context.Context) error
}
