package port

import "context"

// DeviceInfo is the device and app metadata attached to remote configuration requests.
type DeviceInfo struct {
	AttributionID     string
	BundleID          string
	OS                string
	StoreID           string
	Locale            string
	PushToken         string
	FirebaseProjectID string
}

// DeviceInfoProvider reads current device and app metadata.
type DeviceInfoProvider interface {
	DeviceInfo(ctx context.Context) DeviceInfo
}
