package entity

// StoreKey names a value in the durable key/value store.
type StoreKey string

const (
	KeyHasRunBefore          StoreKey = "has_run_before"
	KeyAppMode               StoreKey = "app_mode"
	KeySavedDestination      StoreKey = "saved_destination"
	KeySavedExpiresAt        StoreKey = "saved_expires_at"
	KeyLastPushPromptAt      StoreKey = "last_push_prompt_at"
	KeyPushPermissionGranted StoreKey = "push_permission_granted"
	KeyPushToken             StoreKey = "push_token"
	// KeyOverrideURL is the one-shot destination written by push and deep-link handlers.
	KeyOverrideURL StoreKey = "override_url"
	KeyInstallID   StoreKey = "install_id"
	KeyCookieJar   StoreKey = "cookie_jar"
)

// String returns the raw key.
func (k StoreKey) String() string {
	return string(k)
}
