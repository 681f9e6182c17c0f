package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Token lifecycle errors
	ErrTokenNotFound  = fmt.Errorf("no stored token")
	ErrReauthRequired = fmt.Errorf("reauthorization required")
	ErrTransient      = fmt.Errorf("transient provider failure")

	// Playback fetch errors
	ErrRateLimited = fmt.Errorf("rate limited by provider")
	ErrAPIRequest  = fmt.Errorf("API request failed")

	// Publish errors
	ErrPublishTimeout = fmt.Errorf("publish timed out")
	ErrNotConnected   = fmt.Errorf("broker not connected")
	ErrPublishFailed  = fmt.Errorf("broker rejected publish")

	// Auth endpoint errors
	ErrStateMismatch    = fmt.Errorf("oauth state mismatch")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// ErrTimeout covers flows that give up waiting, like the CLI login.
	ErrTimeout = fmt.Errorf("operation timed out")
)
