package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyIdentity  = "identity"
	ContextKeyTask      = "task"
	ContextKeyBrand     = "brand"
	ContextKeyRequestID = "request_id"
	SessionCookieName   = "task_session"
	HeaderRequestID     = "X-Request-ID"
)

// Validation limits
const (
	MinPasswordLength   = 6
	MaxAIGeneratedTasks = 20
)

// Pagination
const (
	FirstPage       = 1
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Password reset
const (
	OTPMin              = 100000
	OTPMax              = 999999
	OTPValidity         = 2 * time.Minute
	OTPMaxRequests      = 3
	OTPRequestWindow    = 10 * time.Minute
	PasswordResetWindow = 10 * time.Minute
)

// Defaults applied during normalization
const (
	DefaultBrandCategory = "Other"
	DefaultTaskType      = "regular"
)
