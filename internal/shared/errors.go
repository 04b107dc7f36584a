package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidStrategy    = fmt.Errorf("invalid auth strategy")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("auth token expired")
	ErrTokenNotFound    = fmt.Errorf("auth token not found")
	ErrPromptCancelled  = fmt.Errorf("prompt cancelled")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Captcha solver errors
	ErrCaptchaRequired   = fmt.Errorf("captcha required")
	ErrSolverRequest     = fmt.Errorf("captcha solver request failed")
	ErrSolverTask        = fmt.Errorf("captcha solver rejected task")
	ErrUnknownTaskStatus = fmt.Errorf("unknown captcha task status")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
