package services

import (
	"context"
)

// BrowserLoginer performs an interactive or automated login and returns the raw auth token.
type BrowserLoginer interface {
	// Login drives a browser session until the scheduler issues an auth token.
	// No timeout is imposed beyond ctx.
	Login(ctx context.Context) (string, error)
}

// TokenPrompter asks a human operator to paste an auth token.
type TokenPrompter interface {
	PromptToken(ctx context.Context) (PromptResponse, error)
}

// PromptResponse is the structured answer of a [TokenPrompter].
type PromptResponse struct {
	Token string
}

// CaptchaSolver drives an asynchronous third-party captcha solving service.
type CaptchaSolver interface {
	// CreateTask submits a new solving job and returns its task id.
	CreateTask(ctx context.Context) (string, error)

	// TaskResult polls the job. A nil result with a nil error means the service
	// answered but reported a failure for the task.
	TaskResult(ctx context.Context, taskID string) (*CaptchaResult, error)
}

// TaskStatus is the status reported for a solving job.
type TaskStatus string

const (
	TaskProcessing TaskStatus = "processing"
	TaskReady      TaskStatus = "ready"
)

// CaptchaResult is one poll response for a solving job.
type CaptchaResult struct {
	Status   TaskStatus
	Solution CaptchaSolution
}

// CaptchaSolution carries the solved challenge token.
type CaptchaSolution struct {
	Token string
}

// Processing builds a still-processing [CaptchaResult].
func Processing() *CaptchaResult {
	return &CaptchaResult{Status: TaskProcessing}
}

// Ready builds a solved [CaptchaResult].
func Ready(token string) *CaptchaResult {
	return &CaptchaResult{Status: TaskReady, Solution: CaptchaSolution{Token: token}}
}
