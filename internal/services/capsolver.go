// Capsolver implementation of [CaptchaSolver]
//
// API reference: https://docs.capsolver.com/en/guide/api-how-to-use/
package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultSolverURL      = "https://api.capsolver.com"
	defaultSolverTaskType = "ReCaptchaV3EnterpriseTaskProxyLess"
	solverRequestTimeout  = 30 * time.Second
)

type solverTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
	PageAction string `json:"pageAction,omitempty"`
}

type createTaskRequest struct {
	ClientKey string     `json:"clientKey"`
	Task      solverTask `json:"task"`
}

type solverError struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func (e solverError) failed() bool { return e.ErrorID != 0 }

func (e solverError) String() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorDescription)
}

type createTaskResponse struct {
	solverError
	TaskID string `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    string `json:"taskId"`
}

type taskResultResponse struct {
	solverError
	Status   string `json:"status"`
	Solution struct {
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
		Token              string `json:"token"`
	} `json:"solution"`
}

// CapSolverOpts contains configuration options for creating a [CapSolver].
type CapSolverOpts struct {
	BaseURL    string
	APIKey     string
	TaskType   string
	WebsiteURL string
	WebsiteKey string
	PageAction string
	RateLimit  float64 // requests per second, <= 0 disables throttling
	HTTPClient *http.Client
	Logger     *log.Logger

	// RetryBackoff builds the policy used to retry task creation on transport errors and 5xx responses.
	RetryBackoff func() backoff.BackOff
}

// CapSolverOptsFromConfig maps the [shared.CaptchaConfig] section onto [CapSolverOpts].
func CapSolverOptsFromConfig(cfg shared.CaptchaConfig) CapSolverOpts {
	return CapSolverOpts{
		BaseURL:    cfg.SolverURL,
		APIKey:     cfg.SolverAPIKey,
		TaskType:   cfg.TaskType,
		WebsiteURL: cfg.WebsiteURL,
		WebsiteKey: cfg.WebsiteKey,
		PageAction: cfg.PageAction,
		RateLimit:  cfg.RateLimit,
	}
}

// CapSolver implements [CaptchaSolver] against the Capsolver HTTP API.
type CapSolver struct {
	http       *resty.Client
	apiKey     string
	task       solverTask
	limiter    *rate.Limiter
	newBackoff func() backoff.BackOff
	logger     *log.Logger
}

// NewCapSolver creates a new solver client.
func NewCapSolver(opts CapSolverOpts) *CapSolver {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultSolverURL
	}
	if opts.TaskType == "" {
		opts.TaskType = defaultSolverTaskType
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.RetryBackoff == nil {
		opts.RetryBackoff = defaultSolverBackoff
	}

	client := resty.New()
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	}
	client.
		SetBaseURL(opts.BaseURL).
		SetTimeout(solverRequestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &CapSolver{
		http:   client,
		apiKey: opts.APIKey,
		task: solverTask{
			Type:       opts.TaskType,
			WebsiteURL: opts.WebsiteURL,
			WebsiteKey: opts.WebsiteKey,
			PageAction: opts.PageAction,
		},
		limiter:    rate.NewLimiter(limit, 1),
		newBackoff: opts.RetryBackoff,
		logger:     shared.WithLogger(opts.Logger, "service", "capsolver"),
	}
}

func defaultSolverBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return backoff.WithMaxRetries(b, 2)
}

// CreateTask submits a new solving job.
//
// Transport failures and 5xx responses are retried; a solver-reported error is permanent.
func (c *CapSolver) CreateTask(ctx context.Context) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: captcha solver api key", shared.ErrMissingCredentials)
	}

	var taskID string
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var out createTaskResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(createTaskRequest{ClientKey: c.apiKey, Task: c.task}).
			SetResult(&out).
			SetError(&out).
			Post("/createTask")
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrSolverRequest, err)
		}

		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", shared.ErrSolverRequest, resp.StatusCode())
		}
		if out.failed() {
			return backoff.Permanent(fmt.Errorf("%w: %s", shared.ErrSolverTask, out.solverError))
		}
		if resp.IsError() {
			return backoff.Permanent(fmt.Errorf("%w: status %d", shared.ErrSolverRequest, resp.StatusCode()))
		}
		if out.TaskID == "" {
			return backoff.Permanent(fmt.Errorf("%w: response has no task id", shared.ErrSolverTask))
		}

		taskID = out.TaskID
		return nil
	}

	notify := func(err error, next time.Duration) {
		c.logger.Warn("create task failed, retrying", "err", err, "in", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(c.newBackoff(), ctx), notify); err != nil {
		return "", err
	}

	c.logger.Debug("task created", "task", taskID)
	return taskID, nil
}

// TaskResult polls a solving job once.
//
// Returns an error when the request fails, and a nil result when the solver reports an error for the task.
func (c *CapSolver) TaskResult(ctx context.Context, taskID string) (*CaptchaResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var out taskResultResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(taskResultRequest{ClientKey: c.apiKey, TaskID: taskID}).
		SetResult(&out).
		SetError(&out).
		Post("/getTaskResult")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSolverRequest, err)
	}

	if out.failed() {
		c.logger.Warn("solver reported task failure", "task", taskID, "err", out.solverError)
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", shared.ErrSolverRequest, resp.StatusCode())
	}

	switch TaskStatus(out.Status) {
	case TaskProcessing, "idle":
		return Processing(), nil
	case TaskReady:
		token := out.Solution.GRecaptchaResponse
		if token == "" {
			token = out.Solution.Token
		}
		if token == "" {
			c.logger.Warn("solver returned ready without a token", "task", taskID)
			return nil, nil
		}
		return Ready(token), nil
	default:
		c.logger.Warn("solver returned unexpected status", "task", taskID, "status", out.Status, "err", shared.ErrUnknownTaskStatus)
		return nil, nil
	}
}
