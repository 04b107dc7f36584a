// Probe implementation of [Scanner]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

// CaptchaHeader carries a solved captcha token on a scan request.
const CaptchaHeader = "X-Captcha-Token"

// ScanRequest is the input of one scan.
type ScanRequest struct {
	Client       *http.Client // authenticated session client
	CaptchaToken string
}

// ScanResponse is the raw outcome of one scan.
type ScanResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Scanner polls the scheduling site once.
//
// Implementations report [shared.ErrTokenExpired] when the session must be re-acquired
// and [shared.ErrCaptchaRequired] when the site demands a solved challenge.
type Scanner interface {
	Scan(ctx context.Context, req ScanRequest) (*ScanResponse, error)
}

// ProbeScanner issues a GET against a single scheduler endpoint and classifies the response.
type ProbeScanner struct {
	url     string
	timeout time.Duration
	logger  *log.Logger
}

// NewProbeScanner creates a scanner for url. A non-positive timeout means no timeout.
func NewProbeScanner(url string, timeout time.Duration, logger *log.Logger) *ProbeScanner {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProbeScanner{url: url, timeout: timeout, logger: shared.WithLogger(logger, "service", "scanner")}
}

// Scan performs the request with the session client from req.
func (p *ProbeScanner) Scan(ctx context.Context, req ScanRequest) (*ScanResponse, error) {
	if p.url == "" {
		return nil, fmt.Errorf("%w: scan url", shared.ErrMissingConfig)
	}

	client := req.Client
	if client == nil {
		client = http.DefaultClient
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.CaptchaToken != "" {
		httpReq.Header.Set(CaptchaHeader, req.CaptchaToken)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &ScanResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var data any
	if err := json.Unmarshal(body, &data); err == nil {
		out.IsJSON = true
		out.JSONData = data
	}

	p.logger.Debug("scan response", "status", resp.StatusCode, "bytes", len(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return out, shared.ErrTokenExpired
	case resp.StatusCode == http.StatusPreconditionRequired:
		return out, shared.ErrCaptchaRequired
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return out, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	return out, nil
}
