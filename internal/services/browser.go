// go-rod implementation of [BrowserLoginer]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const defaultLoginURL = "https://public.txdpsscheduler.com"

// loginFieldTimeout bounds the lookup of each login input.
const loginFieldTimeout = 10 * time.Second

// Login form inputs and the personal info typed into each.
var loginFields = []struct {
	selector string
	value    func(shared.PersonalInfoConfig) string
}{
	{`input[aria-label="First Name"]`, func(p shared.PersonalInfoConfig) string { return p.FirstName }},
	{`input[aria-label="Last Name"]`, func(p shared.PersonalInfoConfig) string { return p.LastName }},
	{`input[aria-label="Date of Birth (mm/dd/yyyy)"]`, func(p shared.PersonalInfoConfig) string { return p.DOB }},
	{`input[aria-label="Last four of SSN"]`, func(p shared.PersonalInfoConfig) string { return p.LastFourSSN }},
}

// formInput is the part of [rod.Element] used to type into a login field.
type formInput interface {
	Input(text string) error
}

// RodBrowser drives a Chromium instance through the scheduler login and captures the auth response.
type RodBrowser struct {
	cfg    shared.BrowserConfig
	info   shared.PersonalInfoConfig
	logger *log.Logger
}

// NewRodBrowser creates a browser login collaborator.
func NewRodBrowser(cfg shared.BrowserConfig, info shared.PersonalInfoConfig, logger *log.Logger) *RodBrowser {
	if cfg.LoginURL == "" {
		cfg.LoginURL = defaultLoginURL
	}
	if cfg.AuthURLPattern == "" {
		cfg.AuthURLPattern = shared.DefaultConfig().Browser.AuthURLPattern
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &RodBrowser{cfg: cfg, info: info, logger: shared.WithLogger(logger, "service", "browser")}
}

// Login launches the browser, fills the identity form and waits for the auth endpoint response.
//
// The operator may need to finish an in-page challenge; only ctx bounds the wait.
func (b *RodBrowser) Login(ctx context.Context) (string, error) {
	l := launcher.New().Context(ctx).Headless(b.cfg.Headless)
	if b.cfg.Bin != "" {
		l = l.Bin(b.cfg.Bin)
	}
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}

	tokens := make(chan string, 1)
	router := page.HijackRequests()
	err = router.Add(b.cfg.AuthURLPattern, "", func(h *rod.Hijack) {
		if err := h.LoadResponse(http.DefaultClient, true); err != nil {
			b.logger.Warn("failed to load auth response", "err", err)
			return
		}
		token := parseAuthBody(h.Response.Body())
		if token == "" {
			return
		}
		select {
		case tokens <- token:
		default:
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to hijack auth requests: %w", err)
	}
	go router.Run()
	defer router.Stop()

	b.logger.Info("opening login page", "url", b.cfg.LoginURL)
	if err := page.Navigate(b.cfg.LoginURL); err != nil {
		return "", fmt.Errorf("failed to navigate to login page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.Warn("login page did not finish loading", "err", err)
	}

	return b.awaitToken(ctx, tokens, func() {
		b.fillForm(func(selector string) (formInput, error) {
			el, err := page.Timeout(loginFieldTimeout).Element(selector)
			if err != nil {
				return nil, err
			}
			return el.CancelTimeout(), nil
		})
	})
}

// awaitToken runs fill in the background and returns the first captured token.
func (b *RodBrowser) awaitToken(ctx context.Context, tokens <-chan string, fill func()) (string, error) {
	go fill()

	select {
	case token := <-tokens:
		b.logger.Info("auth response captured")
		return token, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// fillForm types the configured identity; missing fields are left to the operator.
func (b *RodBrowser) fillForm(find func(selector string) (formInput, error)) {
	for _, f := range loginFields {
		value := f.value(b.info)
		if value == "" {
			continue
		}
		el, err := find(f.selector)
		if err != nil {
			b.logger.Warn("login field not found", "selector", f.selector, "err", err)
			continue
		}
		if err := el.Input(value); err != nil {
			b.logger.Warn("failed to fill login field", "selector", f.selector, "err", err)
		}
	}
}

// parseAuthBody extracts the token from the auth endpoint body, which is a bare or JSON-quoted string.
func parseAuthBody(body string) string {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, `"`) {
		var s string
		if err := json.Unmarshal([]byte(body), &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	if strings.HasPrefix(body, "{") {
		var obj struct {
			Token       string `json:"token"`
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal([]byte(body), &obj); err == nil {
			if obj.Token != "" {
				return obj.Token
			}
			return obj.AccessToken
		}
		return ""
	}
	return body
}
