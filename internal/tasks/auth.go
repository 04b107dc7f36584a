package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

// GetAuthToken makes one attempt to acquire a token with the configured strategy and returns the session token.
//
// Failures are logged and leave the session unchanged. No timeout is imposed beyond ctx.
func (o *Orchestrator) GetAuthToken(ctx context.Context) string {
	switch o.strategy {
	case StrategyBrowser:
		token, err := o.browserToken(ctx)
		if err != nil {
			o.logger.Error("Error getting auth token from browser:", "err", err)
			return o.session.Token()
		}
		o.acquired(token, true)
	case StrategyManual:
		token, err := o.promptToken(ctx)
		if err != nil {
			o.logger.Error("Error getting auth token from prompts:", "err", err)
			return o.session.Token()
		}
		o.acquired(token, true)
	case StrategySolver:
		token, persisted := o.presuppliedToken()
		if token == "" {
			o.logger.Warn("No pre-supplied auth token available", "err", shared.ErrTokenNotFound)
			return o.session.Token()
		}
		if token == o.session.Token() {
			o.logger.Warn("Pre-supplied auth token unchanged, it may be stale", "token", shared.MaskToken(token))
			o.acquired(token, false)
			break
		}
		o.acquired(token, !persisted)
	default:
		o.logger.Error("Error getting auth token:", "err", fmt.Errorf("%w: %d", shared.ErrInvalidStrategy, o.strategy))
	}

	return o.session.Token()
}

func (o *Orchestrator) browserToken(ctx context.Context) (string, error) {
	if o.browser == nil {
		return "", fmt.Errorf("%w: browser login not configured", shared.ErrServiceUnavailable)
	}
	token, err := o.browser.Login(ctx)
	if err != nil {
		return "", err
	}
	return nonEmpty(token)
}

func (o *Orchestrator) promptToken(ctx context.Context) (string, error) {
	if o.prompter == nil {
		return "", fmt.Errorf("%w: token prompt not configured", shared.ErrServiceUnavailable)
	}
	resp, err := o.prompter.PromptToken(ctx)
	if err != nil {
		return "", err
	}
	return nonEmpty(resp.Token)
}

// presuppliedToken prefers the configured token over the newest stored one.
// persisted reports whether the token came from the store.
func (o *Orchestrator) presuppliedToken() (token string, persisted bool) {
	if token := strings.TrimSpace(o.authToken); token != "" {
		return token, false
	}
	if o.store == nil {
		return "", false
	}

	token, err := o.store.LatestToken()
	if err != nil {
		if !errors.Is(err, shared.ErrTokenNotFound) {
			o.logger.Warn("failed to load stored auth token", "err", err)
		}
		return "", false
	}
	return strings.TrimSpace(token), true
}

// acquired replaces the session token and optionally persists it.
func (o *Orchestrator) acquired(token string, persist bool) {
	o.session.set(token)
	o.logger.Info("Auth token acquired", "strategy", o.strategy, "token", shared.MaskToken(token))
	o.sendProgress(authenticatedUpdate(o.strategy, token))

	if !persist || o.store == nil {
		return
	}
	if err := o.store.SaveToken(o.strategy.String(), token); err != nil {
		o.logger.Warn("failed to persist auth token", "err", err)
	}
}

func nonEmpty(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", shared.ErrTokenNotFound)
	}
	return token, nil
}
