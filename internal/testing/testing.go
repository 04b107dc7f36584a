// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/models"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/services"
)

// MockBrowser is a test double for [services.BrowserLoginer]
type MockBrowser struct {
	Token string
	Err   error
	Calls int
}

func (m *MockBrowser) Login(ctx context.Context) (string, error) {
	m.Calls++
	return m.Token, m.Err
}

// MockPrompter is a test double for [services.TokenPrompter]
type MockPrompter struct {
	Response services.PromptResponse
	Err      error
	Calls    int
}

func (m *MockPrompter) PromptToken(ctx context.Context) (services.PromptResponse, error) {
	m.Calls++
	return m.Response, m.Err
}

// PollStep is one scripted answer of [ScriptedSolver.TaskResult]
type PollStep struct {
	Result *services.CaptchaResult
	Err    error
}

// ScriptedSolver is a test double for [services.CaptchaSolver] that replays scripted answers.
//
// CreateTask returns TaskIDs in order, then "task-{n}". CreateErrs[i], when set, fails the i-th call.
// TaskResult replays Polls[taskID] in order and repeats the last step; an unscripted task is processing.
type ScriptedSolver struct {
	TaskIDs    []string
	CreateErrs []error
	Polls      map[string][]PollStep

	// OnPoll runs before each poll is answered.
	OnPoll func(taskID string, n int)

	mu        sync.Mutex
	creates   int
	created   []string
	pollCalls []string
	polled    map[string]int
}

func (s *ScriptedSolver) CreateTask(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.creates
	s.creates++
	if n < len(s.CreateErrs) && s.CreateErrs[n] != nil {
		return "", s.CreateErrs[n]
	}

	id := fmt.Sprintf("task-%d", len(s.created)+1)
	if i := len(s.created); i < len(s.TaskIDs) {
		id = s.TaskIDs[i]
	}
	s.created = append(s.created, id)
	return id, nil
}

func (s *ScriptedSolver) TaskResult(ctx context.Context, taskID string) (*services.CaptchaResult, error) {
	s.mu.Lock()
	if s.polled == nil {
		s.polled = map[string]int{}
	}
	n := s.polled[taskID]
	s.polled[taskID] = n + 1
	s.pollCalls = append(s.pollCalls, taskID)
	steps := s.Polls[taskID]
	hook := s.OnPoll
	s.mu.Unlock()

	if hook != nil {
		hook(taskID, n+1)
	}

	if len(steps) == 0 {
		return services.Processing(), nil
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	return steps[n].Result, steps[n].Err
}

// Created returns the task ids handed out, in order.
func (s *ScriptedSolver) Created() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.created...)
}

// CreateCalls returns how many times CreateTask was called, failed calls included.
func (s *ScriptedSolver) CreateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

// PollCalls returns the task id of every poll, in order.
func (s *ScriptedSolver) PollCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pollCalls...)
}

// PollCount returns how many times taskID was polled.
func (s *ScriptedSolver) PollCount(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polled[taskID]
}

// RecordingSleeper records requested durations and returns immediately.
type RecordingSleeper struct {
	Err error // returned by every call when set

	// OnSleep runs before each call returns.
	OnSleep func(d time.Duration)

	mu        sync.Mutex
	durations []time.Duration
}

func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.durations = append(r.durations, d)
	hook := r.OnSleep
	r.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	if r.Err != nil {
		return r.Err
	}
	return ctx.Err()
}

// Durations returns the requested durations, in order.
func (r *RecordingSleeper) Durations() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.durations...)
}

// SavedToken is one [MockStore.SaveToken] call
type SavedToken struct {
	Strategy string
	Value    string
}

// MockStore is an in-memory test double for tasks.Store
type MockStore struct {
	Latest    string
	LatestErr error
	SaveErr   error
	RecordErr error

	mu     sync.Mutex
	saved  []SavedToken
	solves []models.CaptchaSolve
}

func (m *MockStore) SaveToken(strategy, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, SavedToken{Strategy: strategy, Value: value})
	return m.SaveErr
}

func (m *MockStore) LatestToken() (string, error) {
	return m.Latest, m.LatestErr
}

func (m *MockStore) RecordSolve(solve models.CaptchaSolve) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solves = append(m.solves, solve)
	return m.RecordErr
}

// Saved returns the saved tokens, in order.
func (m *MockStore) Saved() []SavedToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SavedToken(nil), m.saved...)
}

// Solves returns the recorded solves, in order.
func (m *MockStore) Solves() []models.CaptchaSolve {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CaptchaSolve(nil), m.solves...)
}

// ScanStep is one scripted answer of [MockScanner.Scan]
type ScanStep struct {
	Status int
	Err    error
}

// MockScanner is a test double for [services.Scanner] that replays scripted answers and repeats the last one.
type MockScanner struct {
	Steps []ScanStep

	mu       sync.Mutex
	requests []services.ScanRequest
}

func (m *MockScanner) Scan(ctx context.Context, req services.ScanRequest) (*services.ScanResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.requests)
	m.requests = append(m.requests, req)
	if len(m.Steps) == 0 {
		return &services.ScanResponse{StatusCode: http.StatusOK}, nil
	}
	if n >= len(m.Steps) {
		n = len(m.Steps) - 1
	}
	step := m.Steps[n]
	return &services.ScanResponse{StatusCode: step.Status}, step.Err
}

// Requests returns the scan requests received, in order.
func (m *MockScanner) Requests() []services.ScanRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.ScanRequest(nil), m.requests...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error

	mu       sync.Mutex
	requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.response, m.err
}

// Requests returns the requests seen, in order.
func (m *MockRoundTripper) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
