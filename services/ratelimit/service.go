package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// Result represents the result of a rate limit check
type Result struct {
	Allowed           bool
	RequestsRemaining int
	ResetAt           time.Time
	ViolatedWindow    time.Duration
	ViolationReason   string
}

// Service is an in-memory sliding window limiter keyed by scope
// (the provider name when used by the router)
type Service struct {
	mu     sync.Mutex
	events map[string][]time.Time

	// longest is the widest window each scope has been checked against;
	// cleanup never prunes events a scope can still count
	longest map[string]time.Duration

	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a new rate limit service
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events:  make(map[string][]time.Time),
		longest: make(map[string]time.Duration),
		now:     time.Now,
		logger: logger,
	}
}

// Allow checks every window and records the request when it fits, atomically
func (s *Service) Allow(scope string, limits []models.RateLimit) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, limit := range limits {
		if w := limit.Window(); w > s.longest[scope] {
			s.longest[scope] = w
		}
	}

	now := s.now()
	res := s.check(scope, limits, now)
	if res.Allowed && len(limits) > 0 {
		s.events[scope] = append(s.events[scope], now)
	}
	return res
}

// check evaluates each window; the caller holds mu
func (s *Service) check(scope string, limits []models.RateLimit, now time.Time) Result {
	res := Result{Allowed: true, RequestsRemaining: -1}
	events := s.events[scope]

	for _, limit := range limits {
		window := limit.Window()
		if limit.Requests <= 0 || window <= 0 {
			continue
		}

		count, oldest := countSince(events, now.Add(-window))
		if count >= limit.Requests {
			return Result{
				Allowed:         false,
				ResetAt:         oldest.Add(window),
				ViolatedWindow:  window,
				ViolationReason: fmt.Sprintf("exceeded %d requests per %s", limit.Requests, window),
			}
		}

		remaining := limit.Requests - count - 1
		if res.RequestsRemaining < 0 || remaining < res.RequestsRemaining {
			res.RequestsRemaining = remaining
			res.ResetAt = now.Add(window)
		}
	}
	return res
}

// countSince counts events after start and returns the oldest such event.
// Events are appended in time order.
func countSince(events []time.Time, start time.Time) (int, time.Time) {
	for i, ts := range events {
		if ts.After(start) {
			return len(events) - i, ts
		}
	}
	return 0, time.Time{}
}

// GetCurrentUsage returns the number of requests recorded within window
func (s *Service) GetCurrentUsage(scope string, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, _ := countSince(s.events[scope], s.now().Add(-window))
	return count
}

// CleanupOldRequests drops events older than retention, or older than the
// scope's longest window when that is wider, and returns how many were
// removed
func (s *Service) CleanupOldRequests(retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-retention)
	removed := 0
	for scope, events := range s.events {
		scopeCutoff := cutoff
		if w := s.longest[scope]; w > retention {
			scopeCutoff = now.Add(-w)
		}
		count, _ := countSince(events, scopeCutoff)
		removed += len(events) - count
		if count == 0 {
			delete(s.events, scope)
			continue
		}
		s.events[scope] = append([]time.Time(nil), events[len(events)-count:]...)
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old rate limit events",
			zap.Int("events_deleted", removed),
			zap.Time("cutoff_time", cutoff))
	}
	return removed
}

// Reset forgets every recorded request
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]time.Time)
	s.longest = make(map[string]time.Duration)
}

// StartCleanupWorker periodically prunes events until ctx is done
func (s *Service) StartCleanupWorker(ctx context.Context, interval time.Duration, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started rate limit cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention))

	for {
		select {
		case <-ticker.C:
			s.CleanupOldRequests(retention)
		case <-ctx.Done():
			s.logger.Info("stopping rate limit cleanup worker")
			return
		}
	}
}
