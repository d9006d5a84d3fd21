package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/shared"
)

// parseProjectID extracts and validates the common project_id field every
// operation carries. Identifiers travel as decimal strings on the wire.
func parseProjectID(params json.RawMessage) (int64, error) {
	var envelope struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(params, &envelope); err != nil {
		return 0, fmt.Errorf("%w: invalid identifier", shared.ErrValidation)
	}

	id, err := strconv.ParseInt(envelope.ProjectID, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid identifier", shared.ErrValidation)
	}
	return id, nil
}

// AccessFilter rejects invocations whose connection user has no access to
// the target project. The check runs per invocation, before the handler, so
// a revoked collaborator is cut off on their next operation rather than at
// reconnect.
func AccessFilter(checker models.AccessChecker) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (any, error) {
			projectID, err := parseProjectID(req.Params)
			if err != nil {
				return nil, err
			}

			ok, err := checker.HasAccess(ctx, projectID, req.Conn.UserID())
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: project %d", shared.ErrAccessDenied, projectID)
			}

			return next(ctx, req)
		}
	}
}

// RateLimit throttles invocations per connection using a token bucket.
// Exhausted buckets reject with ErrUnavailable, which clients treat as
// retryable backpressure.
func RateLimit(limit rate.Limit, burst int) Middleware {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(connID string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		limiter, ok := limiters[connID]
		if !ok {
			limiter = rate.NewLimiter(limit, burst)
			limiters[connID] = limiter
		}
		return limiter
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (any, error) {
			if !limiterFor(req.Conn.ID()).Allow() {
				return nil, fmt.Errorf("%w: rate limit exceeded", shared.ErrUnavailable)
			}
			return next(ctx, req)
		}
	}
}
