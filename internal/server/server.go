// Package server contains the invocation dispatcher and middleware for the
// realtime collaboration surface.
//
// Transport framing is owned by the embedding process; connections hand
// decoded invocations to [Dispatcher.Dispatch] and deliver the returned
// reply themselves. Broadcast delivery to other subscribers goes through the
// realtime hub, not through replies.
package server

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/calebmds/taskchain/internal/realtime"
	"github.com/calebmds/taskchain/internal/shared"
)

// Request is one named invocation from a live connection. Params is the
// operation's JSON payload; every operation carries a project_id field.
type Request struct {
	Conn   realtime.Conn
	Op     string
	Params json.RawMessage
}

// Reply is the direct response to one invocation. Code is machine-readable
// so clients can decide whether a retry makes sense (conflict, unavailable)
// or not (validation, access_denied).
type Reply struct {
	OK     bool        `json:"ok"`
	Code   shared.Kind `json:"code,omitempty"`
	Error  string      `json:"error,omitempty"`
	Result any         `json:"result,omitempty"`
}

// HandlerFunc executes one operation and returns its result payload.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

// Middleware wraps a HandlerFunc with additional behavior. Common middleware
// includes access filtering and rate limiting.
type Middleware func(HandlerFunc) HandlerFunc

// Dispatcher routes named invocations to their handlers.
type Dispatcher struct {
	handlers    map[string]HandlerFunc
	middlewares []Middleware
	logger      *log.Logger
}

// NewDispatcher creates a new [Dispatcher] instance.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		handlers:    make(map[string]HandlerFunc),
		middlewares: []Middleware{},
		logger:      logger,
	}
}

// Use adds [Middleware] to the dispatcher's stack, applied in the order it's
// added. Must be called before Handle; later registrations pick up the stack
// as it stands.
func (d *Dispatcher) Use(middleware ...Middleware) {
	d.middlewares = append(d.middlewares, middleware...)
}

// Handle registers a handler for the named operation, wrapped with all
// registered middleware.
func (d *Dispatcher) Handle(op string, handler HandlerFunc) {
	d.handlers[op] = d.Apply(handler)
}

// Dispatch executes one invocation and converts its outcome into a [Reply].
// Errors never escape; they are classified and folded into the reply.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Reply {
	handler, ok := d.handlers[req.Op]
	if !ok {
		return Reply{OK: false, Code: shared.KindValidation, Error: "unknown operation: " + req.Op}
	}

	result, err := handler(ctx, req)
	if err != nil {
		kind := shared.Classify(err)
		d.logger.Debug("invocation failed",
			"op", req.Op, "conn", req.Conn.ID(), "code", kind, "err", err)
		return Reply{OK: false, Code: kind, Error: err.Error()}
	}

	return Reply{OK: true, Result: result}
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (d *Dispatcher) Apply(handler HandlerFunc) HandlerFunc {
	wrapped := handler

	for i := len(d.middlewares) - 1; i >= 0; i-- {
		wrapped = d.middlewares[i](wrapped)
	}

	return wrapped
}
