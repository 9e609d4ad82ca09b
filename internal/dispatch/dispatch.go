// Package dispatch routes typed request values to the single handler
// registered for their type. It owns the request boundary: input
// validation runs before the handler, and each call runs inside its own
// unit of work that commits only when the handler reports success.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// ErrNoHandler is reported by Build for an expected request type
	// without a handler.
	ErrNoHandler = errors.New("no handler registered")
	// ErrDuplicateHandler is reported by Build for a request type with
	// more than one handler.
	ErrDuplicateHandler = errors.New("more than one handler registered")
	// ErrUnregistered is returned by Send for an unknown request type.
	ErrUnregistered = errors.New("request type is not registered")
	// ErrResponseType is returned by Send when the caller asks for a
	// response type the handler does not produce.
	ErrResponseType = errors.New("response type mismatch")
)

// HandlerFunc handles one request type.
type HandlerFunc[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// Scope is a unit of work opened around a handler call.
type Scope interface {
	Commit(ctx context.Context) error
	Rollback() error
}

// ScopeFunc opens a scope and returns the context handlers must use.
type ScopeFunc func(ctx context.Context) (context.Context, Scope, error)

// Outcome is implemented by responses that can report a business failure.
// A failed outcome rolls the unit of work back even though the handler
// returned no error.
type Outcome interface {
	IsSuccessful() bool
}

// Validatable requests are checked before their handler runs.
type Validatable interface {
	Validate() error
}

type entry struct {
	name string
	fn   any
}

// Registry collects handlers at startup.
type Registry struct {
	handlers map[reflect.Type][]entry
	expected []reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[reflect.Type][]entry)}
}

// Register adds fn as the handler for Req.
func Register[Req, Res any](r *Registry, fn HandlerFunc[Req, Res]) {
	t := typeOf[Req]()
	r.handlers[t] = append(r.handlers[t], entry{name: t.String(), fn: fn})
}

// Expect declares that Req must have exactly one handler when Build runs.
func Expect[Req any](r *Registry) {
	r.expected = append(r.expected, typeOf[Req]())
}

// Build freezes the registry. Every expected type without a handler and
// every type with more than one is reported in the returned error.
func (r *Registry) Build(opts ...Option) (*Dispatcher, error) {
	var errs []error
	for _, t := range r.expected {
		if len(r.handlers[t]) == 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoHandler, t))
		}
	}
	d := &Dispatcher{handlers: make(map[reflect.Type]entry, len(r.handlers))}
	for t, es := range r.handlers {
		if len(es) > 1 {
			errs = append(errs, fmt.Errorf("%w: %s (%d)", ErrDuplicateHandler, t, len(es)))
			continue
		}
		d.handlers[t] = es[0]
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatcher is immutable after Build and safe for concurrent use.
type Dispatcher struct {
	handlers map[reflect.Type]entry
	scope    ScopeFunc
	logger   *log.Logger
}

type Option func(*Dispatcher)

// WithScope makes every Send run inside a scope opened by fn.
func WithScope(fn ScopeFunc) Option {
	return func(d *Dispatcher) { d.scope = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// Send validates req, runs its handler in a fresh scope and commits when
// the handler returned no error, the context is still live and the
// response does not report a failure. Everything else rolls back.
func Send[Req, Res any](ctx context.Context, d *Dispatcher, req Req) (Res, error) {
	var zero Res
	t := typeOf[Req]()
	e, ok := d.handlers[t]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnregistered, t)
	}
	fn, ok := e.fn.(HandlerFunc[Req, Res])
	if !ok {
		return zero, fmt.Errorf("%w: %s does not return %s", ErrResponseType, t, typeOf[Res]())
	}
	if err := validate(req); err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	start := time.Now()
	if d.scope == nil {
		res, err := fn(ctx, req)
		d.trace(e.name, start, "none", err)
		return res, err
	}

	sctx, scope, err := d.scope(ctx)
	if err != nil {
		return zero, fmt.Errorf("open scope for %s: %w", e.name, err)
	}
	settled := false
	defer func() {
		// A panicking handler must not leave the transaction open.
		if !settled {
			if rbErr := scope.Rollback(); rbErr != nil && d.logger != nil {
				d.logger.Warn("rollback failed", "request", e.name, "err", rbErr)
			}
			d.trace(e.name, start, "rollback", errors.New("handler panicked"))
		}
	}()
	res, err := fn(sctx, req)
	settled = true
	if err == nil {
		err = sctx.Err()
	}
	if err != nil || !succeeded(res) {
		if rbErr := scope.Rollback(); rbErr != nil && d.logger != nil {
			d.logger.Warn("rollback failed", "request", e.name, "err", rbErr)
		}
		d.trace(e.name, start, "rollback", err)
		return res, err
	}
	if err := scope.Commit(sctx); err != nil {
		d.trace(e.name, start, "commit failed", err)
		return zero, fmt.Errorf("commit %s: %w", e.name, err)
	}
	d.trace(e.name, start, "commit", nil)
	return res, nil
}

func succeeded(res any) bool {
	if o, ok := res.(Outcome); ok {
		return o.IsSuccessful()
	}
	return true
}

func validate(req any) error {
	v, ok := req.(Validatable)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return newValidationError(err)
	}
	return nil
}

func (d *Dispatcher) trace(name string, start time.Time, outcome string, err error) {
	if d.logger == nil {
		return
	}
	if err != nil && !isValidation(err) {
		d.logger.Error("dispatch", "request", name, "outcome", outcome, "duration", time.Since(start), "err", err)
		return
	}
	d.logger.Debug("dispatch", "request", name, "outcome", outcome, "duration", time.Since(start))
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
