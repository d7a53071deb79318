// Package registry implements the process-wide handler registry
// spec.md §3/§4.6 describes: a name maps to a request type, a response
// type, and a type-erased invoker. No single teacher file does typed
// dispatch (the teacher's worker only ever sends one message shape,
// SMS); this is new structural code built the way the teacher
// constructs its other small string-keyed tables (queue/nats subject
// constants), generalized with Go generics to erase the concrete
// request/response types at registration time.
package registry

import (
	"context"
	"sync"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/serializer"
)

// NoBody is the sentinel request type for handlers that take no typed
// body (spec.md §4.6 "without body").
type NoBody struct{}

// AsyncContext carries a handler's typed request plus the captured HTTP
// metadata from the originating submission (spec.md §4.6) — never from
// any live connection, since the handler runs asynchronously.
type AsyncContext[T any] struct {
	Request T
	Job     *jobs.Job
}

// HandlerFunc is a registered handler: given a DI scope and an
// AsyncContext, it returns a success value or an error. Cancellation is
// threaded via ctx, in keeping with the teacher's context.Context usage
// on blocking operations.
type HandlerFunc[TReq any, TResp any] func(ctx context.Context, scope *diyscope.Scope, ac AsyncContext[TReq]) (TResp, error)

type invocation func(ctx context.Context, scope *diyscope.Scope, payload []byte, job *jobs.Job) ([]byte, *asyncerrors.Error)

// Registration is the type-erased record stored per handler name.
type Registration struct {
	Name   string
	invoke invocation
}

// Invoke deserializes payload, calls the handler, and serializes its
// response, returning the flattened error model on any failure.
func (r *Registration) Invoke(ctx context.Context, scope *diyscope.Scope, payload []byte, job *jobs.Job) ([]byte, *asyncerrors.Error) {
	return r.invoke(ctx, scope, payload, job)
}

// Registry is built at startup and is immutable thereafter (spec.md
// §3): every registration happens before the producer/consumer loops
// start, and Lookup is read-only from then on.
type Registry struct {
	mu         sync.RWMutex
	byName     map[string]*Registration
	serializer serializer.Serializer
	classifier asyncerrors.Classifier
}

// New builds an empty registry using ser to (de)serialize request and
// response payloads.
func New(ser serializer.Serializer) *Registry {
	return &Registry{byName: make(map[string]*Registration), serializer: ser}
}

// Register records a handler under name. Go methods cannot introduce
// new type parameters beyond the receiver's, so this is a package-level
// function taking the registry explicitly — the generic
// "Register[TReq,TResp](name, handler)" shape spec.md §3 describes.
func Register[TReq any, TResp any](r *Registry, name string, handler HandlerFunc[TReq, TResp]) {
	reg := &Registration{
		Name: name,
		invoke: func(ctx context.Context, scope *diyscope.Scope, payload []byte, job *jobs.Job) ([]byte, *asyncerrors.Error) {
			var req TReq
			if len(payload) > 0 {
				if err := r.serializer.Unmarshal(payload, &req); err != nil {
					return nil, asyncerrors.Wrap(asyncerrors.CodeDeserializationFailed, "failed to deserialize request", err)
				}
			}

			resp, err := handler(ctx, scope, AsyncContext[TReq]{Request: req, Job: job})
			if err != nil {
				wrapped := asyncerrors.Wrap(asyncerrors.CodeHandlerFailed, "handler returned an error", err)
				wrapped.Classification = r.classifier.Classify(err)
				return nil, wrapped
			}

			out, err := r.serializer.Marshal(resp)
			if err != nil {
				return nil, asyncerrors.Wrap(asyncerrors.CodeSerializationFailed, "failed to serialize response", err)
			}
			return out, nil
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = reg
}

// Lookup finds a registration by job name.
func (r *Registry) Lookup(name string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	return reg, ok
}
