// Package executor implements ExecuteHandler (spec.md §4.6): open a
// fresh DI scope, look up the registered invoker, invoke it, and close
// the scope on every exit path including panic. Grounded on the
// teacher's worker.processMessage/EnhancedWorker.processMessageByID
// structure (get -> transition -> attempt -> finalize), generalized one
// layer up so it invokes a registered handler instead of a hardcoded
// SMS send.
package executor

import (
	"context"

	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/asyncresult"
	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/registry"
)

// Executor resolves and invokes registered handlers.
type Executor struct {
	registry *registry.Registry
	logger   *zap.Logger
	newScope func() *diyscope.Scope
}

// New builds an Executor over reg. newScope may be nil, in which case
// diyscope.New is used.
func New(reg *registry.Registry, logger *zap.Logger, newScope func() *diyscope.Scope) *Executor {
	if newScope == nil {
		newScope = diyscope.New
	}
	return &Executor{registry: reg, logger: logger, newScope: newScope}
}

// ExecuteHandler looks up the handler registered for name and invokes
// it with payload and job, returning its outcome as a Result. A missing
// handler fails with a HANDLER_NOT_FOUND error, which the manager retries
// like any other failure until the job's retry budget is spent; a panic
// inside the handler is recovered and reported the same way a returned
// error would be.
func (e *Executor) ExecuteHandler(ctx context.Context, name string, payload []byte, job *jobs.Job) (result asyncresult.Result[[]byte]) {
	reg, ok := e.registry.Lookup(name)
	if !ok {
		return asyncresult.Err[[]byte](asyncerrors.Newf(asyncerrors.CodeHandlerNotFound, "no handler registered for %q", name))
	}

	scope := e.newScope()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked",
				zap.Any("panic", r),
				zap.String("job_id", job.ID.String()),
				zap.String("handler", name),
			)
			result = asyncresult.Err[[]byte](asyncerrors.Newf(asyncerrors.CodeHandlerFailed, "handler panicked: %v", r))
		}
		if err := scope.Close(); err != nil {
			e.logger.Warn("scope close failed", zap.Error(err), zap.String("handler", name))
		}
	}()

	out, invokeErr := reg.Invoke(ctx, scope, payload, job)
	if invokeErr != nil {
		return asyncresult.Err[[]byte](invokeErr)
	}
	return asyncresult.Ok(out)
}
