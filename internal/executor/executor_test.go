package executor_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/executor"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
	"github.com/kaushik2901/async-endpoints/internal/registry"
	"github.com/kaushik2901/async-endpoints/internal/serializer"
)

type echoRequest struct {
	Message string `json:"message"`
}

type echoResponse struct {
	Echoed string `json:"echoed"`
}

func TestExecuteHandlerSuccess(t *testing.T) {
	reg := registry.New(serializer.NewJSON())
	registry.Register(reg, "echo", func(ctx context.Context, scope *diyscope.Scope, ac registry.AsyncContext[echoRequest]) (echoResponse, error) {
		return echoResponse{Echoed: ac.Request.Message}, nil
	})

	e := executor.New(reg, zap.NewNop(), nil)
	result := e.ExecuteHandler(context.Background(), "echo", []byte(`{"message":"hi"}`), &jobs.Job{Name: "echo"})
	if !result.IsOk() {
		t.Fatalf("expected success, got %v", result.Error())
	}
	if string(result.Value()) != `{"echoed":"hi"}` {
		t.Fatalf("unexpected value: %s", result.Value())
	}
}

func TestExecuteHandlerMissingHandler(t *testing.T) {
	reg := registry.New(serializer.NewJSON())
	e := executor.New(reg, zap.NewNop(), nil)

	result := e.ExecuteHandler(context.Background(), "missing", nil, &jobs.Job{Name: "missing"})
	if result.IsOk() {
		t.Fatal("expected failure for missing handler")
	}
	if result.Error().Code != asyncerrors.CodeHandlerNotFound {
		t.Fatalf("expected CodeHandlerNotFound, got %s", result.Error().Code)
	}
}

func TestExecuteHandlerRecoversPanic(t *testing.T) {
	reg := registry.New(serializer.NewJSON())
	registry.Register(reg, "panics", func(ctx context.Context, scope *diyscope.Scope, ac registry.AsyncContext[registry.NoBody]) (registry.NoBody, error) {
		panic("boom")
	})

	e := executor.New(reg, zap.NewNop(), nil)
	result := e.ExecuteHandler(context.Background(), "panics", nil, &jobs.Job{Name: "panics"})
	if result.IsOk() {
		t.Fatal("expected failure from recovered panic")
	}
	if result.Error().Code != asyncerrors.CodeHandlerFailed {
		t.Fatalf("expected CodeHandlerFailed, got %s", result.Error().Code)
	}
}

func TestExecuteHandlerClosesScopeOnSuccess(t *testing.T) {
	reg := registry.New(serializer.NewJSON())
	closed := false
	registry.Register(reg, "echo", func(ctx context.Context, scope *diyscope.Scope, ac registry.AsyncContext[registry.NoBody]) (registry.NoBody, error) {
		scope.OnClose(func() error { closed = true; return nil })
		return registry.NoBody{}, nil
	})

	e := executor.New(reg, zap.NewNop(), nil)
	e.ExecuteHandler(context.Background(), "echo", nil, &jobs.Job{Name: "echo"})
	if !closed {
		t.Fatal("expected scope to be closed")
	}
}
