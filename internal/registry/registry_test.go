package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/diyscope"
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

func TestRegisterAndInvokeRoundTrips(t *testing.T) {
	r := registry.New(serializer.NewJSON())
	registry.Register(r, "echo", func(ctx context.Context, scope *diyscope.Scope, ac registry.AsyncContext[echoRequest]) (echoResponse, error) {
		return echoResponse{Echoed: ac.Request.Message}, nil
	})

	reg, ok := r.Lookup("echo")
	if !ok {
		t.Fatal("expected echo to be registered")
	}

	job := &jobs.Job{Name: "echo"}
	out, invokeErr := reg.Invoke(context.Background(), diyscope.New(), []byte(`{"message":"hi"}`), job)
	if invokeErr != nil {
		t.Fatalf("invoke: %v", invokeErr)
	}
	if string(out) != `{"echoed":"hi"}` {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestInvokeWrapsHandlerError(t *testing.T) {
	r := registry.New(serializer.NewJSON())
	boom := errors.New("boom")
	registry.Register(r, "fails", func(ctx context.Context, scope *diyscope.Scope, ac registry.AsyncContext[registry.NoBody]) (registry.NoBody, error) {
		return registry.NoBody{}, boom
	})

	reg, _ := r.Lookup("fails")
	_, invokeErr := reg.Invoke(context.Background(), diyscope.New(), nil, &jobs.Job{Name: "fails"})
	if invokeErr == nil {
		t.Fatal("expected invoke error")
	}
	if invokeErr.Code != asyncerrors.CodeHandlerFailed {
		t.Fatalf("expected CodeHandlerFailed, got %s", invokeErr.Code)
	}
}

func TestInvokeWrapsDeserializationFailure(t *testing.T) {
	r := registry.New(serializer.NewJSON())
	registry.Register(r, "echo", func(ctx context.Context, scope *diyscope.Scope, ac registry.AsyncContext[echoRequest]) (echoResponse, error) {
		return echoResponse{Echoed: ac.Request.Message}, nil
	})

	reg, _ := r.Lookup("echo")
	_, invokeErr := reg.Invoke(context.Background(), diyscope.New(), []byte(`not json`), &jobs.Job{Name: "echo"})
	if invokeErr == nil || invokeErr.Code != asyncerrors.CodeDeserializationFailed {
		t.Fatalf("expected CodeDeserializationFailed, got %v", invokeErr)
	}
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	r := registry.New(serializer.NewJSON())
	_, ok := r.Lookup("missing")
	if ok {
		t.Fatal("expected lookup to fail for unregistered name")
	}
}
