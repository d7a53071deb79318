// Package examplehandlers registers a couple of demo handlers against a
// registry.Registry so cmd/apiserver and cmd/worker have something to
// submit and process out of the box, the way the teacher's
// internal/api wires SendMessage/HandleDLR against concrete services.
package examplehandlers

import (
	"context"

	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/registry"
)

// EchoRequest is the payload for the "echo" job.
type EchoRequest struct {
	Message string `json:"message"`
}

// EchoResponse is the "echo" job's result.
type EchoResponse struct {
	Echoed string `json:"echoed"`
}

// EchoName is the job name EchoHandler registers under.
const EchoName = "echo"

// EchoHandler trivially returns its input, useful for exercising the
// submit/claim/execute/complete pipeline end to end without any
// external dependency.
func EchoHandler(_ context.Context, _ *diyscope.Scope, ac registry.AsyncContext[EchoRequest]) (EchoResponse, error) {
	return EchoResponse{Echoed: ac.Request.Message}, nil
}

// RegisterEcho registers EchoHandler under EchoName.
func RegisterEcho(r *registry.Registry) {
	registry.Register(r, EchoName, EchoHandler)
}
