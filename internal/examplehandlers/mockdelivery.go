package examplehandlers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/diyscope"
	"github.com/kaushik2901/async-endpoints/internal/registry"
)

// MockDeliveryName is the job name MockDeliveryHandler registers under.
const MockDeliveryName = "mockdelivery"

// MockDeliveryRequest simulates a webhook delivery payload.
type MockDeliveryRequest struct {
	TargetURL string `json:"target_url"`
	Body      string `json:"body"`
}

// MockDeliveryResponse is returned on a simulated-successful delivery.
type MockDeliveryResponse struct {
	DeliveryID string `json:"delivery_id"`
}

// deliveryError carries its own classification so the registry's
// classifier doesn't need to guess from the error text, mirroring how
// the teacher's mock provider distinguishes FAILED_TEMP from
// FAILED_PERM by construction rather than by inspecting a message.
type deliveryError struct {
	message string
	class   asyncerrors.Classification
}

func (e deliveryError) Error() string                             { return e.message }
func (e deliveryError) Classification() asyncerrors.Classification { return e.class }

// MockDeliveryHandler simulates delivering a payload to an external
// webhook, adapted from the teacher's provider/mock.Provider.SendSMS:
// the outcome is derived deterministically from the job id so retries
// of the same job are reproducible in tests, instead of the teacher's
// rand.Rand-seeded randomness.
func MockDeliveryHandler(_ context.Context, _ *diyscope.Scope, ac registry.AsyncContext[MockDeliveryRequest]) (MockDeliveryResponse, error) {
	hash := md5.Sum(ac.Job.ID[:])
	outcome := float64(hash[0]) / 255.0

	const (
		successRate  = 0.85
		tempFailRate = 0.10
	)

	switch {
	case outcome < successRate:
		return MockDeliveryResponse{DeliveryID: "mock_" + hex.EncodeToString(hash[:])[:12]}, nil
	case outcome < successRate+tempFailRate:
		return MockDeliveryResponse{}, deliveryError{
			message: fmt.Sprintf("delivery to %s timed out", ac.Request.TargetURL),
			class:   asyncerrors.Transient,
		}
	default:
		return MockDeliveryResponse{}, deliveryError{
			message: fmt.Sprintf("delivery to %s rejected the payload", ac.Request.TargetURL),
			class:   asyncerrors.Permanent,
		}
	}
}

// RegisterMockDelivery registers MockDeliveryHandler under MockDeliveryName.
func RegisterMockDelivery(r *registry.Registry) {
	registry.Register(r, MockDeliveryName, MockDeliveryHandler)
}
