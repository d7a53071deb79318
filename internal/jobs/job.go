// Package jobs defines the Job entity — the central, persisted unit of
// work described in spec.md §3 — and its captured-HTTP-context shape.
// Grounded on the teacher's messages.Message struct
// (internal/messages/models.go): same id/status/attempts/timestamp/json-tag
// shape, generalized from SMS-specific columns to the spec's job
// attributes.
package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
)

// CapturedContext is the HTTP metadata snapshotted from the originating
// submission. Headers and query params are multi-valued and nullable per
// spec.md §3 ("mapping from string to ordered sequence of nullable
// strings"); route params are single nullable values.
type CapturedContext struct {
	Headers     map[string][]*string `json:"headers,omitempty"`
	RouteParams map[string]*string   `json:"route_params,omitempty"`
	QueryParams map[string][]*string `json:"query_params,omitempty"`
}

// Job is the persistent record of a scheduled unit of work.
type Job struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	Status Status `json:"status"`

	Payload []byte  `json:"payload"`
	Result  []byte  `json:"result,omitempty"`
	Error   *asyncerrors.Error `json:"error,omitempty"`

	RetryCount      int        `json:"retry_count"`
	MaxRetries      int        `json:"max_retries"`
	RetryDelayUntil *time.Time `json:"retry_delay_until,omitempty"`

	WorkerID *uuid.UUID `json:"worker_id,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	LastUpdatedAt time.Time  `json:"last_updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	Context CapturedContext `json:"context,omitempty"`
}

// Clone returns a deep-enough copy of the Job for the "construct a
// modified copy, never mutate in place" discipline spec.md §4.2/§9
// mandates for both store implementations.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j

	if j.Payload != nil {
		clone.Payload = append([]byte(nil), j.Payload...)
	}
	if j.Result != nil {
		clone.Result = append([]byte(nil), j.Result...)
	}
	if j.Error != nil {
		errCopy := *j.Error
		clone.Error = &errCopy
	}
	if j.RetryDelayUntil != nil {
		t := *j.RetryDelayUntil
		clone.RetryDelayUntil = &t
	}
	if j.WorkerID != nil {
		w := *j.WorkerID
		clone.WorkerID = &w
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		clone.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		clone.CompletedAt = &t
	}

	clone.Context = CapturedContext{
		Headers:     cloneMultiMap(j.Context.Headers),
		RouteParams: cloneSingleMap(j.Context.RouteParams),
		QueryParams: cloneMultiMap(j.Context.QueryParams),
	}

	return &clone
}

func cloneMultiMap(m map[string][]*string) map[string][]*string {
	if m == nil {
		return nil
	}
	out := make(map[string][]*string, len(m))
	for k, v := range m {
		out[k] = append([]*string(nil), v...)
	}
	return out
}

func cloneSingleMap(m map[string]*string) map[string]*string {
	if m == nil {
		return nil
	}
	out := make(map[string]*string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IsClaimableAt reports whether the job is eligible for ClaimNextForWorker
// at instant now: no owner, and either Queued, or Scheduled with
// retry_delay_until absent or not in the future.
func (j *Job) IsClaimableAt(now time.Time) bool {
	if j.WorkerID != nil {
		return false
	}
	switch j.Status {
	case StatusQueued:
		return true
	case StatusScheduled:
		return j.RetryDelayUntil == nil || !j.RetryDelayUntil.After(now)
	default:
		return false
	}
}
