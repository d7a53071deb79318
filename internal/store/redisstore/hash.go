package redisstore

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kaushik2901/async-endpoints/internal/asyncerrors"
	"github.com/kaushik2901/async-endpoints/internal/jobs"
)

// Hash field names, part of the wire protocol (spec.md §6): exactly the
// C#-original property names, so a worker and an API server written
// against either implementation can share the same Redis instance.
const (
	fieldID              = "Id"
	fieldName            = "Name"
	fieldStatus          = "Status"
	fieldHeaders         = "Headers"
	fieldRouteParams     = "RouteParams"
	fieldQueryParams     = "QueryParams"
	fieldPayload         = "Payload"
	fieldResult          = "Result"
	fieldError           = "Error"
	fieldRetryCount      = "RetryCount"
	fieldMaxRetries      = "MaxRetries"
	fieldRetryDelayUntil = "RetryDelayUntil"
	fieldWorkerID        = "WorkerId"
	fieldCreatedAt       = "CreatedAt"
	fieldLastUpdatedAt   = "LastUpdatedAt"
	fieldStartedAt       = "StartedAt"
	fieldStartedAtUnix   = "StartedAtUnix"
	fieldCompletedAt     = "CompletedAt"
)

const timeLayout = time.RFC3339Nano

// toHash flattens a Job into the hash field map the wire protocol
// specifies. Absent optional fields are simply omitted from the map —
// callers HDEL them explicitly when clearing a previously-set field.
func toHash(job *jobs.Job) (map[string]any, error) {
	h := map[string]any{
		fieldID:            job.ID.String(),
		fieldName:          job.Name,
		fieldStatus:        strconv.Itoa(int(job.Status)),
		fieldPayload:       job.Payload,
		fieldRetryCount:    strconv.Itoa(job.RetryCount),
		fieldMaxRetries:    strconv.Itoa(job.MaxRetries),
		fieldCreatedAt:     job.CreatedAt.Format(timeLayout),
		fieldLastUpdatedAt: job.LastUpdatedAt.Format(timeLayout),
	}

	if job.Result != nil {
		h[fieldResult] = job.Result
	}
	if job.Error != nil {
		raw, err := json.Marshal(job.Error)
		if err != nil {
			return nil, err
		}
		h[fieldError] = raw
	}
	if job.RetryDelayUntil != nil {
		h[fieldRetryDelayUntil] = job.RetryDelayUntil.Format(timeLayout)
	}
	if job.WorkerID != nil {
		h[fieldWorkerID] = job.WorkerID.String()
	}
	if job.StartedAt != nil {
		h[fieldStartedAt] = job.StartedAt.Format(timeLayout)
		h[fieldStartedAtUnix] = strconv.FormatInt(job.StartedAt.Unix(), 10)
	}
	if job.CompletedAt != nil {
		h[fieldCompletedAt] = job.CompletedAt.Format(timeLayout)
	}
	if len(job.Context.Headers) > 0 {
		raw, err := json.Marshal(job.Context.Headers)
		if err != nil {
			return nil, err
		}
		h[fieldHeaders] = raw
	}
	if len(job.Context.RouteParams) > 0 {
		raw, err := json.Marshal(job.Context.RouteParams)
		if err != nil {
			return nil, err
		}
		h[fieldRouteParams] = raw
	}
	if len(job.Context.QueryParams) > 0 {
		raw, err := json.Marshal(job.Context.QueryParams)
		if err != nil {
			return nil, err
		}
		h[fieldQueryParams] = raw
	}

	return h, nil
}

// fromHash reconstructs a Job from a full HGETALL result.
func fromHash(h map[string]string) (*jobs.Job, error) {
	if len(h) == 0 {
		return nil, nil
	}

	id, err := uuid.Parse(h[fieldID])
	if err != nil {
		return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt job id in store", err)
	}

	statusInt, err := strconv.Atoi(h[fieldStatus])
	if err != nil {
		return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt job status in store", err)
	}

	retryCount, _ := strconv.Atoi(h[fieldRetryCount])
	maxRetries, _ := strconv.Atoi(h[fieldMaxRetries])

	job := &jobs.Job{
		ID:         id,
		Name:       h[fieldName],
		Status:     jobs.Status(statusInt),
		Payload:    []byte(h[fieldPayload]),
		RetryCount: retryCount,
		MaxRetries: maxRetries,
	}

	if v, ok := h[fieldResult]; ok && v != "" {
		job.Result = []byte(v)
	}
	if v, ok := h[fieldError]; ok && v != "" {
		var asyncErr asyncerrors.Error
		if err := json.Unmarshal([]byte(v), &asyncErr); err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt job error in store", err)
		}
		job.Error = &asyncErr
	}
	if v, ok := h[fieldRetryDelayUntil]; ok && v != "" {
		t, err := time.Parse(timeLayout, v)
		if err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt retry_delay_until in store", err)
		}
		job.RetryDelayUntil = &t
	}
	if v, ok := h[fieldWorkerID]; ok && v != "" {
		wid, err := uuid.Parse(v)
		if err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt worker_id in store", err)
		}
		job.WorkerID = &wid
	}
	if v, ok := h[fieldCreatedAt]; ok && v != "" {
		t, err := time.Parse(timeLayout, v)
		if err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt created_at in store", err)
		}
		job.CreatedAt = t
	}
	if v, ok := h[fieldLastUpdatedAt]; ok && v != "" {
		t, err := time.Parse(timeLayout, v)
		if err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt last_updated_at in store", err)
		}
		job.LastUpdatedAt = t
	}
	if v, ok := h[fieldStartedAt]; ok && v != "" {
		t, err := time.Parse(timeLayout, v)
		if err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt started_at in store", err)
		}
		job.StartedAt = &t
	}
	if v, ok := h[fieldCompletedAt]; ok && v != "" {
		t, err := time.Parse(timeLayout, v)
		if err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt completed_at in store", err)
		}
		job.CompletedAt = &t
	}
	if v, ok := h[fieldHeaders]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &job.Context.Headers); err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt headers in store", err)
		}
	}
	if v, ok := h[fieldRouteParams]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &job.Context.RouteParams); err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt route params in store", err)
		}
	}
	if v, ok := h[fieldQueryParams]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &job.Context.QueryParams); err != nil {
			return nil, asyncerrors.Wrap(asyncerrors.CodeStoreError, "corrupt query params in store", err)
		}
	}

	return job, nil
}

// flatHash converts go-redis's HGETALL-via-script flat []interface{}
// ("field1", "value1", "field2", "value2", ...) result into a map.
func flatHash(fields []any) map[string]string {
	h := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, _ := fields[i].(string)
		v, _ := fields[i+1].(string)
		h[k] = v
	}
	return h
}
