package redisstore

import "github.com/google/uuid"

// Key layout is part of the external wire protocol (spec.md §4.3/§6) and
// must not change.
const (
	queueKeyName      = "ae:jobs:queue"
	inprogressKeyName = "ae:jobs:inprogress"
	jobKeyPrefix      = "ae:job:"
)

func jobKey(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}
