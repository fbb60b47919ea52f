// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/casefiles/internal/model"
)

// AccessAttemptsQueue is the durable queue carrying gate attempts.
const AccessAttemptsQueue = "access.attempts"

// AccessAttemptEvent is published after an access attempt has been
// persisted.  It carries enough of the fingerprint for downstream
// consumers to log or alert without querying the primary database.
type AccessAttemptEvent struct {
	AttemptID  string  `json:"attempt_id"`
	Success    bool    `json:"success"`
	DeviceType string  `json:"device_type"`
	Browser    string  `json:"browser"`
	OS         string  `json:"os"`
	PhoneModel *string `json:"phone_model,omitempty"`
	UserAgent  string  `json:"user_agent"`
	CreatedAt  string  `json:"created_at"`
}

// NewAccessAttemptEvent builds the event for a stored attempt.  The
// attempted value itself never leaves the database.
func NewAccessAttemptEvent(a model.AccessAttempt) AccessAttemptEvent {
	return AccessAttemptEvent{
		AttemptID:  a.ID,
		Success:    a.Success,
		DeviceType: a.DeviceInfo.DeviceType,
		Browser:    a.DeviceInfo.Browser,
		OS:         a.DeviceInfo.OS,
		PhoneModel: a.DeviceInfo.PhoneModel,
		UserAgent:  a.UserAgent,
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
}
