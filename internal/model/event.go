package model

import "time"

// EventSource describes where a notification request originated: the title
// becomes the message subject, the reference ID ties the delivery back to
// the caller's object (alert ID, report ID), and the feature is matched
// against each channel's allowed feature set.
type EventSource struct {
	Title       string
	ReferenceID string
	Feature     Feature
	Severity    string
	Tags        []string
}

// NotificationEvent is one send request plus its aggregated per-channel
// outcomes, persisted for audit by the event store.
type NotificationEvent struct {
	Source     EventSource
	StatusList []EventStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
