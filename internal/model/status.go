package model

import "net/http"

// DestinationMessageResponse is the normalized result of one delivery
// attempt produced by a destination transport. Transports never return
// errors; every failure mode is folded into a status code and text here.
type DestinationMessageResponse struct {
	StatusCode int
	StatusText string
}

// DeliveryStatus is the caller-facing status of one channel or recipient.
type DeliveryStatus struct {
	StatusCode int
	StatusText string
}

// EmailRecipientStatus records the delivery outcome for one resolved email
// recipient of a compound email channel.
type EmailRecipientStatus struct {
	Recipient string
	Status    DeliveryStatus
}

// EventStatus aggregates the delivery outcome for one target channel
// config. For email channels Recipients carries the per-recipient
// breakdown; Status then holds either the shared recipient status or a 207
// multi-status marker when the recipients disagree.
type EventStatus struct {
	ConfigID   string
	ConfigName string
	ConfigType ConfigType
	Recipients []EmailRecipientStatus
	Status     DeliveryStatus
}

// AggregateRecipientStatuses folds per-recipient statuses into the channel
// status: a status shared by every recipient is kept as-is; any divergence
// becomes 207 Multi-Status with the text "Errors".
func AggregateRecipientStatuses(recipients []EmailRecipientStatus) DeliveryStatus {
	if len(recipients) == 0 {
		return DeliveryStatus{StatusCode: http.StatusNotFound, StatusText: "No recipients resolved"}
	}
	overall := recipients[0].Status
	for _, r := range recipients[1:] {
		if r.Status.StatusCode != overall.StatusCode {
			return DeliveryStatus{StatusCode: http.StatusMultiStatus, StatusText: "Errors"}
		}
	}
	return overall
}

// OverallStatusCode folds per-channel statuses into one request-level code:
// a code shared by every channel is kept, any divergence becomes 207.
func OverallStatusCode(statuses []EventStatus) int {
	if len(statuses) == 0 {
		return http.StatusOK
	}
	overall := statuses[0].Status.StatusCode
	for _, s := range statuses[1:] {
		if s.Status.StatusCode != overall {
			return http.StatusMultiStatus
		}
	}
	return overall
}
