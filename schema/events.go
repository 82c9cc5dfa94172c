package schema

import (
	"encoding/json"
	"time"
)

// BindingEventType identifies a binding lifecycle event.
type BindingEventType string

const (
	// BindingResolved indicates a session resolved its blueprint.
	BindingResolved BindingEventType = "resolved"
	// BindingOpened indicates a session switched to another document.
	BindingOpened BindingEventType = "opened"
	// BindingSaved indicates the active document was saved.
	BindingSaved BindingEventType = "saved"
	// BindingDuplicated indicates the active document was copied.
	BindingDuplicated BindingEventType = "duplicated"
	// BindingDeleted indicates the active document was deleted.
	BindingDeleted BindingEventType = "deleted"
	// BindingReset indicates local edits were discarded.
	BindingReset BindingEventType = "reset"
)

// BindingEvent is emitted by the binding service after each completed
// write operation.
type BindingEvent struct {
	Session         SessionRef
	Type            BindingEventType
	Document        DocumentSummary
	Reason          ResolveReason
	ReboundSessions int
}

// TelemetryFrame is one message on a topic stream. Data is opaque to
// the front end; leaf views own its interpretation.
type TelemetryFrame struct {
	Topic     Topic           `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"ts"`
}

// SubscribeOp values for telemetry control frames.
const (
	// SubscribeOpSubscribe subscribes the connection to a topic.
	SubscribeOpSubscribe = "subscribe"
	// SubscribeOpUnsubscribe removes a topic subscription.
	SubscribeOpUnsubscribe = "unsubscribe"
)

// SubscribeFrame is the client-to-server telemetry control frame.
type SubscribeFrame struct {
	Op    string `json:"op"`
	Topic Topic  `json:"topic"`
}
