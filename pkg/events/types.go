// Package events implements the per-job SSE broadcaster (spec.md §4.D "SSE
// bus"). Adapted from the teacher's pkg/events, which multiplexed
// WebSocket connections over Postgres LISTEN/NOTIFY channels with a
// catchup-query fallback; Mondrian's bus is purely in-process — the
// spec's own design note ("coroutine-like concurrency -> explicit tasks +
// channels") makes the channel-based version the right fit, and there is
// no cross-process fan-out requirement to justify LISTEN/NOTIFY here.
package events

import (
	"encoding/json"
	"time"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// EventType is one of the five SSE event types spec.md §6 names.
type EventType string

const (
	EventTypeConnected         EventType = "connected"
	EventTypeHeartbeat         EventType = "heartbeat"
	EventTypeStatusUpdate      EventType = "status_update"
	EventTypeAnalysisComplete  EventType = "analysis_complete"
	EventTypeDone              EventType = "done"
)

// Message is one SSE frame: the event type plus its already-marshaled
// JSON payload, ready for an `event: <type>\ndata: <json>\n\n` write.
type Message struct {
	Type EventType
	Data []byte
}

func newMessage(typ EventType, payload any) Message {
	data, err := json.Marshal(payload)
	if err != nil {
		// Every payload type below is a plain struct of marshalable
		// fields; a marshal failure here would be a programming error,
		// not a runtime condition callers can act on.
		data = []byte(`{}`)
	}
	return Message{Type: typ, Data: data}
}

func nowRFC3339() string {
	return time.Now().Format(time.RFC3339Nano)
}

// connectedPayload is sent once, immediately on subscribe.
type connectedPayload struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Timestamp string    `json:"timestamp"`
}

// heartbeatPayload is sent periodically on every open subscription
// (spec.md §4.D "heartbeat (periodic, every ~15s, carries a server
// timestamp)").
type heartbeatPayload struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Timestamp string    `json:"timestamp"`
}

// statusUpdatePayload carries a full snapshot of the job (spec.md §4.D
// "carries a snapshot of current job_data including llm_thinking").
type statusUpdatePayload struct {
	Type      EventType   `json:"type"`
	JobID     string      `json:"job_id"`
	Timestamp string      `json:"timestamp"`
	Job       *models.Job `json:"job"`
}

// analysisCompletePayload carries the final rendered output.
type analysisCompletePayload struct {
	Type           EventType `json:"type"`
	JobID          string    `json:"job_id"`
	Timestamp      string    `json:"timestamp"`
	RenderedOutput string    `json:"rendered_output"`
}

// donePayload is the terminal event; no subscriber should expect further
// messages on this job's subscription after receiving it.
type donePayload struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Timestamp string    `json:"timestamp"`
}
