package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// subscriberBufferSize bounds how many messages a slow subscriber can lag
// behind before the bus starts dropping its oldest unread message (spec.md
// §4.D "lossy buffered delivery ... drop oldest on overflow").
const subscriberBufferSize = 16

// heartbeatInterval matches spec.md §4.D ("heartbeat, periodic, every ~15s").
const heartbeatInterval = 15 * time.Second

// topic holds the broadcast state for a single job: its subscriber set and
// the latest known job snapshot, so a subscriber that joins mid-run can be
// caught up immediately instead of waiting for the next mutation.
type topic struct {
	mu          sync.Mutex
	subscribers map[int]chan Message
	nextID      int
	lastJob     *models.Job
	closed      bool
}

// Bus fans out job lifecycle events to SSE subscribers. It replaces the
// teacher's Postgres LISTEN/NOTIFY + WebSocket ConnectionManager with a
// purely in-process, per-job channel broadcaster — Mondrian runs as a
// single process, so there is no cross-pod fan-out to justify LISTEN/NOTIFY,
// and the spec's own "explicit tasks + channels" framing maps directly onto
// Go channels per job.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{topics: make(map[string]*topic)}
}

func (b *Bus) topicFor(jobID string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[jobID]
	if !ok {
		t = &topic{subscribers: make(map[int]chan Message)}
		b.topics[jobID] = t
	}
	return t
}

// Subscribe registers a new subscriber for jobID and returns a receive-only
// channel of messages plus an unsubscribe function the caller must defer.
// A connected event is sent immediately, followed by a synthesized
// status_update carrying the latest known snapshot if one exists (spec.md
// §4.D "a subscriber that connects mid-run receives a synthesized
// status_update reflecting current state before any further events").
func (b *Bus) Subscribe(ctx context.Context, jobID string) (<-chan Message, func()) {
	t := b.topicFor(jobID)

	t.mu.Lock()
	ch := make(chan Message, subscriberBufferSize)
	id := t.nextID
	t.nextID++
	t.subscribers[id] = ch
	snapshot := t.lastJob
	t.mu.Unlock()

	send(ch, newMessage(EventTypeConnected, connectedPayload{
		Type: EventTypeConnected, JobID: jobID, Timestamp: nowRFC3339(),
	}))
	if snapshot != nil {
		send(ch, newMessage(EventTypeStatusUpdate, statusUpdatePayload{
			Type: EventTypeStatusUpdate, JobID: jobID, Timestamp: nowRFC3339(), Job: snapshot,
		}))
	}

	unsubscribe := func() {
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}

	go b.runHeartbeat(ctx, jobID, id, ch)

	return ch, unsubscribe
}

// runHeartbeat periodically enqueues a heartbeat message for one
// subscriber until ctx is cancelled or the subscriber unsubscribes (the
// topic no longer holding its channel ends the loop on the next tick).
func (b *Bus) runHeartbeat(ctx context.Context, jobID string, subscriberID int, ch chan Message) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t := b.topicFor(jobID)
			t.mu.Lock()
			_, stillSubscribed := t.subscribers[subscriberID]
			t.mu.Unlock()
			if !stillSubscribed {
				return
			}
			send(ch, newMessage(EventTypeHeartbeat, heartbeatPayload{
				Type: EventTypeHeartbeat, JobID: jobID, Timestamp: nowRFC3339(),
			}))
		}
	}
}

// broadcast copies subscriber channels under the topic lock, then sends
// outside it so a blocked or slow subscriber can never hold up the
// publisher's critical section (grounded on the teacher's ConnectionManager
// Broadcast, which used the same copy-then-release pattern).
func (t *topic) broadcast(msg Message) {
	t.mu.Lock()
	chans := make([]chan Message, 0, len(t.subscribers))
	for _, ch := range t.subscribers {
		chans = append(chans, ch)
	}
	t.mu.Unlock()

	for _, ch := range chans {
		send(ch, msg)
	}
}

// send is a non-blocking enqueue that drops the oldest buffered message to
// make room rather than block the publisher (spec.md §4.D "drop oldest").
func send(ch chan Message, msg Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// PublishStatusUpdate implements queue.EventPublisher. It stores the
// snapshot for late subscribers and broadcasts it to current ones.
func (b *Bus) PublishStatusUpdate(job *models.Job) {
	if job == nil {
		return
	}
	t := b.topicFor(job.ID)

	t.mu.Lock()
	t.lastJob = job.Clone()
	t.mu.Unlock()

	t.broadcast(newMessage(EventTypeStatusUpdate, statusUpdatePayload{
		Type: EventTypeStatusUpdate, JobID: job.ID, Timestamp: nowRFC3339(), Job: job,
	}))
}

// PublishAnalysisComplete implements queue.EventPublisher.
func (b *Bus) PublishAnalysisComplete(jobID, renderedOutput string) {
	t := b.topicFor(jobID)
	t.broadcast(newMessage(EventTypeAnalysisComplete, analysisCompletePayload{
		Type: EventTypeAnalysisComplete, JobID: jobID, Timestamp: nowRFC3339(), RenderedOutput: renderedOutput,
	}))
}

// PublishDone implements queue.EventPublisher. It broadcasts the terminal
// event, then drops the topic — no further events for this job are
// expected after done (spec.md §4.D). Subscriber channels are left for
// their readers to abandon after observing the done message rather than
// closed here, since a concurrent heartbeat tick could otherwise race a
// close and panic on send.
func (b *Bus) PublishDone(jobID string) {
	t := b.topicFor(jobID)
	t.broadcast(newMessage(EventTypeDone, donePayload{
		Type: EventTypeDone, JobID: jobID, Timestamp: nowRFC3339(),
	}))

	t.mu.Lock()
	t.closed = true
	for id := range t.subscribers {
		delete(t.subscribers, id)
	}
	t.mu.Unlock()

	b.mu.Lock()
	delete(b.topics, jobID)
	b.mu.Unlock()

	slog.Debug("retired event bus topic", "job_id", jobID)
}
