// Package progress fans pipeline status events out to interested listeners,
// typically websocket sessions. Delivery is best effort: a subscriber that
// cannot keep up loses events instead of stalling the pipeline, but the
// events one subscriber does receive for a given recording arrive in the
// order they were published.
package progress

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const subscriberBuffer = 32

// Broadcaster delivers events to all current subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	logger      *zap.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan Event),
		logger:      logger,
	}
}

// Subscribe registers a new listener and returns its id and event channel.
// The channel is closed when Unsubscribe is called with the returned id.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	b.logger.Debug("progress subscriber added", zap.String("id", id))
	return id, ch
}

// Unsubscribe removes a listener and closes its channel. Unknown ids are
// ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
		b.logger.Debug("progress subscriber removed", zap.String("id", id))
	}
}

// SubscriberCount returns the number of active listeners.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish delivers the event to every subscriber whose buffer has room.
// It never blocks.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("progress subscriber buffer full, dropping event",
				zap.String("subscriber", id),
				zap.Uint("recording_id", event.RecordingID),
				zap.String("type", string(event.Type)))
		}
	}
}

// Progress publishes a step update for a recording.
func (b *Broadcaster) Progress(recordingID uint, filename, step string, percent int) {
	b.Publish(Event{
		Type:        EventProgress,
		RecordingID: recordingID,
		Filename:    filename,
		Step:        step,
		Percent:     percent,
	})
}

// Completed publishes a terminal success event.
func (b *Broadcaster) Completed(recordingID uint, filename string) {
	b.Publish(Event{
		Type:        EventCompleted,
		RecordingID: recordingID,
		Filename:    filename,
		Percent:     100,
	})
}

// Error publishes a terminal failure event with a short reason.
func (b *Broadcaster) Error(recordingID uint, filename, message string) {
	b.Publish(Event{
		Type:        EventError,
		RecordingID: recordingID,
		Filename:    filename,
		Message:     message,
	})
}
