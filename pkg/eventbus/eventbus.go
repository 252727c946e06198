package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Event struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// WorkflowEvent is the live update published after every committed change.
type WorkflowEvent struct {
	WorkflowID  string `json:"workflow_id"`
	CurrentStep int    `json:"current_step"`
	Status      string `json:"status"`
	Version     int64  `json:"version"`
	Message     string `json:"message,omitempty"`
}

const (
	TypeWorkflowAdvanced   = "workflow_advanced"
	TypeCandidateResponded = "candidate_responded"
	TypeWorkflowInitiated  = "workflow_initiated"
)

const channelPrefix = "offerflow:events:workflow:"

// WorkflowChannel is the pub/sub channel carrying updates of one workflow.
func WorkflowChannel(workflowID string) string {
	return channelPrefix + workflowID
}

// Publisher is what the supervisor needs from the bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Bus struct {
	client redis.UniversalClient
}

func NewBus(client redis.UniversalClient) *Bus {
	return &Bus{client: client}
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}

func (b *Bus) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

// Subscribe streams events until ctx is done. Undecodable messages are dropped.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) <-chan *Event {
	sub := b.client.Subscribe(ctx, channels...)
	ch := make(chan *Event, 100)

	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case ch <- &event:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return ch
}
