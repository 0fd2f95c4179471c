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

type RunEvent struct {
	RunID         string         `json:"run_id"`
	GameID        string         `json:"game_id"`
	Status        string         `json:"status"`
	Policy        string         `json:"policy,omitempty"`
	Capacity      int            `json:"capacity,omitempty"`
	Admitted      int            `json:"admitted"`
	Rejected      int            `json:"rejected"`
	Processed     int            `json:"processed"`
	Reason        string         `json:"reason,omitempty"`
	NeedRemaining map[string]int `json:"need_remaining,omitempty"`
}

type DecisionEvent struct {
	RunID       string          `json:"run_id"`
	PersonIndex int             `json:"person_index"`
	Accept      bool            `json:"accept"`
	Reason      string          `json:"reason"`
	Attributes  map[string]bool `json:"attributes,omitempty"`
	Admitted    int             `json:"admitted"`
	Processed   int             `json:"processed"`
}

const (
	ChannelDecision = "ng:events:decision"
	ChannelRun      = "ng:events:run"
)

const (
	TypeRunStarted  = "run.started"
	TypeRunFinished = "run.finished"
	TypeDecision    = "decision"
)

// Publisher is the write side of the bus.
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

// Subscribe streams events from channels until ctx is done. Malformed
// payloads are skipped.
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
