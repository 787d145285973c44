// Package notify fans project snapshots out to interested clients. Events
// are published only after a write has been stored.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

const eventChannelPrefix = "review:events:" // Pub/Sub channel per project: review:events:{project_id}

type EventType string

const (
	EventUpdate  EventType = "update"
	EventDeleted EventType = "deleted"
)

// Event carries the snapshot produced by a successful write. Project is nil
// for deletions.
type Event struct {
	Type      EventType       `json:"type"`
	ProjectID string          `json:"project_id"`
	Project   *domain.Project `json:"project,omitempty"`
	At        time.Time       `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, projectID string) (*Subscription, error)
}

// NoopPublisher drops every event. Used when Redis is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// RedisNotifier publishes and subscribes over Redis Pub/Sub.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, Channel(ev.ProjectID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens for events on one project until ctx is done or the
// subscription is closed.
func (n *RedisNotifier) Subscribe(ctx context.Context, projectID string) (*Subscription, error) {
	ps := n.client.Subscribe(ctx, Channel(projectID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, 8)
	sub := &Subscription{C: out, ps: ps}
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub, nil
}

// Subscription delivers events on C until closed.
type Subscription struct {
	C  <-chan Event
	ps *redis.PubSub
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}

func Channel(projectID string) string {
	return eventChannelPrefix + projectID
}
