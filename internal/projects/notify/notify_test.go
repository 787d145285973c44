package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

func setupNotifier(t *testing.T) *RedisNotifier {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisNotifier(client)
}

func TestRedisNotifier_PublishReachesSubscriber(t *testing.T) {
	n := setupNotifier(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := n.Subscribe(ctx, "cut-10000-0001")
	require.NoError(t, err)
	defer sub.Close()

	snap := &domain.Project{ID: "cut-10000-0001", Status: domain.StatusInReview, Version: 3}
	require.NoError(t, n.Publish(ctx, Event{Type: EventUpdate, ProjectID: snap.ID, Project: snap, At: time.Now().UTC()}))
	require.NoError(t, n.Publish(ctx, Event{Type: EventUpdate, ProjectID: "cut-99999-9999"}))
	require.NoError(t, n.Publish(ctx, Event{Type: EventDeleted, ProjectID: snap.ID}))

	select {
	case ev := <-sub.C:
		assert.Equal(t, EventUpdate, ev.Type)
		require.NotNil(t, ev.Project)
		assert.Equal(t, domain.StatusInReview, ev.Project.Status)
		assert.Equal(t, int64(3), ev.Project.Version)
	case <-ctx.Done():
		t.Fatal("no update event received")
	}

	select {
	case ev := <-sub.C:
		assert.Equal(t, EventDeleted, ev.Type)
		assert.Nil(t, ev.Project)
	case <-ctx.Done():
		t.Fatal("no deleted event received")
	}
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "review:events:cut-1", Channel("cut-1"))
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), Event{ProjectID: "x"}))
}
