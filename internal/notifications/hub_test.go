package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"karmafeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	_, err = hub.Register(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count())

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.Count())

	_, ok := <-a.Send
	assert.False(t, ok, "send channel closed on unregister")
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(9, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(9, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(0, nil)
	assert.NoError(t, err)
}

func TestHub_BroadcastRouting(t *testing.T) {
	hub := NewHub()
	alice, _ := hub.Register(1, nil)
	bob, _ := hub.Register(2, nil)
	watcher, _ := hub.Register(0, nil)

	hub.Broadcast(1, "only-alice")
	hub.BroadcastAll("everyone")

	assert.Equal(t, "only-alice", string(<-alice.Send))
	assert.Equal(t, "everyone", string(<-alice.Send))
	assert.Equal(t, "everyone", string(<-bob.Send))
	assert.Equal(t, "everyone", string(<-watcher.Send))
	assert.Empty(t, bob.Send)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(5, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	assert.NotPanics(t, func() { c.TrySend([]byte("overflow")) })
	assert.Len(t, c.Send, sendBuffer)

	hub.UnregisterClient(c)
	assert.NotPanics(t, func() { c.TrySend([]byte("after-close")) })
}

func TestHub_WiredToNotifier(t *testing.T) {
	for _, withRedis := range []bool{false, true} {
		name := "local"
		if withRedis {
			name = "redis"
		}
		t.Run(name, func(t *testing.T) {
			n := NewNotifier(nil)
			if withRedis {
				n = NewNotifier(newTestRedis(t))
			}
			hub := NewHub()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			require.NoError(t, hub.StartWiring(ctx, n))

			owner, _ := hub.Register(4, nil)
			watcher, _ := hub.Register(0, nil)

			require.NoError(t, n.PublishKarmaChanged(ctx, KarmaChanged{UserID: 4, Delta: 1, EventType: models.EventCommentLike}))
			require.NoError(t, n.PublishLikeUpdated(ctx, LikeUpdated{Target: models.TargetComment, TargetID: 8, ActorID: 2, Liked: true, LikeCount: 1}))

			var first Envelope
			select {
			case msg := <-owner.Send:
				require.NoError(t, json.Unmarshal(msg, &first))
			case <-time.After(testEventuallyTimeout):
				t.Fatal("owner got nothing")
			}
			assert.Equal(t, EventKarmaChanged, first.Type)

			select {
			case msg := <-watcher.Send:
				var env Envelope
				require.NoError(t, json.Unmarshal(msg, &env))
				assert.Equal(t, EventLikeUpdated, env.Type)
			case <-time.After(testEventuallyTimeout):
				t.Fatal("watcher got nothing")
			}

			require.NoError(t, hub.Shutdown(context.Background()))
			assert.Zero(t, hub.Count())
			_, err := hub.Register(1, nil)
			assert.ErrorIs(t, err, ErrServerFull)
		})
	}
}
