// Package notifications fans feed events out to websocket clients through Redis pub/sub.
package notifications

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"sync"

	"karmafeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	broadcastChannel   = "feed:broadcast"
	userChannelPattern = "feed:user:*"
)

// Notifier publishes feed events. Without Redis it delivers straight to the
// in-process subscriber, so a single instance still gets live events.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local func(channel, payload string)
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) publish(ctx context.Context, channel, payload string) error {
	if n.rdb == nil {
		n.mu.RLock()
		local := n.local
		n.mu.RUnlock()
		if local != nil {
			local(channel, payload)
		}
		return nil
	}
	ctx, span := observability.TraceRedisOperation(ctx, "publish")
	defer span.End()
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// PublishUser sends a payload to every connection of one user.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	return n.publish(ctx, UserChannel(userID), payload)
}

// PublishBroadcast sends a payload to every connection.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	return n.publish(ctx, broadcastChannel, payload)
}

func (n *Notifier) PublishLikeUpdated(ctx context.Context, ev LikeUpdated) error {
	payload, err := encode(EventLikeUpdated, ev)
	if err != nil {
		return err
	}
	return n.PublishBroadcast(ctx, payload)
}

func (n *Notifier) PublishKarmaChanged(ctx context.Context, ev KarmaChanged) error {
	payload, err := encode(EventKarmaChanged, ev)
	if err != nil {
		return err
	}
	return n.PublishUser(ctx, ev.UserID, payload)
}

func (n *Notifier) PublishLeaderboard(ctx context.Context, ev LeaderboardUpdated) error {
	payload, err := encode(EventLeaderboardUpdated, ev)
	if err != nil {
		return err
	}
	return n.PublishBroadcast(ctx, payload)
}

// StartPatternSubscriber calls onMessage for every user and broadcast
// message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	safe := func(channel, payload string) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
			}
		}()
		onMessage(channel, payload)
	}

	if n.rdb == nil {
		n.mu.Lock()
		n.local = safe
		n.mu.Unlock()
		go func() {
			<-ctx.Done()
			n.mu.Lock()
			n.local = nil
			n.mu.Unlock()
		}()
		return nil
	}

	sub := n.rdb.PSubscribe(ctx, userChannelPattern, broadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to feed channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				safe(msg.Channel, msg.Payload)
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "feed:user:" + strconv.FormatUint(uint64(userID), 10)
}
