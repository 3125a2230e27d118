// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"inkd/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	authChannelPrefix = "auth:session:"
	pushChannelPrefix = "push:session:"
)

// AuthChannel is where a session's sign-in, sign-out and refresh events travel.
func AuthChannel(sessionID string) string {
	return authChannelPrefix + sessionID
}

// PushChannel is where a session's container change events travel.
func PushChannel(sessionID string) string {
	return pushChannelPrefix + sessionID
}

// SessionFromChannel extracts the session id from an auth or push channel name.
func SessionFromChannel(channel string) (string, bool) {
	for _, prefix := range []string{authChannelPrefix, pushChannelPrefix} {
		if sid, ok := strings.CutPrefix(channel, prefix); ok && sid != "" {
			return sid, true
		}
	}
	return "", false
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events fan out through Redis.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishAuth sends an auth change payload to a session's channel.
func (n *Notifier) PublishAuth(ctx context.Context, sessionID, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, AuthChannel(sessionID), payload).Err()
}

// PublishPush sends a change event payload to a session's channel.
func (n *Notifier) PublishPush(ctx context.Context, sessionID, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, PushChannel(sessionID), payload).Err()
}

// StartAuthSubscriber subscribes to every session's auth channel.
func (n *Notifier) StartAuthSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	return n.subscribe(ctx, "auth", onMessage, authChannelPrefix+"*")
}

// StartPushSubscriber subscribes to every session's push channel.
func (n *Notifier) StartPushSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	return n.subscribe(ctx, "push", onMessage, pushChannelPrefix+"*")
}

// subscribe returns once the subscription is confirmed and delivers messages
// on a goroutine until ctx ends.
func (n *Notifier) subscribe(ctx context.Context, name string, onMessage func(channel, payload string), patterns ...string) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, patterns...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", name, err)
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
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Log().Error("panic in subscriber",
								slog.String("subscriber", name),
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
