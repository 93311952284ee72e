// Package redisclient wraps the Redis-backed active-conversations cache
// and HIL approval pub/sub channel (SPEC_FULL.md §3). The event store
// itself is the JSON document under store.Store; Redis only holds
// short-lived, reconstructible state — which threads are currently
// mid-conversation, and a notify channel for operators approving a
// queued draft from another process.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/venuedesk/bookingengine/config"
)

const (
	activeConversationPrefix = "bookingengine:active:"
	hilApprovedChannel       = "bookingengine:hil:approved"
)

// Client wraps a Redis connection for the active-conversations cache
// and the HIL approval notify channel.
type Client struct {
	c *redis.Client
}

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed.
func New(cfg *config.Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	r := redis.NewClient(opt)
	return &Client{c: r}, nil
}

func (r *Client) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.c.Ping(ctx).Err()
}

// MarkActive records that threadID is mid-conversation, so a future
// delivery for the same thread can be routed to the right queue/worker
// without consulting the document store. Entries expire on their own —
// the document store remains the single source of truth for state.
func (r *Client) MarkActive(ctx context.Context, threadID string, ttl time.Duration) error {
	return r.c.Set(ctx, activeConversationPrefix+threadID, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// IsActive reports whether threadID has a live active-conversation
// marker.
func (r *Client) IsActive(ctx context.Context, threadID string) (bool, error) {
	n, err := r.c.Exists(ctx, activeConversationPrefix+threadID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearActive removes the active-conversation marker, e.g. once a
// thread reaches a terminal state (confirmed/cancelled).
func (r *Client) ClearActive(ctx context.Context, threadID string) error {
	return r.c.Del(ctx, activeConversationPrefix+threadID).Err()
}

// PublishHILApproval notifies any subscribed processes that taskID was
// resolved, so a multi-instance deployment can wake the worker that
// owns threadID instead of relying on the next inbound delivery.
func (r *Client) PublishHILApproval(ctx context.Context, taskID, threadID string) error {
	return r.c.Publish(ctx, hilApprovedChannel, taskID+"|"+threadID).Err()
}

// SubscribeHILApprovals returns a channel of "taskID|threadID" payloads
// published by PublishHILApproval. Callers should read until ctx is
// cancelled, then the subscription closes itself.
func (r *Client) SubscribeHILApprovals(ctx context.Context) <-chan string {
	sub := r.c.Subscribe(ctx, hilApprovedChannel)
	out := make(chan string)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- msg.Payload
			}
		}
	}()
	return out
}

// Close releases the underlying connection pool.
func (r *Client) Close() error {
	return r.c.Close()
}
