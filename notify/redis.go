/*
Package notify delivers lifecycle events to external consumers.

PURPOSE:
  Implements leave.NotificationSink over Redis pub/sub. Each successful
  mutation publishes one JSON event on a per-organization channel so mail
  workers, Slack bridges and calendar sync processes can subscribe without
  the engine knowing about them.

DELIVERY SEMANTICS:
  Fire-and-forget with a short exponential-backoff retry. A publish that
  still fails after the retry window is logged and dropped: notification
  delivery must never fail or roll back the state change it announces.

CHANNELS:
  leave.events.<org_id>

SEE ALSO:
  - leave/notify.go: the sink interface and event payload
  - cmd/leaved: wires the sink from the --redis flag
*/
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
)

// channelPrefix namespaces the engine's channels in a shared Redis.
const channelPrefix = "leave.events."

// RedisSink publishes lifecycle events to Redis pub/sub.
type RedisSink struct {
	client *redis.Client
	logger *zap.Logger

	// maxElapsed bounds the retry window per event.
	maxElapsed time.Duration
}

var _ leave.NotificationSink = (*RedisSink)(nil)

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, addr string, logger *zap.Logger) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return &RedisSink{
		client:     client,
		logger:     logger,
		maxElapsed: 5 * time.Second,
	}, nil
}

// Close releases the underlying client.
func (s *RedisSink) Close() error { return s.client.Close() }

// Notify publishes one event, retrying transient failures with exponential
// backoff. A delivery that exhausts the window is logged and swallowed.
func (s *RedisSink) Notify(ctx context.Context, ev leave.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to encode event",
			zap.String("kind", string(ev.Kind)),
			zap.String("request_id", ev.Request.ID),
			zap.Error(err))
		return nil
	}

	channel := channelPrefix + ev.Request.OrgID

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = s.maxElapsed

	err = backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return s.client.Publish(ctx, channel, payload).Err()
	}, bo, func(err error, next time.Duration) {
		s.logger.Warn("retrying event publish",
			zap.String("channel", channel),
			zap.Duration("next_attempt_in", next),
			zap.Error(err))
	})
	if err != nil {
		s.logger.Error("dropping undeliverable event",
			zap.String("channel", channel),
			zap.String("kind", string(ev.Kind)),
			zap.String("request_id", ev.Request.ID),
			zap.Error(err))
		return nil
	}

	s.logger.Debug("event published",
		zap.String("channel", channel),
		zap.String("kind", string(ev.Kind)),
		zap.String("request_id", ev.Request.ID))
	return nil
}
