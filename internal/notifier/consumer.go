package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medisched/medisched/pkg/metrics"
)

// Consumer drains the notification queue and delivers each event through the
// Mailer. Delivery is at-least-once: a failed attempt is parked in a sorted
// set scored by its ready time and promoted back onto the queue once the
// backoff elapses, so a failing message never blocks the ones behind it.
// After the attempt budget is spent the event is dropped with an error log.
// Nothing here ever reports back to the producer.
type Consumer struct {
	rdb      *redis.Client
	queue    string
	retryKey string
	mailer   Mailer
	log      *zap.Logger
	metrics  *metrics.Collector

	maxAttempts int
	backoff     time.Duration
	popTimeout  time.Duration
}

func NewConsumer(
	rdb *redis.Client,
	queue string,
	mailer Mailer,
	log *zap.Logger,
	m *metrics.Collector,
	maxAttempts int,
	backoff, popTimeout time.Duration,
) *Consumer {
	return &Consumer{
		rdb:         rdb,
		queue:       queue,
		retryKey:    queue + ":retry",
		mailer:      mailer,
		log:         log,
		metrics:     m,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		popTimeout:  popTimeout,
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("notification consumer started", zap.String("queue", c.queue))

	for {
		if ctx.Err() != nil {
			c.log.Info("notification consumer stopping")
			return
		}

		c.promoteDue(ctx)

		res, err := c.rdb.BRPop(ctx, c.popTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				c.log.Info("notification consumer stopping")
				return
			}
			c.log.Error("failed to pop from notification queue", zap.Error(err))
			sleep(ctx, c.popTimeout)
			continue
		}

		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		if retry := c.handle(ctx, []byte(res[1])); retry != nil {
			c.scheduleRetry(ctx, retry)
		}
	}
}

// handle delivers one payload. It returns the envelope to retry, or nil when
// the event was delivered or dropped.
func (c *Consumer) handle(ctx context.Context, payload []byte) *envelope {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.log.Error("discarding malformed notification payload", zap.Error(err))
		c.metrics.NotificationsDropped.Inc()
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := c.mailer.Send(sendCtx, env.Event)
	cancel()
	if err == nil {
		c.metrics.NotificationsDelivered.WithLabelValues(string(env.Event.Kind)).Inc()
		return nil
	}

	env.Attempt++
	if env.Attempt >= c.maxAttempts {
		c.log.Error("dropping notification after exhausting retries",
			zap.String("kind", string(env.Event.Kind)),
			zap.String("appointment_id", env.Event.AppointmentID.String()),
			zap.Int("attempts", env.Attempt),
			zap.Error(err),
		)
		c.metrics.NotificationsDropped.Inc()
		return nil
	}

	c.log.Warn("notification delivery failed, scheduling retry",
		zap.String("kind", string(env.Event.Kind)),
		zap.Int("attempt", env.Attempt),
		zap.Error(err),
	)
	c.metrics.NotificationRetries.Inc()
	return &env
}

// scheduleRetry parks the envelope until its backoff elapses. Only the
// retried event waits; everything else on the queue keeps flowing.
func (c *Consumer) scheduleRetry(ctx context.Context, env *envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		c.log.Error("failed to re-encode notification envelope", zap.Error(err))
		c.metrics.NotificationsDropped.Inc()
		return
	}

	readyAt := time.Now().Add(c.backoff)
	err = c.rdb.ZAdd(ctx, c.retryKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: payload,
	}).Err()
	if err != nil {
		c.log.Error("failed to schedule notification retry", zap.Error(err))
		c.metrics.NotificationsDropped.Inc()
	}
}

// promoteDue moves retries whose backoff has elapsed back onto the queue.
// Promotion granularity is one pop cycle, which is well under the backoff.
func (c *Consumer) promoteDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := c.rdb.ZRangeByScore(ctx, c.retryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			c.log.Error("failed to read retry schedule", zap.Error(err))
		}
		return
	}

	for _, member := range due {
		if err := c.rdb.LPush(ctx, c.queue, member).Err(); err != nil {
			c.log.Error("failed to promote scheduled retry", zap.Error(err))
			return
		}
		c.rdb.ZRem(ctx, c.retryKey, member)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
