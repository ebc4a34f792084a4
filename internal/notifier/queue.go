package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medisched/medisched/pkg/metrics"
)

// RedisQueue publishes events onto a Redis list consumed by the worker
// process. Enqueue is fire-and-forget: a broker failure is logged and
// swallowed so it can never surface as a scheduling failure.
type RedisQueue struct {
	rdb     *redis.Client
	queue   string
	log     *zap.Logger
	metrics *metrics.Collector
}

func NewRedisQueue(rdb *redis.Client, queue string, log *zap.Logger, m *metrics.Collector) *RedisQueue {
	return &RedisQueue{rdb: rdb, queue: queue, log: log, metrics: m}
}

func (q *RedisQueue) Enqueue(ctx context.Context, ev Event) {
	env := envelope{Event: ev, Attempt: 0, EnqueuedAt: time.Now()}

	payload, err := json.Marshal(env)
	if err != nil {
		q.log.Error("failed to encode notification event",
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := q.rdb.LPush(pushCtx, q.queue, payload).Err(); err != nil {
		q.log.Warn("failed to enqueue notification event",
			zap.String("kind", string(ev.Kind)),
			zap.String("appointment_id", ev.AppointmentID.String()),
			zap.Error(err),
		)
		return
	}

	q.metrics.NotificationsEnqueued.WithLabelValues(string(ev.Kind)).Inc()
}
