package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxAttempts is how many deliveries a queued message gets before it is dropped.
const MaxAttempts = 3

// RedisQueue pushes messages onto a list consumed by `worker notifications`.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return q.rdb.LPush(ctx, q.key, payload).Err()
}

type Consumer struct {
	rdb     *redis.Client
	key     string
	sender  Sender
	wait    time.Duration
	backoff time.Duration
	logger  *slog.Logger
}

func NewConsumer(rdb *redis.Client, key string, sender Sender, logger *slog.Logger) *Consumer {
	return &Consumer{
		rdb:     rdb,
		key:     key,
		sender:  sender,
		wait:    5 * time.Second,
		backoff: time.Second,
		logger:  logger,
	}
}

// Run consumes until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("notification consumer started", "queue", c.key)
	for {
		if ctx.Err() != nil {
			c.logger.Info("notification consumer stopped")
			return nil
		}

		if _, err := c.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("queue read failed", "queue", c.key, "error", err)
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
			}
		}
	}
}

// ProcessOne waits for one message and delivers it. It reports false when the
// wait timed out with an empty queue. A failed delivery is pushed back until
// MaxAttempts is reached.
func (c *Consumer) ProcessOne(ctx context.Context) (bool, error) {
	res, err := c.rdb.BRPop(ctx, c.wait, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		c.logger.Error("dropping malformed message", "queue", c.key, "error", err)
		return true, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	if err := c.sender.Send(sendCtx, msg); err != nil {
		msg.Attempts++
		if msg.Attempts >= MaxAttempts {
			c.logger.Error("email dropped after retries", "to", msg.To, "subject", msg.Subject, "attempts", msg.Attempts, "error", err)
			return true, nil
		}
		c.logger.Warn("email delivery failed, requeued", "to", msg.To, "attempts", msg.Attempts, "error", err)
		if qerr := NewRedisQueue(c.rdb, c.key).Enqueue(ctx, msg); qerr != nil {
			c.logger.Error("requeue failed", "to", msg.To, "error", qerr)
		}
		return true, nil
	}

	c.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return true, nil
}
