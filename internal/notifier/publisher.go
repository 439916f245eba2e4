package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const jobQueueKey = "notification_jobs"

// RedisJobQueue ставит задания рассылки в очередь Redis.
// Постановка отделяет фиксацию инцидента от самой рассылки:
// создатель не ждет ни одной отправки.
type RedisJobQueue struct {
	redisClient *redis.Client
}

// NewRedisJobQueue создает новый RedisJobQueue
func NewRedisJobQueue(client *redis.Client) *RedisJobQueue {
	return &RedisJobQueue{
		redisClient: client,
	}
}

// Enqueue публикует задание в очередь Redis
func (q *RedisJobQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification job: %w", err)
	}

	// LPUSH кладет задание в левую часть списка, воркер снимает справа
	if err := q.redisClient.LPush(ctx, jobQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification job to Redis: %w", err)
	}
	return nil
}
