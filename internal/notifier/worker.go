package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/empowersafe/sos_alerting_system/internal/config"
)

// Worker - пул горутин, разбирающих очередь заданий рассылки.
// Воркеры конкурируют за BRPOP, поэтому одно задание достается ровно одному.
type Worker struct {
	redisClient *redis.Client
	dispatcher  *Dispatcher
	logger      *logrus.Logger
	cfg         *config.Config
}

// NewWorker создает новый Worker
func NewWorker(redisClient *redis.Client, dispatcher *Dispatcher, logger *logrus.Logger, cfg *config.Config) *Worker {
	return &Worker{
		redisClient: redisClient,
		dispatcher:  dispatcher,
		logger:      logger,
		cfg:         cfg,
	}
}

// Start запускает пул воркеров обработки очереди
func (w *Worker) Start(ctx context.Context) {
	workers := w.cfg.DispatchWorkers
	if workers < 1 {
		workers = 1
	}
	w.logger.WithField("workers", workers).Info("Starting notification workers...")

	for i := 0; i < workers; i++ {
		go w.run(ctx, i)
	}
}

func (w *Worker) run(ctx context.Context, id int) {
	log := w.logger.WithField("worker", id)
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping notification worker.")
			return
		default:
			// BRPOP - блокирующее извлечение из правой части списка (очереди),
			// 0 означает бесконечное ожидание
			result, err := w.redisClient.BRPop(ctx, 0, jobQueueKey).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue // Контекст отменен, но не ошибка Redis
				}
				log.WithError(err).Error("Failed to pop notification job from Redis")
				time.Sleep(time.Second) // Ждем перед повторной попыткой
				continue
			}

			// result[0] - ключ, result[1] - значение
			var job Job
			if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
				log.WithError(err).Error("Failed to unmarshal notification job from Redis")
				continue
			}

			w.dispatcher.Dispatch(ctx, job)
		}
	}
}
