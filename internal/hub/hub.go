package hub

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/empowersafe/sos_alerting_system/internal/models"
)

const subscriberBuffer = 16

// Subscriber - один подключенный наблюдатель. События читаются из C;
// канал закрывает только Unsubscribe.
type Subscriber struct {
	topics []string
	C      chan models.BroadcastEvent
}

// Hub - процессный реестр подписок: топик -> активные подписчики.
// Инициализируется на старте сервера, записи добавляются при подписке
// и снимаются при отключении. Доставка best-effort: медленный подписчик
// теряет события, но никогда не блокирует публикацию.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscriber]struct{}
	logger *logrus.Logger
}

// New создает пустой реестр подписок
func New(logger *logrus.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe регистрирует подписчика на перечисленные топики
func (h *Hub) Subscribe(topics ...string) *Subscriber {
	sub := &Subscriber{
		topics: topics,
		C:      make(chan models.BroadcastEvent, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[*Subscriber]struct{})
		}
		h.topics[topic][sub] = struct{}{}
	}
	return sub
}

// Unsubscribe снимает подписчика со всех его топиков и закрывает канал
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range sub.topics {
		if subs, ok := h.topics[topic]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	close(sub.C)
}

// Publish маршрутизирует событие в глобальный топик и в персональный топик
// владельца. Подписчик обоих топиков получает событие один раз. Порядок
// событий одного топика сохраняется: публикация идет из одной точки под
// блокировкой, канал подписчика - FIFO.
func (h *Hub) Publish(event models.BroadcastEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := make(map[*Subscriber]struct{})
	h.deliver(models.GlobalTopic, event, delivered)
	h.deliver(models.UserTopic(event.OwnerID), event, delivered)
}

func (h *Hub) deliver(topic string, event models.BroadcastEvent, delivered map[*Subscriber]struct{}) {
	for sub := range h.topics[topic] {
		if _, ok := delivered[sub]; ok {
			continue
		}
		delivered[sub] = struct{}{}
		select {
		case sub.C <- event:
		default:
			// Переполненный подписчик событие теряет
			h.logger.WithFields(logrus.Fields{
				"topic": topic,
				"kind":  event.Kind,
			}).Warn("Subscriber buffer full, event dropped")
		}
	}
}

// SubscriberCount возвращает число активных подписчиков топика
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
