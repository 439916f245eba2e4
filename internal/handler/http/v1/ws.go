package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/empowersafe/sos_alerting_system/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Авторизация подписки - забота внешнего слоя, хаб её не навязывает
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary Subscribe to realtime incident events
// @Description Upgrade to a WebSocket and receive lifecycle events from the global topic. Pass user_id to also join the owner's personal topic.
// @Tags Realtime
// @Param user_id query string false "Owner ID for the personal topic"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} map[string]string "Invalid user ID"
// @Router /ws [get]
func (h *Handler) subscribeEvents(c *gin.Context) {
	log := h.logger.WithField("method", "subscribeEvents")

	topics := []string{models.GlobalTopic}
	if rawID := c.Query("user_id"); rawID != "" {
		userID, err := uuid.Parse(rawID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
			return
		}
		topics = append(topics, models.UserTopic(userID))
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	sub := h.eventHub.Subscribe(topics...)
	log.WithField("topics", topics).Info("Realtime subscriber connected")

	// Писатель: события хаба уходят в сокет до закрытия канала подписки
	go func() {
		defer conn.Close()
		for event := range sub.C {
			if err := conn.WriteJSON(event); err != nil {
				log.WithError(err).Debug("Failed to write event to subscriber")
				return
			}
		}
	}()

	// Читатель держит соединение и снимает подписку при отключении клиента
	go func() {
		defer h.eventHub.Unsubscribe(sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Info("Realtime subscriber disconnected")
				return
			}
		}
	}()
}
