package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы realtime-событий жизненного цикла инцидента
const (
	EventIncidentCreated     = "incident_created"
	EventLocationUpdated     = "location_updated"
	EventStatusChanged       = "status_changed"
	EventContactAcknowledged = "contact_acknowledged"
)

// GlobalTopic - общий топик для дашбордов ситуационной осведомленности
const GlobalTopic = "global"

// UserTopic возвращает имя персонального топика владельца
func UserTopic(ownerID uuid.UUID) string {
	return fmt.Sprintf("user_%s", ownerID)
}

// BroadcastEvent - транзиентное событие для realtime-рассылки.
// Не персистится, содержит только минимальный срез полей инцидента.
type BroadcastEvent struct {
	Kind       string    `json:"kind"`
	IncidentID uuid.UUID `json:"incident_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Status     string    `json:"status,omitempty"`
	AlertType  string    `json:"alert_type,omitempty"`
	AlertLevel string    `json:"alert_level,omitempty"`
	Message    string    `json:"message,omitempty"`
	Location   *Point    `json:"location,omitempty"`
	ContactID  string    `json:"contact_id,omitempty"`
	ETAMinutes int       `json:"eta_minutes,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
