package v1

import (
	"time"

	"github.com/google/uuid"

	"github.com/empowersafe/sos_alerting_system/internal/service"
)

// LocationDTO - точка с координатами и необязательным адресом
// @Description Географическая точка
type LocationDTO struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// CreateIncidentRequest DTO для создания инцидента
// @Description DTO для создания инцидента
type CreateIncidentRequest struct {
	OwnerID       string       `json:"owner_id" validate:"required,uuid"`
	Message       string       `json:"message,omitempty" validate:"omitempty,max=1000"`
	Location      *LocationDTO `json:"location,omitempty"`
	AlertType     string       `json:"alert_type,omitempty" validate:"omitempty,oneof=manual shake voice timer stealth nfc"`
	AlertLevel    string       `json:"alert_level,omitempty" validate:"omitempty,oneof=warning urgent critical"`
	BatteryLevel  *int         `json:"battery_level,omitempty" validate:"omitempty,gte=0,lte=100"`
	NetworkStatus string       `json:"network_status,omitempty" validate:"omitempty,oneof=online offline"`
}

// AppendLocationRequest DTO для добавления точки трека
// @Description DTO для добавления точки трека
type AppendLocationRequest struct {
	OwnerID   string  `json:"owner_id" validate:"required,uuid"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// TransitionStatusRequest DTO для смены статуса инцидента
// @Description DTO для смены статуса инцидента
type TransitionStatusRequest struct {
	OwnerID string `json:"owner_id" validate:"required,uuid"`
	Status  string `json:"status" validate:"required,oneof=acknowledged resolved false_alarm"`
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// AcknowledgeRequest DTO для отклика экстренного контакта
// @Description DTO для отклика экстренного контакта
type AcknowledgeRequest struct {
	ContactID   string       `json:"contact_id" validate:"required"`
	ContactName string       `json:"contact_name,omitempty"`
	Location    *LocationDTO `json:"location,omitempty"`
	ETAMinutes  int          `json:"eta_minutes,omitempty" validate:"omitempty,gte=0"`
}

// BatchEventDTO - одно событие офлайн-батча. Обязательность полей здесь не
// проверяется: каждое событие валидируется сервисом независимо, чтобы ошибка
// одного не отклоняла весь батч.
type BatchEventDTO struct {
	OwnerID   string   `json:"owner_id"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
	Message   string   `json:"message,omitempty"`
	Source    string   `json:"source,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// BatchIngestRequest DTO для офлайн-батча
// @Description DTO для офлайн-батча SOS-событий
type BatchIngestRequest struct {
	Events []BatchEventDTO `json:"events" validate:"required,min=1"`
}

// TrailPointResponse - точка трека в ответе
type TrailPointResponse struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactResponseDTO - отклик контакта в ответе
type ContactResponseDTO struct {
	ContactID      string       `json:"contact_id"`
	Name           string       `json:"name,omitempty"`
	Acknowledged   bool         `json:"acknowledged"`
	AcknowledgedAt time.Time    `json:"acknowledged_at"`
	Location       *LocationDTO `json:"location,omitempty"`
	ETAMinutes     int          `json:"eta_minutes,omitempty"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID               uuid.UUID            `json:"id"`
	OwnerID          uuid.UUID            `json:"owner_id"`
	Status           string               `json:"status"`
	AlertType        string               `json:"alert_type"`
	AlertLevel       string               `json:"alert_level"`
	Message          string               `json:"message"`
	Location         *LocationDTO         `json:"location,omitempty"`
	LocationTrail    []TrailPointResponse `json:"location_trail"`
	ContactResponses []ContactResponseDTO `json:"contact_responses"`
	BatteryLevel     *int                 `json:"battery_level,omitempty"`
	NetworkStatus    string               `json:"network_status,omitempty"`
	ResolvedAt       *time.Time           `json:"resolved_at,omitempty"`
	ResolvedBy       *uuid.UUID           `json:"resolved_by,omitempty"`
	ResolutionNotes  string               `json:"resolution_notes,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// TrailResponse DTO для ответа с обновленным треком
// @Description DTO для ответа с обновленным треком
type TrailResponse struct {
	IncidentID    uuid.UUID            `json:"incident_id"`
	LocationTrail []TrailPointResponse `json:"location_trail"`
}

// AcknowledgeResponse DTO с набором откликов контактов
// @Description DTO с набором откликов контактов
type AcknowledgeResponse struct {
	IncidentID       uuid.UUID            `json:"incident_id"`
	ContactResponses []ContactResponseDTO `json:"contact_responses"`
}

// BatchIngestResponse DTO с исходами обработки батча
// @Description DTO с исходами обработки батча
type BatchIngestResponse struct {
	CreatedCount int                    `json:"created_count"`
	Outcomes     []service.BatchOutcome `json:"outcomes"`
}
