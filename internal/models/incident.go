package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы инцидента. Граф допустимых переходов задан в пакете service.
const (
	StatusPending      = "pending"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
	StatusFalseAlarm   = "false_alarm"
)

// Источники тревоги
const (
	AlertTypeManual  = "manual"
	AlertTypeShake   = "shake"
	AlertTypeVoice   = "voice"
	AlertTypeTimer   = "timer"
	AlertTypeStealth = "stealth"
	AlertTypeNFC     = "nfc"
)

// Уровни тревоги
const (
	AlertLevelWarning  = "warning"
	AlertLevelUrgent   = "urgent"
	AlertLevelCritical = "critical"
)

// Point - географическая точка с необязательным адресом
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// TrailPoint - точка трека с серверной меткой времени
type TrailPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactResponse - отклик экстренного контакта на инцидент.
// Ключ уникальности - ContactID, повторный отклик перезаписывает предыдущий.
type ContactResponse struct {
	ContactID      string    `json:"contact_id"`
	Name           string    `json:"name,omitempty"`
	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
	Location       *Point    `json:"location,omitempty"`
	ETAMinutes     int       `json:"eta_minutes,omitempty"`
}

// Incident - центральная сущность: одна SOS-тревога и её состояние
type Incident struct {
	ID               uuid.UUID         `json:"id"`
	OwnerID          uuid.UUID         `json:"owner_id"`
	Status           string            `json:"status"`
	AlertType        string            `json:"alert_type"`
	AlertLevel       string            `json:"alert_level"`
	Message          string            `json:"message"`
	Location         *Point            `json:"location,omitempty"`
	LocationTrail    []TrailPoint      `json:"location_trail"`
	ContactResponses []ContactResponse `json:"contact_responses"`
	BatteryLevel     *int              `json:"battery_level,omitempty"`
	NetworkStatus    string            `json:"network_status,omitempty"`
	ResolvedAt       *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy       *uuid.UUID        `json:"resolved_by,omitempty"`
	ResolutionNotes  string            `json:"resolution_notes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ValidAlertType проверяет, что значение входит в перечень источников тревоги
func ValidAlertType(v string) bool {
	switch v {
	case AlertTypeManual, AlertTypeShake, AlertTypeVoice, AlertTypeTimer, AlertTypeStealth, AlertTypeNFC:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус конечным
func IsTerminal(status string) bool {
	return status == StatusResolved || status == StatusFalseAlarm
}

// AppendTrail добавляет точку в конец трека и обновляет последнюю известную локацию
func (i *Incident) AppendTrail(p TrailPoint) {
	i.LocationTrail = append(i.LocationTrail, p)
	i.Location = &Point{Latitude: p.Latitude, Longitude: p.Longitude, Address: p.Address}
}

// UpsertResponse записывает отклик контакта: существующая запись с тем же
// ContactID заменяется, новая добавляется в конец
func (i *Incident) UpsertResponse(r ContactResponse) {
	for idx := range i.ContactResponses {
		if i.ContactResponses[idx].ContactID == r.ContactID {
			i.ContactResponses[idx] = r
			return
		}
	}
	i.ContactResponses = append(i.ContactResponses, r)
}
