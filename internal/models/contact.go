package models

import "github.com/google/uuid"

// Contact - экстренный контакт пользователя из справочника.
// Phone используется SMS-каналом, PushToken - push-каналом;
// пустой адрес означает, что канал для контакта недоступен.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	PushToken string    `json:"push_token,omitempty"`
	Priority  int       `json:"priority"`
}

// StatsDelta - атомарное приращение счетчиков пользователя
type StatsDelta struct {
	Alerts      int `json:"alerts,omitempty"`
	CheckIns    int `json:"check_ins,omitempty"`
	SafetyScore int `json:"safety_score,omitempty"`
}
