package notifier

import "github.com/google/uuid"

// Статусы попытки доставки одному получателю по одному каналу
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Recipient - получатель уведомления. Пустой адрес канала означает,
// что канал для этого получателя недоступен.
type Recipient struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PushToken string `json:"push_token,omitempty"`
}

// Job - эфемерное задание на рассылку. Живет только в очереди,
// после обработки остаются лишь логи исходов.
type Job struct {
	IncidentID uuid.UUID   `json:"incident_id"`
	OwnerID    uuid.UUID   `json:"owner_id"`
	Message    string      `json:"message"`
	Recipients []Recipient `json:"recipients"`
}

// Outcome - независимый исход одной попытки получатель×канал
type Outcome struct {
	ContactID string `json:"contact_id"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}
