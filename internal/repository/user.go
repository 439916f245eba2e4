package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/empowersafe/sos_alerting_system/internal/models"
)

// UserRepository - справочник контактов и счетчики пользователей.
// Реализует service.ContactDirectory и service.StatsRecorder.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// EmergencyContacts возвращает экстренные контакты пользователя по приоритету
func (r *UserRepository) EmergencyContacts(ctx context.Context, ownerID uuid.UUID) ([]models.Contact, error) {
	query := `
		SELECT id, user_id, name, phone, push_token, priority
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY priority, name;
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		var c models.Contact
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.PushToken, &c.Priority)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emergency contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error contacts iteration: %w", err)
	}
	return contacts, nil
}

// IncrementCounters применяет дельту счетчиков одним атомарным UPDATE.
// Конкурентные переходы нескольких инцидентов одного владельца не теряют
// приращений: read-modify-write здесь нет.
func (r *UserRepository) IncrementCounters(ctx context.Context, ownerID uuid.UUID, delta models.StatsDelta) error {
	query := `
		UPDATE users SET
			total_alerts = total_alerts + $2,
			total_check_ins = total_check_ins + $3,
			safety_score = safety_score + $4,
			updated_at = NOW()
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, ownerID, delta.Alerts, delta.CheckIns, delta.SafetyScore)
	if err != nil {
		return fmt.Errorf("failed to increment user counters: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found for counter update", ownerID)
	}
	return nil
}
