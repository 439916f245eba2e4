package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/empowersafe/sos_alerting_system/internal/models"
	"github.com/empowersafe/sos_alerting_system/internal/service"
)

const incidentCacheTTL = 5 * time.Minute

const incidentColumns = `
	id,
	owner_id,
	status,
	alert_type,
	alert_level,
	message,
	location,
	location_trail,
	contact_responses,
	battery_level,
	network_status,
	resolved_at,
	resolved_by,
	resolution_notes,
	created_at,
	updated_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanIncident читает одну строку incidents в модель
func scanIncident(row rowScanner) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.OwnerID,
		&incident.Status,
		&incident.AlertType,
		&incident.AlertLevel,
		&incident.Message,
		&incident.Location,
		&incident.LocationTrail,
		&incident.ContactResponses,
		&incident.BatteryLevel,
		&incident.NetworkStatus,
		&incident.ResolvedAt,
		&incident.ResolvedBy,
		&incident.ResolutionNotes,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	// nil-слайсы сериализуются как null, в колонках jsonb храним массивы
	if incident.LocationTrail == nil {
		incident.LocationTrail = []models.TrailPoint{}
	}
	if incident.ContactResponses == nil {
		incident.ContactResponses = []models.ContactResponse{}
	}

	// Нулевой CreatedAt означает "сейчас"; офлайн-батч передает момент тревоги
	var createdAt *time.Time
	if !incident.CreatedAt.IsZero() {
		t := incident.CreatedAt
		createdAt = &t
	}

	query := `
		INSERT INTO incidents (owner_id, status, alert_type, alert_level, message, location, location_trail, contact_responses, battery_level, network_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW())) RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.OwnerID,
		incident.Status,
		incident.AlertType,
		incident.AlertLevel,
		incident.Message,
		incident.Location,
		incident.LocationTrail,
		incident.ContactResponses,
		incident.BatteryLevel,
		incident.NetworkStatus,
		createdAt,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE id = $1;`, incidentColumns)

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListByOwner возвращает инциденты владельца, новые первыми
func (r *IncidentRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*models.Incident, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM incidents
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2;`, incidentColumns)

	rows, err := r.db.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents by owner: %w", err)
	}
	defer rows.Close()

	return collectIncidents(rows)
}

// ListRecent возвращает последние инциденты всех владельцев
func (r *IncidentRepository) ListRecent(ctx context.Context, limit int) ([]*models.Incident, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM incidents
		ORDER BY created_at DESC
		LIMIT $1;`, incidentColumns)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent incidents: %w", err)
	}
	defer rows.Close()

	return collectIncidents(rows)
}

func collectIncidents(rows pgx.Rows) ([]*models.Incident, error) {
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// Update применяет мутацию к инциденту под блокировкой строки.
// SELECT ... FOR UPDATE сериализует конкурентные мутации одного инцидента,
// мутации разных инцидентов идут параллельно. Ошибка мутатора откатывает
// транзакцию и возвращается вызывающей стороне без обертки.
func (r *IncidentRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*models.Incident) error) (*models.Incident, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin incident update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE id = $1 FOR UPDATE;`, incidentColumns)
	incident, err := scanIncident(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock incident for update: %w", err)
	}

	if err := mutate(incident); err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE incidents SET
			status = $1,
			message = $2,
			location = $3,
			location_trail = $4,
			contact_responses = $5,
			resolved_at = $6,
			resolved_by = $7,
			resolution_notes = $8,
			updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at;
	`
	err = tx.QueryRow(ctx, updateQuery,
		incident.Status,
		incident.Message,
		incident.Location,
		incident.LocationTrail,
		incident.ContactResponses,
		incident.ResolvedAt,
		incident.ResolvedBy,
		incident.ResolutionNotes,
		incident.ID,
	).Scan(&incident.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update incident: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit incident update: %w", err)
	}

	// Кеш инвалидируется после коммита, best effort
	_ = r.InvalidateIncidentCache(ctx, id)
	return incident, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, incidentCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
