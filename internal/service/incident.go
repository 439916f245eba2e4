package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/empowersafe/sos_alerting_system/internal/config"
	"github.com/empowersafe/sos_alerting_system/internal/models"
	"github.com/empowersafe/sos_alerting_system/internal/notifier"
)

// IncidentRepository определяет контракт для работы с бд инцидентов.
// Update выполняет мутацию под эксклюзивной блокировкой записи: конкурентные
// мутации одного инцидента сериализуются, разных - идут параллельно.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*models.Incident, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Incident, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*models.Incident) error) (*models.Incident, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// ContactDirectory отдает экстренные контакты владельца для рассылки
type ContactDirectory interface {
	EmergencyContacts(ctx context.Context, ownerID uuid.UUID) ([]models.Contact, error)
}

// StatsRecorder инкрементирует счетчики пользователя атомарной дельтой.
// Вызовы fire-and-forget: ошибка логируется и не влияет на исход запроса.
type StatsRecorder interface {
	IncrementCounters(ctx context.Context, ownerID uuid.UUID, delta models.StatsDelta) error
}

// JobQueue ставит задание на рассылку уведомлений в очередь диспетчера
type JobQueue interface {
	Enqueue(ctx context.Context, job notifier.Job) error
}

// EventPublisher рассылает события жизненного цикла подключенным наблюдателям.
// Доставка best-effort, вызов не блокирует.
type EventPublisher interface {
	Publish(event models.BroadcastEvent)
}

// CreateIncidentInput - параметры создания инцидента.
// OccurredAt - момент срабатывания тревоги на устройстве; nil означает "сейчас".
// Офлайн-батч передает сюда метку времени события, чтобы догнанный инцидент
// датировался моментом SOS, а не моментом синхронизации.
type CreateIncidentInput struct {
	OwnerID       uuid.UUID
	Message       string
	Location      *models.Point
	AlertType     string
	AlertLevel    string
	BatteryLevel  *int
	NetworkStatus string
	OccurredAt    *time.Time
}

// AcknowledgeInput - параметры отклика экстренного контакта
type AcknowledgeInput struct {
	ContactID  string
	Name       string
	Location   *models.Point
	ETAMinutes int
}

// BatchEvent - одно событие офлайн-батча. Валидируется независимо от соседей.
type BatchEvent struct {
	OwnerID   string
	Latitude  *float64
	Longitude *float64
	Address   string
	Message   string
	Source    string
	Timestamp string
}

// BatchOutcome - результат обработки одного события батча
type BatchOutcome struct {
	Index      int        `json:"index"`
	IncidentID *uuid.UUID `json:"incident_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// BatchResult - итог обработки батча: частичный успех возвращается как данные
type BatchResult struct {
	CreatedCount int            `json:"created_count"`
	Outcomes     []BatchOutcome `json:"outcomes"`
}

// IncidentService определяет контракт бизнес-логики жизненного цикла инцидентов
type IncidentService interface {
	CreateIncident(ctx context.Context, input CreateIncidentInput) (*models.Incident, error)
	GetIncident(ctx context.Context, id, requesterID uuid.UUID) (*models.Incident, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*models.Incident, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Incident, error)
	AppendLocation(ctx context.Context, incidentID, ownerID uuid.UUID, point models.Point) ([]models.TrailPoint, error)
	TransitionStatus(ctx context.Context, incidentID, ownerID uuid.UUID, target, notes string) (*models.Incident, error)
	Acknowledge(ctx context.Context, incidentID uuid.UUID, input AcknowledgeInput) ([]models.ContactResponse, error)
	IngestBatch(ctx context.Context, events []BatchEvent) (*BatchResult, error)
}

type incidentService struct {
	repo     IncidentRepository
	contacts ContactDirectory
	stats    StatsRecorder
	jobs     JobQueue
	events   EventPublisher
	logger   *logrus.Logger
	cfg      *config.Config
}

func NewIncidentService(
	repo IncidentRepository,
	contacts ContactDirectory,
	stats StatsRecorder,
	jobs JobQueue,
	events EventPublisher,
	logger *logrus.Logger,
	cfg *config.Config,
) IncidentService {
	return &incidentService{
		repo:     repo,
		contacts: contacts,
		stats:    stats,
		jobs:     jobs,
		events:   events,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateIncident создает инцидент в статусе pending и запускает побочные
// эффекты входа в pending: счетчики владельца, задание на рассылку,
// событие incident_created. Побочные эффекты не влияют на исход создания.
func (s *incidentService) CreateIncident(ctx context.Context, input CreateIncidentInput) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "CreateIncident",
		"owner_id": input.OwnerID,
	})

	if input.OwnerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner id is required", ErrValidation)
	}

	incident := &models.Incident{
		OwnerID:       input.OwnerID,
		Status:        models.StatusPending,
		AlertType:     input.AlertType,
		AlertLevel:    input.AlertLevel,
		Message:       input.Message,
		Location:      input.Location,
		BatteryLevel:  input.BatteryLevel,
		NetworkStatus: input.NetworkStatus,
	}
	if incident.AlertType == "" {
		incident.AlertType = models.AlertTypeManual
	}
	if incident.AlertLevel == "" {
		incident.AlertLevel = models.AlertLevelUrgent
	}
	if incident.Message == "" {
		incident.Message = s.cfg.DefaultSOSMessage
	}
	occurred := time.Now().UTC()
	if input.OccurredAt != nil {
		occurred = input.OccurredAt.UTC()
		incident.CreatedAt = occurred
	}
	// Черновик с локацией сразу открывает трек
	if input.Location != nil {
		incident.LocationTrail = []models.TrailPoint{{
			Latitude:  input.Location.Latitude,
			Longitude: input.Location.Longitude,
			Address:   input.Location.Address,
			Timestamp: occurred,
		}}
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}
	log.WithField("incident_id", incident.ID).Info("Incident created")

	s.applyStatusEffects(ctx, incident, models.StatusPending)

	return incident, nil
}

// applyStatusEffects выполняет побочные эффекты успешного перехода статуса:
// счетчики владельца, событие наблюдателям и - только для входа в pending -
// постановку задания на рассылку. Ошибки логируются и не пробрасываются.
func (s *incidentService) applyStatusEffects(ctx context.Context, incident *models.Incident, target string) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"incident_id": incident.ID,
		"status":      target,
	})

	if err := s.stats.IncrementCounters(ctx, incident.OwnerID, statusDeltas[target]); err != nil {
		log.WithError(err).Warn("Failed to increment owner counters")
	}

	if target == models.StatusPending {
		s.enqueueNotification(ctx, incident)
		s.events.Publish(models.BroadcastEvent{
			Kind:       models.EventIncidentCreated,
			IncidentID: incident.ID,
			OwnerID:    incident.OwnerID,
			Status:     incident.Status,
			AlertType:  incident.AlertType,
			AlertLevel: incident.AlertLevel,
			Message:    incident.Message,
			Location:   incident.Location,
			Timestamp:  time.Now().UTC(),
		})
		return
	}

	s.events.Publish(models.BroadcastEvent{
		Kind:       models.EventStatusChanged,
		IncidentID: incident.ID,
		OwnerID:    incident.OwnerID,
		Status:     incident.Status,
		Timestamp:  time.Now().UTC(),
	})
}

// enqueueNotification собирает получателей из справочника контактов и ставит
// задание в очередь. Рассылку выполняет воркер, вызывающая сторона её не ждет.
func (s *incidentService) enqueueNotification(ctx context.Context, incident *models.Incident) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"incident_id": incident.ID,
	})

	contacts, err := s.contacts.EmergencyContacts(ctx, incident.OwnerID)
	if err != nil {
		log.WithError(err).Error("Failed to load emergency contacts, notification skipped")
		return
	}
	if len(contacts) == 0 {
		log.Warn("Owner has no emergency contacts, nothing to dispatch")
		return
	}

	recipients := make([]notifier.Recipient, 0, len(contacts))
	for _, c := range contacts {
		recipients = append(recipients, notifier.Recipient{
			ContactID: c.ID.String(),
			Name:      c.Name,
			Phone:     c.Phone,
			PushToken: c.PushToken,
		})
	}

	job := notifier.Job{
		IncidentID: incident.ID,
		OwnerID:    incident.OwnerID,
		Message:    incident.Message,
		Recipients: recipients,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		log.WithError(err).Error("Failed to enqueue notification job")
		return
	}
	log.WithField("recipients", len(recipients)).Info("Notification job enqueued")
}

// GetIncident возвращает инцидент по ID с проверкой владения
func (s *incidentService) GetIncident(ctx context.Context, id, requesterID uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	// Сначала пробуем кеш
	incident, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Cache lookup failed, falling back to database")
	}
	if incident == nil {
		incident, err = s.repo.GetByID(ctx, id)
		if err != nil {
			log.WithError(err).Warn("Failed to get incident from repository")
			return nil, fmt.Errorf("service: could not get incident: %w", err)
		}
		if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
			log.WithError(err).Warn("Failed to cache incident")
		}
	}

	// Чужой инцидент неотличим от несуществующего
	if incident.OwnerID != requesterID {
		return nil, fmt.Errorf("service: %w", ErrNotFound)
	}
	return incident, nil
}

// ListByOwner возвращает инциденты владельца, новые первыми
func (s *incidentService) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*models.Incident, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if limit < 1 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}

	incidents, err := s.repo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list incidents by owner")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}
	return incidents, nil
}

// ListRecent возвращает последние инциденты всех пользователей
// для операционных дашбордов, без проверки владения
func (s *incidentService) ListRecent(ctx context.Context, limit int) ([]*models.Incident, error) {
	if limit < 1 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}

	incidents, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list recent incidents")
		return nil, fmt.Errorf("service: could not list recent incidents: %w", err)
	}
	return incidents, nil
}

// AppendLocation добавляет точку в трек инцидента. Разрешено только в статусе
// pending: после закрытия или подтверждения трекинг остановлен.
func (s *incidentService) AppendLocation(ctx context.Context, incidentID, ownerID uuid.UUID, point models.Point) ([]models.TrailPoint, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "AppendLocation",
		"incident_id": incidentID,
	})

	updated, err := s.repo.Update(ctx, incidentID, func(inc *models.Incident) error {
		if inc.OwnerID != ownerID {
			return fmt.Errorf("service: %w", ErrConflict)
		}
		if inc.Status != models.StatusPending {
			return fmt.Errorf("%w: trail is closed in status %q", ErrInvalidState, inc.Status)
		}
		inc.AppendTrail(models.TrailPoint{
			Latitude:  point.Latitude,
			Longitude: point.Longitude,
			Address:   point.Address,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to append location")
		return nil, err
	}

	s.events.Publish(models.BroadcastEvent{
		Kind:       models.EventLocationUpdated,
		IncidentID: updated.ID,
		OwnerID:    updated.OwnerID,
		Location:   updated.Location,
		Timestamp:  time.Now().UTC(),
	})

	log.WithField("trail_len", len(updated.LocationTrail)).Info("Location appended")
	return updated.LocationTrail, nil
}

// TransitionStatus переводит инцидент в target по графу переходов.
// Вход в конечный статус фиксирует резолюцию.
func (s *incidentService) TransitionStatus(ctx context.Context, incidentID, ownerID uuid.UUID, target, notes string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "TransitionStatus",
		"incident_id": incidentID,
		"target":      target,
	})

	if _, known := statusTransitions[target]; !known || target == models.StatusPending {
		return nil, fmt.Errorf("%w: unknown target status %q", ErrValidation, target)
	}

	updated, err := s.repo.Update(ctx, incidentID, func(inc *models.Incident) error {
		if inc.OwnerID != ownerID {
			return fmt.Errorf("service: %w", ErrConflict)
		}
		if !canTransition(inc.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inc.Status, target)
		}
		inc.Status = target
		if models.IsTerminal(target) {
			now := time.Now().UTC()
			resolvedBy := ownerID
			inc.ResolvedAt = &now
			inc.ResolvedBy = &resolvedBy
			if notes != "" {
				inc.ResolutionNotes = notes
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to transition incident status")
		return nil, err
	}

	s.applyStatusEffects(ctx, updated, target)

	log.Info("Incident status changed")
	return updated, nil
}

// Acknowledge записывает отклик контакта. Владение не проверяется: откликается
// контакт, а не владелец. Статус инцидента не меняется, поздний отклик после
// закрытия тоже фиксируется.
func (s *incidentService) Acknowledge(ctx context.Context, incidentID uuid.UUID, input AcknowledgeInput) ([]models.ContactResponse, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Acknowledge",
		"incident_id": incidentID,
		"contact_id":  input.ContactID,
	})

	if input.ContactID == "" {
		return nil, fmt.Errorf("%w: contact id is required", ErrValidation)
	}

	updated, err := s.repo.Update(ctx, incidentID, func(inc *models.Incident) error {
		inc.UpsertResponse(models.ContactResponse{
			ContactID:      input.ContactID,
			Name:           input.Name,
			Acknowledged:   true,
			AcknowledgedAt: time.Now().UTC(),
			Location:       input.Location,
			ETAMinutes:     input.ETAMinutes,
		})
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record acknowledgment")
		return nil, err
	}

	s.events.Publish(models.BroadcastEvent{
		Kind:       models.EventContactAcknowledged,
		IncidentID: updated.ID,
		OwnerID:    updated.OwnerID,
		ContactID:  input.ContactID,
		ETAMinutes: input.ETAMinutes,
		Timestamp:  time.Now().UTC(),
	})

	log.Info("Contact acknowledgment recorded")
	return updated.ContactResponses, nil
}

// IngestBatch создает инциденты из офлайн-батча. События обрабатываются
// независимо и параллельно: ошибка одного события фиксируется в его исходе
// и не прерывает остальные.
func (s *incidentService) IngestBatch(ctx context.Context, events []BatchEvent) (*BatchResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "IngestBatch",
		"events":  len(events),
	})

	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no events provided", ErrValidation)
	}

	result := &BatchResult{Outcomes: make([]BatchOutcome, len(events))}
	var wg sync.WaitGroup
	for i := range events {
		wg.Add(1)
		go func(idx int, event BatchEvent) {
			defer wg.Done()
			result.Outcomes[idx] = s.ingestOne(ctx, idx, event)
		}(i, events[i])
	}
	wg.Wait()

	for _, out := range result.Outcomes {
		if out.Error == "" {
			result.CreatedCount++
		}
	}

	log.WithField("created", result.CreatedCount).Info("Batch ingestion completed")
	return result, nil
}

// ingestOne валидирует и создает инцидент одного события батча
func (s *incidentService) ingestOne(ctx context.Context, idx int, event BatchEvent) BatchOutcome {
	outcome := BatchOutcome{Index: idx}

	if event.OwnerID == "" {
		outcome.Error = "owner id is required"
		return outcome
	}
	ownerID, err := uuid.Parse(event.OwnerID)
	if err != nil {
		outcome.Error = fmt.Sprintf("malformed owner id: %v", err)
		return outcome
	}
	var occurredAt *time.Time
	if event.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, event.Timestamp)
		if err != nil {
			outcome.Error = fmt.Sprintf("malformed timestamp: %v", err)
			return outcome
		}
		occurredAt = &ts
	}

	input := CreateIncidentInput{
		OwnerID:    ownerID,
		Message:    event.Message,
		OccurredAt: occurredAt,
	}
	// Источник офлайн-события совпадает с типом тревоги, если он известен
	if models.ValidAlertType(event.Source) {
		input.AlertType = event.Source
	}
	if event.Latitude != nil && event.Longitude != nil {
		input.Location = &models.Point{
			Latitude:  *event.Latitude,
			Longitude: *event.Longitude,
			Address:   event.Address,
		}
	}

	incident, err := s.CreateIncident(ctx, input)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.IncidentID = &incident.ID
	return outcome
}
