package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/empowersafe/sos_alerting_system/internal/config"
	"github.com/empowersafe/sos_alerting_system/internal/hub"
	"github.com/empowersafe/sos_alerting_system/internal/models"
	"github.com/empowersafe/sos_alerting_system/internal/service"
)

type Handler struct {
	incidentService service.IncidentService
	eventHub        *hub.Hub
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(incidentService service.IncidentService, eventHub *hub.Hub, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		eventHub:        eventHub,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// mapServiceError переводит доменную ошибку в HTTP-ответ
func mapServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "incident belongs to another user"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Create a new SOS incident
// @Description Create a new SOS incident. Notification fan-out and realtime broadcast happen asynchronously. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input CreateIncidentRequest
	log := h.logger.WithField("method", "createIncident")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, err := uuid.Parse(input.OwnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner ID"})
		return
	}

	incident, err := h.incidentService.CreateIncident(c.Request.Context(), service.CreateIncidentInput{
		OwnerID:       ownerID,
		Message:       input.Message,
		Location:      locationDTOToPoint(input.Location),
		AlertType:     input.AlertType,
		AlertLevel:    input.AlertLevel,
		BatteryLevel:  input.BatteryLevel,
		NetworkStatus: input.NetworkStatus,
	})
	if err != nil {
		log.WithError(err).Error("Failed to create incident in service")
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary List incidents of an owner
// @Description Get the owner's incidents, most recent first, bounded by limit. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param owner_id query string true "Owner ID"
// @Param limit query int false "Maximum number of items" default(50)
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Missing or invalid owner ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner ID"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	incidents, err := h.incidentService.ListByOwner(c.Request.Context(), ownerID, limit)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary List recent incidents across all owners
// @Description Get the most recent incidents regardless of owner, for operational dashboards. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "Maximum number of items" default(50)
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/latest [get]
func (h *Handler) latestIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "latestIncidents")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	incidents, err := h.incidentService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Failed to list recent incidents from service")
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident. The requester must own the incident. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param owner_id query string true "Requester (owner) ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident or owner ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id, ownerID)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Transition incident status
// @Description Move the incident along the status graph. Entering a terminal status records the resolution. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param transition body TransitionStatusRequest true "Status transition request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Ownership conflict or invalid transition"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/status [patch]
func (h *Handler) transitionStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "transitionStatus").WithField("id", id)

	var input TransitionStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, err := uuid.Parse(input.OwnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner ID"})
		return
	}

	incident, err := h.incidentService.TransitionStatus(c.Request.Context(), id, ownerID, input.Status, input.Notes)
	if err != nil {
		log.WithError(err).Warn("Failed to transition incident status in service")
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Append a location to the incident trail
// @Description Append a tracked point while the incident is pending. The trail is append-only and chronologically ordered. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param location body AppendLocationRequest true "Location append request"
// @Success 200 {object} TrailResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Ownership conflict"
// @Failure 422 {object} map[string]string "Trail is closed for the current status"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/location [post]
func (h *Handler) appendLocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "appendLocation").WithField("id", id)

	var input AppendLocationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, err := uuid.Parse(input.OwnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner ID"})
		return
	}

	trail, err := h.incidentService.AppendLocation(c.Request.Context(), id, ownerID, models.Point{
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Address:   input.Address,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to append location in service")
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, TrailResponse{IncidentID: id, LocationTrail: trailToResponses(trail)})
}

// @Summary Record a contact acknowledgment
// @Description Record an emergency contact's response. Allowed in any incident status, repeated response from the same contact replaces the previous one. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param acknowledgment body AcknowledgeRequest true "Acknowledgment request"
// @Success 200 {object} AcknowledgeResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/acknowledge [post]
func (h *Handler) acknowledge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "acknowledge").WithField("id", id)

	var input AcknowledgeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	responses, err := h.incidentService.Acknowledge(c.Request.Context(), id, service.AcknowledgeInput{
		ContactID:  input.ContactID,
		Name:       input.ContactName,
		Location:   locationDTOToPoint(input.Location),
		ETAMinutes: input.ETAMinutes,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record acknowledgment in service")
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, AcknowledgeResponse{IncidentID: id, ContactResponses: responsesToDTOs(responses)})
}

// @Summary Ingest a batch of offline SOS events
// @Description Create incidents from events collected while the device was offline. Events are validated independently, the response reports per-event outcomes. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param batch body BatchIngestRequest true "Batch of offline events"
// @Success 200 {object} BatchIngestResponse
// @Failure 400 {object} map[string]string "Empty batch or invalid request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/batch [post]
func (h *Handler) ingestBatch(c *gin.Context) {
	var input BatchIngestRequest
	log := h.logger.WithField("method", "ingestBatch")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := make([]service.BatchEvent, len(input.Events))
	for i, e := range input.Events {
		events[i] = service.BatchEvent{
			OwnerID:   e.OwnerID,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			Address:   e.Address,
			Message:   e.Message,
			Source:    e.Source,
			Timestamp: e.Timestamp,
		}
	}

	result, err := h.incidentService.IngestBatch(c.Request.Context(), events)
	if err != nil {
		log.WithError(err).Error("Failed to ingest batch in service")
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, BatchIngestResponse{CreatedCount: result.CreatedCount, Outcomes: result.Outcomes})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
