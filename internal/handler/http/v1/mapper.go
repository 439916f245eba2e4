package v1

import (
	"github.com/empowersafe/sos_alerting_system/internal/models"
)

// locationDTOToPoint преобразует DTO точки в доменную модель
func locationDTOToPoint(dto *LocationDTO) *models.Point {
	if dto == nil {
		return nil
	}
	return &models.Point{
		Latitude:  dto.Latitude,
		Longitude: dto.Longitude,
		Address:   dto.Address,
	}
}

func pointToLocationDTO(p *models.Point) *LocationDTO {
	if p == nil {
		return nil
	}
	return &LocationDTO{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Address:   p.Address,
	}
}

func trailToResponses(trail []models.TrailPoint) []TrailPointResponse {
	out := make([]TrailPointResponse, len(trail))
	for i, p := range trail {
		out[i] = TrailPointResponse{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Address:   p.Address,
			Timestamp: p.Timestamp,
		}
	}
	return out
}

func responsesToDTOs(responses []models.ContactResponse) []ContactResponseDTO {
	out := make([]ContactResponseDTO, len(responses))
	for i, r := range responses {
		out[i] = ContactResponseDTO{
			ContactID:      r.ContactID,
			Name:           r.Name,
			Acknowledged:   r.Acknowledged,
			AcknowledgedAt: r.AcknowledgedAt,
			Location:       pointToLocationDTO(r.Location),
			ETAMinutes:     r.ETAMinutes,
		}
	}
	return out
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:               model.ID,
		OwnerID:          model.OwnerID,
		Status:           model.Status,
		AlertType:        model.AlertType,
		AlertLevel:       model.AlertLevel,
		Message:          model.Message,
		Location:         pointToLocationDTO(model.Location),
		LocationTrail:    trailToResponses(model.LocationTrail),
		ContactResponses: responsesToDTOs(model.ContactResponses),
		BatteryLevel:     model.BatteryLevel,
		NetworkStatus:    model.NetworkStatus,
		ResolvedAt:       model.ResolvedAt,
		ResolvedBy:       model.ResolvedBy,
		ResolutionNotes:  model.ResolutionNotes,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}
