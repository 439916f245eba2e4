package service

import "github.com/empowersafe/sos_alerting_system/internal/models"

// Граф допустимых переходов статуса. Конечные статусы переходов не имеют.
var statusTransitions = map[string][]string{
	models.StatusPending:      {models.StatusAcknowledged, models.StatusResolved, models.StatusFalseAlarm},
	models.StatusAcknowledged: {models.StatusResolved, models.StatusFalseAlarm},
	models.StatusResolved:     {},
	models.StatusFalseAlarm:   {},
}

// canTransition проверяет достижимость target из current по графу
func canTransition(current, target string) bool {
	for _, allowed := range statusTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Приращения счетчиков владельца по целевому статусу перехода.
// Создание инцидента (вход в pending) списывает очки безопасности,
// закрытие частично или полностью их возвращает.
var statusDeltas = map[string]models.StatsDelta{
	models.StatusPending:      {Alerts: 1, SafetyScore: -5},
	models.StatusAcknowledged: {SafetyScore: 1},
	models.StatusResolved:     {SafetyScore: 3},
	models.StatusFalseAlarm:   {SafetyScore: 5},
}
