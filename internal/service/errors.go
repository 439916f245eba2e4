package service

import "errors"

// Ошибки доменного уровня. Хендлер сопоставляет их с HTTP-кодами через errors.Is.
// Ошибки отдельных получателей уведомлений и отдельных событий батча в эту
// таксономию не входят: они возвращаются как данные, а не как ошибки.
var (
	// ErrValidation - некорректный или неполный вход, отклонен до любой мутации
	ErrValidation = errors.New("validation error")

	// ErrNotFound - инцидент не существует
	ErrNotFound = errors.New("incident not found")

	// ErrConflict - инцидент принадлежит другому пользователю
	ErrConflict = errors.New("incident ownership conflict")

	// ErrInvalidTransition - целевой статус недостижим из текущего
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState - операция запрещена в текущем статусе инцидента
	ErrInvalidState = errors.New("operation not allowed in current incident status")
)
