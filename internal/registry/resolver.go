package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Ошибки резолвера. Обе несут providerId для клиентского сообщения.
type ProviderDisabledError struct {
	ProviderID string
}

func (e *ProviderDisabledError) Error() string {
	return fmt.Sprintf("provider is not enabled: %s", e.ProviderID)
}

type ModelDisabledError struct {
	ModelID    string
	ProviderID string
}

func (e *ModelDisabledError) Error() string {
	return fmt.Sprintf("model is not enabled: %s (%s)", e.ModelID, e.ProviderID)
}

// EnabledFunc оракул включённости провайдера. Значение выводится из
// окружения/конфига и может меняться между деплоями, поэтому резолвер
// не кеширует результат между запросами.
type EnabledFunc func(providerID string) bool

// Resolver проверяет, можно ли обслужить запрос выбранной моделью.
type Resolver struct {
	providerEnabled EnabledFunc
	logger          *zap.Logger
}

func NewResolver(providerEnabled EnabledFunc, logger *zap.Logger) *Resolver {
	return &Resolver{
		providerEnabled: providerEnabled,
		logger:          logger,
	}
}

// ParseSelection разбирает клиентскую настройку выбранной модели.
// Настройка — ненадёжная подсказка (cookie можно подделать или испортить):
// пустое или некорректное значение молча заменяется дескриптором по умолчанию,
// а доверенные поля всё равно перепроверяются в Resolve.
func (r *Resolver) ParseSelection(raw string) ModelDescriptor {
	if strings.TrimSpace(raw) == "" {
		return DefaultModel()
	}

	var m ModelDescriptor
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		r.logger.Warn("Failed to parse selected model, falling back to default",
			zap.Error(err),
		)
		return DefaultModel()
	}

	if err := validateDescriptor(m); err != nil {
		r.logger.Warn("Selected model descriptor is invalid, falling back to default",
			zap.String("model_id", m.ID),
			zap.Error(err),
		)
		return DefaultModel()
	}

	return m
}

// Resolve выполняется заново на каждый запрос: включённость провайдера
// может измениться между деплоями без ведома клиента.
func (r *Resolver) Resolve(m ModelDescriptor) (ModelDescriptor, error) {
	if !r.providerEnabled(m.ProviderID) {
		r.logger.Debug("Provider is disabled",
			zap.String("provider_id", m.ProviderID),
		)
		return ModelDescriptor{}, &ProviderDisabledError{ProviderID: m.ProviderID}
	}

	if !m.Enabled {
		r.logger.Debug("Model is disabled",
			zap.String("model_id", m.ID),
			zap.String("provider_id", m.ProviderID),
		)
		return ModelDescriptor{}, &ModelDisabledError{ModelID: m.ID, ProviderID: m.ProviderID}
	}

	return m, nil
}
