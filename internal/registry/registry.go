package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// ToolCallType способ представления tool-вызовов в потоке
type ToolCallType string

const (
	ToolCallNative ToolCallType = "native"
	ToolCallManual ToolCallType = "manual"
)

// ModelDescriptor статическое описание модели и её провайдера.
// Неизменяемо после загрузки; уникально по паре (ID, ProviderID).
type ModelDescriptor struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Provider      string       `json:"provider"`
	ProviderID    string       `json:"providerId"`
	Enabled       bool         `json:"enabled"`
	ToolCallType  ToolCallType `json:"toolCallType"`
	ToolCallModel string       `json:"toolCallModel,omitempty"`
}

// DefaultModel жёстко заданный дескриптор по умолчанию.
// Используется когда клиентская настройка отсутствует или не парсится.
func DefaultModel() ModelDescriptor {
	return ModelDescriptor{
		ID:           "gemini-2.0-flash",
		Name:         "Gemini 2.0 Flash",
		Provider:     "Google Generative AI",
		ProviderID:   "google",
		Enabled:      true,
		ToolCallType: ToolCallManual,
	}
}

//go:embed default_models.json
var defaultModelsPayload []byte

type modelsFile struct {
	Models []ModelDescriptor `json:"models"`
}

// Registry реестр доступных моделей. Загружается один раз при старте
// из доверенного статического payload и далее только читается.
type Registry struct {
	models []ModelDescriptor
	logger *zap.Logger
}

// Load читает и валидирует встроенный список моделей.
// Невалидные дескрипторы отбрасываются по одному, список деградирует
// до валидного подмножества. Ошибка только если payload нечитаем структурно.
func Load(logger *zap.Logger) (*Registry, error) {
	return LoadFrom(defaultModelsPayload, logger)
}

// LoadFrom то же самое для произвольного payload (используется в тестах).
func LoadFrom(payload []byte, logger *zap.Logger) (*Registry, error) {
	var file modelsFile
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode models payload: %w", err)
	}

	valid := make([]ModelDescriptor, 0, len(file.Models))
	for _, m := range file.Models {
		if err := validateDescriptor(m); err != nil {
			logger.Warn("Dropping invalid model descriptor",
				zap.String("model_id", m.ID),
				zap.String("provider_id", m.ProviderID),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, m)
	}

	logger.Info("Model registry loaded",
		zap.Int("total", len(file.Models)),
		zap.Int("valid", len(valid)),
	)

	return &Registry{models: valid, logger: logger}, nil
}

func validateDescriptor(m ModelDescriptor) error {
	if m.ID == "" {
		return fmt.Errorf("model id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if m.Provider == "" {
		return fmt.Errorf("provider display name is required")
	}
	if m.ProviderID == "" {
		return fmt.Errorf("provider id is required")
	}
	if m.ToolCallType != ToolCallNative && m.ToolCallType != ToolCallManual {
		return fmt.Errorf("unknown tool call type: %q", m.ToolCallType)
	}
	return nil
}

// ListModels возвращает копию списка. Чистая и детерминированная.
func (r *Registry) ListModels() []ModelDescriptor {
	out := make([]ModelDescriptor, len(r.models))
	copy(out, r.models)
	return out
}

// FindModel ищет дескриптор по паре (id, providerId).
func (r *Registry) FindModel(id, providerID string) (ModelDescriptor, bool) {
	for _, m := range r.models {
		if m.ID == id && m.ProviderID == providerID {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}
