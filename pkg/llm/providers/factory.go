package providers

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Factory struct {
	logger *zap.Logger
}

func NewFactory(logger *zap.Logger) ProviderFactory {
	return &Factory{
		logger: logger,
	}
}

func (f *Factory) CreateProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "google":
		return NewGoogleProvider(config, f.logger)
	case "openrouter":
		return NewOpenRouterProvider(config, f.logger)
	default:
		return nil, fmt.Errorf("unsupported provider: %s (supported: google, openrouter)", config.Provider)
	}
}

func (f *Factory) GetSupportedProviders() []string {
	return []string{"google", "openrouter"}
}
