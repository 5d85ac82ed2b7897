package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Prompt       PromptConfig       `mapstructure:"prompt"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MaxStreamDuration time.Duration `mapstructure:"max_stream_duration"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ProvidersConfig struct {
	Google     ProviderConfig `mapstructure:"google"`
	OpenRouter ProviderConfig `mapstructure:"openrouter"`
}

type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// nil означает "включён, если задан ключ"
	Enabled *bool `mapstructure:"enabled"`
}

// IsEnabled провайдер доступен: ключ задан и он не выключен явно
func (p ProviderConfig) IsEnabled() bool {
	if strings.TrimSpace(p.APIKey) == "" {
		return false
	}
	if p.Enabled != nil && !*p.Enabled {
		return false
	}
	return true
}

type RegistrationConfig struct {
	CheckURL string        `mapstructure:"check_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type PromptConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ORACLE_CHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Устанавливаем значения по умолчанию
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Конфиг-файл опционален: всё важное есть в дефолтах и env
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Ключи провайдеров можно задать и привычными переменными
	if strings.TrimSpace(config.Providers.Google.APIKey) == "" {
		config.Providers.Google.APIKey = viper.GetString("GEMINI_API_KEY")
	}
	if strings.TrimSpace(config.Providers.OpenRouter.APIKey) == "" {
		config.Providers.OpenRouter.APIKey = viper.GetString("OPENROUTER_API_KEY")
	}

	// Валидация критических параметров
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.max_stream_duration", "30s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Provider defaults
	viper.SetDefault("providers.google.timeout", "60s")
	viper.SetDefault("providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("providers.openrouter.timeout", "60s")

	// Registration defaults
	viper.SetDefault("registration.check_url", "https://dombyta-shoes.ru/api/check-registration.php")
	viper.SetDefault("registration.timeout", "10s")

	// Prompt defaults
	viper.SetDefault("prompt.api_url", "https://dombyta-shoes.ru/api/get-prompt.php")
	viper.SetDefault("prompt.timeout", "10s")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.MaxStreamDuration <= 0 {
		return fmt.Errorf("max stream duration must be positive: %s", config.Server.MaxStreamDuration)
	}

	if strings.TrimSpace(config.Registration.CheckURL) == "" {
		return fmt.Errorf("registration check URL is required")
	}

	if strings.TrimSpace(config.Prompt.APIURL) == "" {
		return fmt.Errorf("prompt API URL is required")
	}

	// Сервер стартует и без ключей: провайдеры без ключа просто
	// недоступны, запросы к ним получают 404
	return nil
}
