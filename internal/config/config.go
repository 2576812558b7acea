package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Integration IntegrationConfig
	Cards       CardsConfig
	Outbound    OutboundConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path string
}

type IntegrationConfig struct {
	Key       string
	Name      string
	PublicURL string
}

type CardsConfig struct {
	APIURL string
}

type OutboundConfig struct {
	TimeoutMS int
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("manabot_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("manabot_port", 8080)
	v.SetDefault("manabot_db_path", "data/manabot")
	v.SetDefault("manabot_integration_key", "com.fr0stylo.manabot")
	v.SetDefault("manabot_integration_name", "Manabot")
	v.SetDefault("manabot_public_url", "")
	v.SetDefault("manabot_card_api_url", "https://api.magicthegathering.io/v1/cards")
	v.SetDefault("manabot_http_timeout_ms", 10000)

	env := resolveEnvironment(v)
	port := v.GetInt("manabot_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid MANABOT_PORT: %d", port)
	}

	timeout := v.GetInt("manabot_http_timeout_ms")
	if timeout <= 0 {
		timeout = 10000
	}
	if timeout > 60000 {
		timeout = 60000
	}

	cfg := Config{
		Environment: env,
		Server:      ServerConfig{Port: port},
		Database: DatabaseConfig{
			Path: strings.TrimSpace(v.GetString("manabot_db_path")),
		},
		Integration: IntegrationConfig{
			Key:       strings.TrimSpace(v.GetString("manabot_integration_key")),
			Name:      strings.TrimSpace(v.GetString("manabot_integration_name")),
			PublicURL: strings.TrimRight(strings.TrimSpace(v.GetString("manabot_public_url")), "/"),
		},
		Cards: CardsConfig{
			APIURL: strings.TrimSpace(v.GetString("manabot_card_api_url")),
		},
		Outbound: OutboundConfig{TimeoutMS: timeout},
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/manabot"
	}
	if cfg.Integration.Key == "" {
		return Config{}, fmt.Errorf("MANABOT_INTEGRATION_KEY must not be empty")
	}
	if cfg.Cards.APIURL == "" {
		return Config{}, fmt.Errorf("MANABOT_CARD_API_URL must not be empty")
	}
	if !cfg.IsLocalDevelopment() && cfg.Integration.PublicURL == "" {
		return Config{}, fmt.Errorf("MANABOT_PUBLIC_URL is required outside local/dev environments")
	}
	if cfg.Integration.PublicURL == "" {
		cfg.Integration.PublicURL = fmt.Sprintf("http://localhost:%d", port)
	}

	return cfg, nil
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// OutboundTimeout bounds every outbound HTTP call made by the service.
func (c Config) OutboundTimeout() time.Duration {
	return time.Duration(c.Outbound.TimeoutMS) * time.Millisecond
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"manabot_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
