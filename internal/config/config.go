package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type HardwareAuthConfig struct {
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	SessionRetention time.Duration `mapstructure:"session_retention"`
	CleanupSchedule  string        `mapstructure:"cleanup_schedule"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
}

// MQTTConfig configures device-topic fan-out. Publishing is disabled
// when broker_url is empty.
type MQTTConfig struct {
	BrokerURL      string        `mapstructure:"broker_url"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	QoS            int           `mapstructure:"qos"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type Config struct {
	DatabaseURL    string             `mapstructure:"database_url"`
	ServerPort     string             `mapstructure:"server_port"`
	JWTSecret      string             `mapstructure:"jwt_secret"`
	AllowedOrigins []string           `mapstructure:"allowed_origins"`
	HardwareAuth   HardwareAuthConfig `mapstructure:"hardware_auth"`
	MQTT           MQTTConfig         `mapstructure:"mqtt"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if config.HardwareAuth.TokenTTL == 0 {
		config.HardwareAuth.TokenTTL = 5 * time.Minute
	}
	if config.HardwareAuth.SessionRetention == 0 {
		config.HardwareAuth.SessionRetention = 24 * time.Hour
	}
	if config.HardwareAuth.CleanupSchedule == "" {
		config.HardwareAuth.CleanupSchedule = "@every 15m"
	}
	if config.HardwareAuth.StaleAfter == 0 {
		config.HardwareAuth.StaleAfter = time.Hour
	}

	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "rescue-api"
	}
	if config.MQTT.QoS == 0 {
		config.MQTT.QoS = 1
	}
	if config.MQTT.PublishTimeout == 0 {
		config.MQTT.PublishTimeout = 5 * time.Second
	}

	return &config
}
