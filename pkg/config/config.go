package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Kafka     KafkaConfig
	Outbox    OutboxRelayConfig
	Gateway   GatewayConfig
	AI        AIConfig
	Screening ScreeningConfig
	Workflow  WorkflowConfig
}

type ServerConfig struct {
	HTTPPort         int           `mapstructure:"http_port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	ClientID   string   `mapstructure:"client_id"`
	EventTopic string   `mapstructure:"event_topic"`
	DLQTopic   string   `mapstructure:"dlq_topic"`
}

type OutboxRelayConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// GatewayConfig points at the serverless functions that perform side effects.
type GatewayConfig struct {
	BackgroundCheckURL string        `mapstructure:"background_check_url"`
	NotificationURL    string        `mapstructure:"notification_url"`
	APIKey             string        `mapstructure:"api_key"`
	Timeout            time.Duration `mapstructure:"timeout"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
}

type AIConfig struct {
	Provider            string        `mapstructure:"provider"` // openai or vertex
	Endpoint            string        `mapstructure:"endpoint"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	Temperature         float32       `mapstructure:"temperature"`
	Timeout             time.Duration `mapstructure:"timeout"`
	GoogleCloudProject  string        `mapstructure:"google_cloud_project"`
	GoogleCloudLocation string        `mapstructure:"google_cloud_location"`
}

type ScreeningConfig struct {
	DefaultMinScore int `mapstructure:"default_min_score"`
	Concurrency     int `mapstructure:"concurrency"`
}

type WorkflowConfig struct {
	AllowHRRejection bool `mapstructure:"allow_hr_rejection"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/offerflow/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("OFFERFLOW")
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.operation_timeout", "60s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "offerflow")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("kafka.client_id", "offerflow-outbox-relay")
	v.SetDefault("kafka.event_topic", "offerflow.offer.events")
	v.SetDefault("kafka.dlq_topic", "offerflow.offer.events.dlq")
	v.SetDefault("outbox.poll_interval", "5s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("gateway.timeout", "15s")
	v.SetDefault("gateway.idempotency_ttl", "72h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.google_cloud_location", "us-central1")
	v.SetDefault("screening.default_min_score", 70)
	v.SetDefault("screening.concurrency", 4)
	v.SetDefault("workflow.allow_hr_rejection", false)
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
