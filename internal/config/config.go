package config

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the suite starter configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Cluster ClusterConfig `yaml:"cluster"`
	ETOS    ETOSConfig    `yaml:"etos"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP server settings for the health/status surface
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	APIKeys []APIKey `yaml:"api_keys"`
}

// APIKey represents an API key for authentication
type APIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// KafkaConfig contains the inbound event bus settings
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// ClusterConfig contains cluster-API connection settings
type ClusterConfig struct {
	Host               string        `yaml:"host"`           // empty = in-cluster discovery
	Namespace          string        `yaml:"namespace"`      // empty = namespace file
	NamespaceFile      string        `yaml:"namespace_file"` // empty = service-account default
	BearerToken        string        `yaml:"bearer_token"`   // optional pre-configured token
	TokenFile          string        `yaml:"token_file"`
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

// ETOSConfig contains the rendering inputs: template, suite-runner image and
// the configmap names injected into every started suite
type ETOSConfig struct {
	TemplateFile                 string        `yaml:"template_file"`
	SuiteRunnerImage             string        `yaml:"suite_runner_image"`
	RunnerContainer              string        `yaml:"runner_container"`
	ETOSConfigMap                string        `yaml:"etos_configmap"`
	LogAreaConfigMap             string        `yaml:"log_area_configmap"`
	EnvironmentProviderConfigMap string        `yaml:"environment_provider_configmap"`
	DedupeTTL                    time.Duration `yaml:"dedupe_ttl"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills unset fields, falling back to the well-known ETOS
// environment variables where the deployment sets them directly
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "eiffel.tercc"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "suite-starter"
	}
	if c.Cluster.Timeout == 0 {
		c.Cluster.Timeout = 30 * time.Second
	}
	if c.ETOS.TemplateFile == "" {
		c.ETOS.TemplateFile = envOr("SUITE_RUNNER_TEMPLATE", "configs/esr_template.yaml")
	}
	if c.ETOS.SuiteRunnerImage == "" {
		c.ETOS.SuiteRunnerImage = os.Getenv("SUITE_RUNNER")
	}
	if c.ETOS.RunnerContainer == "" {
		c.ETOS.RunnerContainer = "etos-suite-runner"
	}
	if c.ETOS.ETOSConfigMap == "" {
		c.ETOS.ETOSConfigMap = os.Getenv("ETOS_CONFIGMAP")
	}
	if c.ETOS.LogAreaConfigMap == "" {
		c.ETOS.LogAreaConfigMap = os.Getenv("LOG_AREA_CONFIGMAP")
	}
	if c.ETOS.EnvironmentProviderConfigMap == "" {
		c.ETOS.EnvironmentProviderConfigMap = os.Getenv("ENVIRONMENT_PROVIDER_CONFIGMAP")
	}
	if c.ETOS.DedupeTTL == 0 {
		c.ETOS.DedupeTTL = time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks that everything required to start suites is present
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Kafka,
		validation.Field(&c.Kafka.Brokers, validation.Required),
		validation.Field(&c.Kafka.Topic, validation.Required),
		validation.Field(&c.Kafka.GroupID, validation.Required),
	); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}

	if err := validation.ValidateStruct(&c.ETOS,
		validation.Field(&c.ETOS.TemplateFile, validation.Required),
		validation.Field(&c.ETOS.SuiteRunnerImage, validation.Required),
		validation.Field(&c.ETOS.RunnerContainer, validation.Required),
	); err != nil {
		return fmt.Errorf("etos: %w", err)
	}

	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}

// ConfigMapNames returns the configmap names injected into every suite
// runner, skipping the ones this deployment leaves unset
func (c *Config) ConfigMapNames() []string {
	names := make([]string, 0, 3)
	for _, name := range []string{
		c.ETOS.ETOSConfigMap,
		c.ETOS.LogAreaConfigMap,
		c.ETOS.EnvironmentProviderConfigMap,
	} {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
