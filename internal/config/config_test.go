package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
kafka:
  brokers:
    - localhost:9092
etos:
  template_file: configs/esr_template.yaml
  suite_runner_image: registry/suite-runner:1.0.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "eiffel.tercc", cfg.Kafka.Topic)
	assert.Equal(t, "suite-starter", cfg.Kafka.GroupID)
	assert.Equal(t, "etos-suite-runner", cfg.ETOS.RunnerContainer)
	assert.Equal(t, time.Hour, cfg.ETOS.DedupeTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_BROKER", "kafka.etos.svc:9092")
	t.Setenv("TEST_RUNNER_IMAGE", "registry/suite-runner:pinned")

	path := writeConfig(t, `
kafka:
  brokers:
    - ${TEST_BROKER}
etos:
  template_file: configs/esr_template.yaml
  suite_runner_image: ${TEST_RUNNER_IMAGE}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka.etos.svc:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "registry/suite-runner:pinned", cfg.ETOS.SuiteRunnerImage)
}

func TestLoad_EnvironmentFallbacks(t *testing.T) {
	t.Setenv("SUITE_RUNNER", "registry/suite-runner:from-env")
	t.Setenv("ETOS_CONFIGMAP", "etos-config")
	t.Setenv("LOG_AREA_CONFIGMAP", "log-area-config")
	t.Setenv("ENVIRONMENT_PROVIDER_CONFIGMAP", "env-provider-config")

	path := writeConfig(t, `
kafka:
  brokers:
    - localhost:9092
etos:
  template_file: configs/esr_template.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "registry/suite-runner:from-env", cfg.ETOS.SuiteRunnerImage)
	assert.Equal(t, []string{"etos-config", "log-area-config", "env-provider-config"}, cfg.ConfigMapNames())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RequiresBrokersAndImage(t *testing.T) {
	path := writeConfig(t, `
etos:
  template_file: configs/esr_template.yaml
  suite_runner_image: registry/suite-runner:1.0.0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}

func TestValidate_RejectsBadPort(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 99999
kafka:
  brokers:
    - localhost:9092
etos:
  template_file: configs/esr_template.yaml
  suite_runner_image: registry/suite-runner:1.0.0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server")
}

func TestConfigMapNames_SkipsUnset(t *testing.T) {
	cfg := &Config{}
	cfg.ETOS.ETOSConfigMap = "etos-config"
	cfg.ETOS.EnvironmentProviderConfigMap = "env-provider-config"

	assert.Equal(t, []string{"etos-config", "env-provider-config"}, cfg.ConfigMapNames())
}
