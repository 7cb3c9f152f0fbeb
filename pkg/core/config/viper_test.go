package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViper_ReadsFile(t *testing.T) {
	// Arrange
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
kafka:
  brokers: localhost:9092
  enable-producer: true
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

	// Act
	v, overlay, err := newViper(FilePath(configFile), "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "localhost:9092", v.GetString("kafka.brokers"))
	assert.True(t, v.GetBool("kafka.enable-producer"))
	assert.Empty(t, overlay)
}

func TestNewViper_FileNotFound(t *testing.T) {
	// Act
	v, _, err := newViper("/nonexistent/path/config.yaml", "")

	// Assert
	require.Error(t, err)
	assert.Nil(t, v)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNewViper_EnvOverride(t *testing.T) {
	// Arrange
	t.Setenv("KAFKA_ENABLE_CONSUMER", "false")

	// Act
	v, _, err := newViper("", "staging")

	// Assert
	require.NoError(t, err)
	assert.False(t, v.GetBool("kafka.enable-consumer"))
	assert.Equal(t, "false", v.GetString("kafka.enable-consumer"))
}

func TestResolveConfigPath(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		t.Setenv(envConfigFile, "/from/env.yaml")
		assert.Equal(t, FilePath(""), resolveConfigPath(&viperConfig{noConfigFile: true}))
	})

	t.Run("explicit path wins over env", func(t *testing.T) {
		t.Setenv(envConfigFile, "/from/env.yaml")
		path := "/explicit.yaml"
		assert.Equal(t, FilePath(path), resolveConfigPath(&viperConfig{configPath: &path}))
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv(envConfigFile, "/from/env.yaml")
		assert.Equal(t, FilePath("/from/env.yaml"), resolveConfigPath(&viperConfig{}))
	})
}

func TestNewViper_MergesEnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(base, []byte(`
kafka:
  brokers: localhost:9092
  producer:
    acks: "1"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(`
kafka:
  producer:
    acks: all
`), 0o644))

	v, overlay, err := newViper(FilePath(base), "staging")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.staging.yaml"), overlay)
	assert.Equal(t, "all", v.GetString("kafka.producer.acks"))
	assert.Equal(t, "localhost:9092", v.GetString("kafka.brokers"))
}

func TestNewViper_MissingOverlayIsIgnored(t *testing.T) {
	base := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(base, []byte("kafka:\n  brokers: localhost:9092\n"), 0o644))

	v, overlay, err := newViper(FilePath(base), "production")

	require.NoError(t, err)
	assert.Empty(t, overlay)
	assert.Equal(t, "localhost:9092", v.GetString("kafka.brokers"))
}

func TestOverlayPath(t *testing.T) {
	assert.Equal(t, "configs/config.test.yaml", overlayPath("configs/config.yaml", "test"))
	assert.Equal(t, "", overlayPath("configs/config.yaml", ""))
}
