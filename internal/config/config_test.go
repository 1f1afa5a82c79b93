package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BUCKET_NAME", "pipeline-bucket")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "pipeline-bucket", cfg.Bucket)
	require.Equal(t, "us-east-1", cfg.Region)
	require.Equal(t, ServingModeServerless, cfg.ServingMode)
	require.Equal(t, int32(DefaultServerlessMemoryMB), cfg.ServerlessMemoryMB)
	require.Equal(t, int32(DefaultServerlessMaxConcurrency), cfg.ServerlessMaxConcurrency)
	require.Equal(t, DefaultHealthCheckInterval, cfg.HealthCheckInterval)
	require.Equal(t, DefaultHealthCheckTimeout, cfg.HealthCheckTimeout)
	require.Equal(t, RawModelPrefix, cfg.TrainingOutputPrefix)
	require.False(t, cfg.HistoryEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVING_MODE", ServingModeProvisioned)
	t.Setenv("INSTANCE_TYPE", "ml.c5.xlarge")
	t.Setenv("INSTANCE_COUNT", "3")
	t.Setenv("HEALTH_CHECK_INTERVAL_SECONDS", "5")
	t.Setenv("HEALTH_CHECK_TIMEOUT_SECONDS", "60")
	t.Setenv("CLICKHOUSE_HOST", "clickhouse.internal")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ServingModeProvisioned, cfg.ServingMode)
	require.Equal(t, "ml.c5.xlarge", cfg.InstanceType)
	require.Equal(t, int32(3), cfg.InstanceCount)
	require.Equal(t, 5*time.Second, cfg.HealthCheckInterval)
	require.Equal(t, time.Minute, cfg.HealthCheckTimeout)
	require.True(t, cfg.HistoryEnabled())
}

func TestLoadRejectsInvalidServingMode(t *testing.T) {
	t.Setenv("SERVING_MODE", "spot")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsNonNumericInt(t *testing.T) {
	t.Setenv("INSTANCE_COUNT", "many")

	_, err := Load()
	require.Error(t, err)
}

func TestStringMasksPassword(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "clickhouse.internal")
	t.Setenv("CLICKHOUSE_PASSWORD", "super-secret")

	cfg, err := Load()
	require.NoError(t, err)

	out := cfg.String()
	require.NotContains(t, out, "super-secret")
	require.Contains(t, out, "********")
}
