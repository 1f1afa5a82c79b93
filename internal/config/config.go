// Package config handles configuration loading and management
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the pipeline configuration loaded from environment variables.
type Config struct {
	Bucket           string
	Region           string
	EndpointName     string
	ExecutionRoleARN string
	InferenceImage   string
	SNSTopicARN      string

	TrainingTemplatePath string
	TrainingOutputPrefix string

	ServingMode              string
	ServerlessMemoryMB       int32
	ServerlessMaxConcurrency int32
	InstanceType             string
	InstanceCount            int32

	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration

	ClickhouseHost       string
	ClickhouseNativePort int
	ClickhouseUsername   string
	ClickhousePassword   string
	ClickhouseDatabase   string
	MigrationsDir        string
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Bucket:               getEnv("BUCKET_NAME", ""),
		Region:               getEnv("REGION", "us-east-1"),
		EndpointName:         getEnv("ENDPOINT_NAME", ""),
		ExecutionRoleARN:     getEnv("EXECUTION_ROLE_ARN", ""),
		InferenceImage:       getEnv("INFERENCE_IMAGE", ""),
		SNSTopicARN:          getEnv("SNS_TOPIC_ARN", ""),
		TrainingTemplatePath: getEnv("TRAINING_TEMPLATE", ""),
		TrainingOutputPrefix: getEnv("TRAINING_OUTPUT_PREFIX", RawModelPrefix),
		ServingMode:          getEnv("SERVING_MODE", ServingModeServerless),
		InstanceType:         getEnv("INSTANCE_TYPE", "ml.m5.large"),
		ClickhouseHost:       getEnv("CLICKHOUSE_HOST", ""),
		ClickhouseUsername:   getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickhousePassword:   getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickhouseDatabase:   getEnv("CLICKHOUSE_DATABASE", "modelgate"),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", MigrationsDir),
	}

	if cfg.ServingMode != ServingModeServerless && cfg.ServingMode != ServingModeProvisioned {
		return nil, fmt.Errorf("invalid SERVING_MODE %q: must be %q or %q",
			cfg.ServingMode, ServingModeServerless, ServingModeProvisioned)
	}

	memoryMB, err := getEnvInt("SERVERLESS_MEMORY_MB", DefaultServerlessMemoryMB)
	if err != nil {
		return nil, err
	}
	cfg.ServerlessMemoryMB = int32(memoryMB)

	maxConcurrency, err := getEnvInt("SERVERLESS_MAX_CONCURRENCY", DefaultServerlessMaxConcurrency)
	if err != nil {
		return nil, err
	}
	cfg.ServerlessMaxConcurrency = int32(maxConcurrency)

	instanceCount, err := getEnvInt("INSTANCE_COUNT", 1)
	if err != nil {
		return nil, err
	}
	cfg.InstanceCount = int32(instanceCount)

	intervalSec, err := getEnvInt("HEALTH_CHECK_INTERVAL_SECONDS", int(DefaultHealthCheckInterval/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.HealthCheckInterval = time.Duration(intervalSec) * time.Second

	timeoutSec, err := getEnvInt("HEALTH_CHECK_TIMEOUT_SECONDS", int(DefaultHealthCheckTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.HealthCheckTimeout = time.Duration(timeoutSec) * time.Second

	nativePort, err := getEnvInt("CLICKHOUSE_NATIVE_PORT", 9000)
	if err != nil {
		return nil, err
	}
	cfg.ClickhouseNativePort = nativePort

	return cfg, nil
}

// HistoryEnabled reports whether a ClickHouse run-history store is configured.
func (c *Config) HistoryEnabled() bool {
	return c.ClickhouseHost != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func (c *Config) String() string {
	passwordDisplay := "(not set)"
	if c.ClickhousePassword != "" {
		passwordDisplay = "********"
	}

	historyDisplay := "(disabled)"
	if c.HistoryEnabled() {
		historyDisplay = fmt.Sprintf("%s:%d/%s", c.ClickhouseHost, c.ClickhouseNativePort, c.ClickhouseDatabase)
	}

	topicDisplay := c.SNSTopicARN
	if topicDisplay == "" {
		topicDisplay = "(notifications disabled)"
	}

	return fmt.Sprintf(`Current Configuration:
======================
Bucket:                   %s
Region:                   %s
Endpoint Name:            %s
Execution Role:           %s
Inference Image:          %s
SNS Topic:                %s
Serving Mode:             %s
Serverless Memory (MB):   %d
Serverless Concurrency:   %d
Instance Type:            %s
Instance Count:           %d
Health Check Interval:    %s
Health Check Timeout:     %s
Run History:              %s
ClickHouse Username:      %s
ClickHouse Password:      %s`,
		c.Bucket,
		c.Region,
		c.EndpointName,
		c.ExecutionRoleARN,
		c.InferenceImage,
		topicDisplay,
		c.ServingMode,
		c.ServerlessMemoryMB,
		c.ServerlessMaxConcurrency,
		c.InstanceType,
		c.InstanceCount,
		c.HealthCheckInterval,
		c.HealthCheckTimeout,
		historyDisplay,
		c.ClickhouseUsername,
		passwordDisplay,
	)
}
