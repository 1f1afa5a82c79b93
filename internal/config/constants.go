package config

import "time"

const (
	// TrainingDataPrefix is the object key prefix that triggers the training flow.
	TrainingDataPrefix = "data/train/"
	// ApprovedModelPrefix is the object key prefix for promoted model artifacts.
	ApprovedModelPrefix = "models/approved/"
	// RawModelPrefix is the object key prefix where training jobs write artifacts.
	RawModelPrefix = "models/raw/"
	// ThresholdsConfigKey is the object key of the evaluation threshold document.
	ThresholdsConfigKey = "config/evaluation_thresholds.json"
	// MigrationsDir is the directory path for run-history schema migrations.
	MigrationsDir = "migrations"
	// ServingModeServerless selects a serverless endpoint configuration.
	ServingModeServerless = "serverless"
	// ServingModeProvisioned selects a fixed-capacity endpoint configuration.
	ServingModeProvisioned = "provisioned"
	// DefaultServerlessMemoryMB is the serverless variant memory size default.
	DefaultServerlessMemoryMB = 4096
	// DefaultServerlessMaxConcurrency is the serverless variant concurrency cap default.
	DefaultServerlessMaxConcurrency = 10
	// DefaultHealthCheckInterval is the endpoint status polling interval.
	DefaultHealthCheckInterval = 30 * time.Second
	// DefaultHealthCheckTimeout is the health check wall-clock ceiling.
	DefaultHealthCheckTimeout = 300 * time.Second
)
