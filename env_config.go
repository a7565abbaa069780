// env_config.go: Environment variable support for dispatcher options
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// EnvConfig mirrors the MIST_* environment variables.
type EnvConfig struct {
	LogLevel        string        `env:"MIST_LOG_LEVEL"`
	LogFormat       string        `env:"MIST_LOG_FORMAT"`
	ShutdownTimeout time.Duration `env:"MIST_SHUTDOWN_TIMEOUT"`

	AuditEnabled       bool          `env:"MIST_AUDIT_ENABLED"`
	AuditOutputFile    string        `env:"MIST_AUDIT_OUTPUT_FILE"`
	AuditMinLevel      string        `env:"MIST_AUDIT_MIN_LEVEL"`
	AuditBufferSize    int           `env:"MIST_AUDIT_BUFFER_SIZE"`
	AuditFlushInterval time.Duration `env:"MIST_AUDIT_FLUSH_INTERVAL"`
}

// LoadOptionsFromEnv builds Options from the environment, with defaults
// applied to anything left unset.
func LoadOptionsFromEnv() (*Options, error) {
	env := loadEnvVars()
	opts := &Options{}
	if err := convertEnvToOptions(env, opts); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidOptions, "failed to load environment configuration")
	}
	return opts.WithDefaults(), nil
}

// MergeEnv overrides fields of base with values set in the environment.
func MergeEnv(base *Options) (*Options, error) {
	merged := Options{}
	if base != nil {
		merged = *base
	}
	if err := convertEnvToOptions(loadEnvVars(), &merged); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidOptions, "failed to merge environment configuration")
	}
	return &merged, nil
}

func loadEnvVars() *EnvConfig {
	return &EnvConfig{
		LogLevel:           os.Getenv("MIST_LOG_LEVEL"),
		LogFormat:          os.Getenv("MIST_LOG_FORMAT"),
		ShutdownTimeout:    GetEnvDurationWithDefault("MIST_SHUTDOWN_TIMEOUT", 0),
		AuditEnabled:       GetEnvBoolWithDefault("MIST_AUDIT_ENABLED", false),
		AuditOutputFile:    os.Getenv("MIST_AUDIT_OUTPUT_FILE"),
		AuditMinLevel:      os.Getenv("MIST_AUDIT_MIN_LEVEL"),
		AuditBufferSize:    GetEnvIntWithDefault("MIST_AUDIT_BUFFER_SIZE", 0),
		AuditFlushInterval: GetEnvDurationWithDefault("MIST_AUDIT_FLUSH_INTERVAL", 0),
	}
}

func convertEnvToOptions(env *EnvConfig, opts *Options) error {
	if env.LogLevel != "" {
		if _, err := ParseLogLevel(env.LogLevel); err != nil {
			return err
		}
		opts.LogLevel = env.LogLevel
	}
	if env.LogFormat != "" {
		opts.LogFormat = strings.ToLower(env.LogFormat)
	}
	if env.ShutdownTimeout > 0 {
		opts.ShutdownTimeout = env.ShutdownTimeout
	}
	return convertAuditConfig(env, &opts.Audit)
}

// convertAuditConfig applies the audit variables. Setting an output file
// alone does not enable auditing.
func convertAuditConfig(env *EnvConfig, audit *AuditConfig) error {
	if env.AuditEnabled {
		audit.Enabled = true
	}
	if env.AuditOutputFile != "" {
		audit.OutputFile = env.AuditOutputFile
	}
	if env.AuditMinLevel != "" {
		level, err := ParseAuditLevel(env.AuditMinLevel)
		if err != nil {
			return err
		}
		audit.MinLevel = level
	}
	if env.AuditBufferSize > 0 {
		audit.BufferSize = env.AuditBufferSize
	}
	if env.AuditFlushInterval > 0 {
		audit.FlushInterval = env.AuditFlushInterval
	}
	return nil
}

// parseBool parses boolean values from environment variables
// Supports: true/false, 1/0, yes/no, on/off, enabled/disabled
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}

// GetEnvWithDefault returns environment variable value or default if not set
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDurationWithDefault returns environment variable as duration or default
func GetEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvIntWithDefault returns environment variable as int or default
func GetEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvBoolWithDefault returns environment variable as bool or default
func GetEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value)
	}
	return defaultValue
}
