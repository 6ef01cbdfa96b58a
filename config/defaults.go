// =============================================================================
// 📦 CoordFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:          DefaultLogConfig(),
		LLM:          DefaultLLMConfig(),
		Session:      DefaultSessionConfig(),
		Coordination: DefaultCoordinationConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:          "echo",
		Model:             "coordflow-local",
		Timeout:           60 * time.Second,
		RequestsPerSecond: 0,
	}
}

// DefaultSessionConfig 返回默认会话配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Backend: "memory",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "coordflow:",
			TTL:       0,
		},
		Database: DatabaseConfig{
			DSN: "coordflow.db",
		},
	}
}

// DefaultCoordinationConfig 返回默认协调配置
func DefaultCoordinationConfig() CoordinationConfig {
	return CoordinationConfig{
		Parallel:           false,
		DelegatedSatisfies: false,
		MetricsNamespace:   "coordflow",
		MetricsEnabled:     false,
		ContextDocs:        nil,
		ContextTopK:        0,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "coordflow",
		SampleRate:   1.0,
	}
}
