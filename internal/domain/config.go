package domain

import "time"

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Detection pipeline tunables
	Pipeline PipelineConfig `json:"pipeline"`

	// Live feed settings
	Feed FeedConfig `json:"feed"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// PipelineConfig holds the detection pipeline tunables. The defaults
// match the documented detection behavior; tests shrink them.
type PipelineConfig struct {
	// WindowCapacity bounds the per-caller rolling CDR window.
	WindowCapacity int `json:"windowCapacity"`

	// ClusterThreshold is the minimum risk score for cluster membership.
	ClusterThreshold float64 `json:"clusterThreshold"`

	// ClusterSimilarity is the max distance between a score and a
	// cluster's running average for the caller to join it.
	ClusterSimilarity float64 `json:"clusterSimilarity"`

	// ClusterBaseID seeds the monotonic cluster id counter.
	ClusterBaseID int64 `json:"clusterBaseId"`

	// ClusterActiveWindow bounds how long an untouched cluster counts
	// as active at read time.
	ClusterActiveWindow time.Duration `json:"clusterActiveWindow"`

	// AlertBaseID seeds the monotonic alert id counter.
	AlertBaseID int64 `json:"alertBaseId"`

	// AlertCapacity bounds the alert ring.
	AlertCapacity int `json:"alertCapacity"`

	// ArtifactPath points to the serialized scoring artifact. Empty or
	// missing selects the heuristic fallback scorer.
	ArtifactPath string `json:"artifactPath"`
}

// FeedConfig holds live feed settings.
type FeedConfig struct {
	// Interval between broadcast ticks.
	Interval time.Duration `json:"interval"`

	// BatchSize is the number of CDRs synthesized per tick.
	BatchSize int `json:"batchSize"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// DefaultConfig returns the single-node default configuration:
// SQLite audit trail, in-memory cache, channel event bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Pipeline: PipelineConfig{
			WindowCapacity:      1000,
			ClusterThreshold:    70,
			ClusterSimilarity:   15,
			ClusterBaseID:       100,
			ClusterActiveWindow: 24 * time.Hour,
			AlertBaseID:         4920,
			AlertCapacity:       100,
			ArtifactPath:        "./models/fraud_detector.json",
		},
		Feed: FeedConfig{
			Interval:  time.Second,
			BatchSize: 5,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300 * time.Second,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// GridConfig returns a configuration for multi-node grid deployments:
// PostgreSQL audit trail, two-phase Redis cache, NATS event bus.
func GridConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
