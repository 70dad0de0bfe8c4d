package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
		// Collect aggregates error lines and ships them to kafka.logs_topic.
		Collect         bool          `yaml:"collect"`
		CollectInterval time.Duration `yaml:"collect_interval" default:"30s"`
		CollectMax      int           `yaml:"collect_max" default:"100"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Burst     float64       `yaml:"burst" default:"20"`
			PerSecond float64       `yaml:"per_second" default:"10"`
			IdleTTL   time.Duration `yaml:"idle_ttl" default:"10m"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"500ms"`
	} `yaml:"metrics"`
	Ingest struct {
		// Source is kafka, binance or both.
		Source    string `yaml:"source" default:"kafka"`
		Shards    int    `yaml:"shards" default:"4"`
		QueueSize int    `yaml:"queue_size" default:"4096"`
		// MaxRPS throttles per symbol; 0 keeps every trade.
		MaxRPS int `yaml:"max_rps"`
	} `yaml:"ingest"`
	Detection struct {
		HistoryCapacity    int     `yaml:"history_capacity" default:"1000"`
		MinWindow          int     `yaml:"min_window" default:"10"`
		LargeBlockNotional float64 `yaml:"large_block_notional" default:"50000"`
		InstitutionalStart int     `yaml:"institutional_start_hour" default:"13"`
		InstitutionalEnd   int     `yaml:"institutional_end_hour" default:"16"`
		AssetFilter        string  `yaml:"asset_filter" default:"BTC"`
	} `yaml:"detection"`
	Liveness struct {
		Active    time.Duration `yaml:"active" default:"5m"`
		Dormant   time.Duration `yaml:"dormant" default:"15m"`
		Retention time.Duration `yaml:"retention" default:"24h"`
	} `yaml:"liveness"`
	Snapshot struct {
		Enabled  bool          `yaml:"enabled" default:"true"`
		Interval time.Duration `yaml:"interval" default:"30s"`
	} `yaml:"snapshot"`
	Output struct {
		// Backend is kafka, redis or none.
		Backend    string `yaml:"backend" default:"kafka"`
		BufferSize int    `yaml:"buffer_size" default:"1024"`
	} `yaml:"output"`
	Kafka struct {
		Brokers              []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		TradesTopic          string   `yaml:"trades_topic" default:"trades"`
		ClassificationsTopic string   `yaml:"classifications_topic" default:"actor-classifications"`
		LogsTopic            string   `yaml:"logs_topic" default:"botradar-logs"`
		RequiredAcks         int      `yaml:"required_acks" default:"-1"`
		Compression          string   `yaml:"compression" default:"snappy"`
		Producer             struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"botradar"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"botradar"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		HistoryTTLDays   int           `yaml:"history_ttl_days" default:"7"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled            bool          `yaml:"enabled"`
		Addr               string        `yaml:"addr" default:"localhost:6379"`
		Password           string        `yaml:"password"`
		DB                 int           `yaml:"db"`
		ClassificationsKey string        `yaml:"classifications_key" default:"botradar:classifications"`
		MaxLen             int64         `yaml:"max_len" default:"10000"`
		CacheTTL           time.Duration `yaml:"cache_ttl" default:"2s"`
	} `yaml:"redis"`
	Binance struct {
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443/stream"`
		Symbols        []string      `yaml:"symbols" default:"[\"BTCUSDT\",\"ETHUSDT\"]"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"binance"`
}

// Load reads a YAML configuration file on top of the struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the struct defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("BINANCE_SYMBOLS"); v != "" {
		c.Binance.Symbols = splitList(v)
	}
	if v := getenv("INGEST_SOURCE"); v != "" {
		c.Ingest.Source = v
	}
	if v := getenv("OUTPUT_BACKEND"); v != "" {
		c.Output.Backend = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// UsesKafka reports whether any component needs brokers.
func (c *Config) UsesKafka() bool {
	return c.Ingest.Source != "binance" || c.Output.Backend == "kafka" || c.Log.Collect
}

// UsesBinance reports whether the websocket feed is enabled.
func (c *Config) UsesBinance() bool {
	return c.Ingest.Source == "binance" || c.Ingest.Source == "both"
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Ingest.Source {
	case "kafka", "binance", "both":
	default:
		return fmt.Errorf("ingest.source must be 'kafka', 'binance' or 'both', got '%s'", c.Ingest.Source)
	}
	if c.Ingest.Shards <= 0 {
		return fmt.Errorf("ingest.shards must be positive")
	}
	if c.Ingest.QueueSize <= 0 {
		return fmt.Errorf("ingest.queue_size must be positive")
	}
	switch c.Output.Backend {
	case "kafka", "redis", "none":
	default:
		return fmt.Errorf("output.backend must be 'kafka', 'redis' or 'none', got '%s'", c.Output.Backend)
	}
	if c.Output.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("output.backend 'redis' requires redis.enabled")
	}
	if c.UsesKafka() && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.UsesBinance() && len(c.Binance.Symbols) == 0 {
		return fmt.Errorf("binance.symbols cannot be empty")
	}
	if c.Detection.MinWindow <= 0 || c.Detection.HistoryCapacity < c.Detection.MinWindow {
		return fmt.Errorf("detection.history_capacity must be >= detection.min_window > 0")
	}
	if h := c.Detection.InstitutionalStart; h < 0 || h > 23 {
		return fmt.Errorf("detection.institutional_start_hour out of range: %d", h)
	}
	if h := c.Detection.InstitutionalEnd; h < 0 || h > 23 {
		return fmt.Errorf("detection.institutional_end_hour out of range: %d", h)
	}
	if c.Liveness.Active <= 0 || c.Liveness.Dormant <= c.Liveness.Active {
		return fmt.Errorf("liveness.dormant must be greater than liveness.active > 0")
	}
	if c.Snapshot.Enabled && c.Snapshot.Interval <= 0 {
		return fmt.Errorf("snapshot.interval must be positive")
	}
	return nil
}
