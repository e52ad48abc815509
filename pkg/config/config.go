package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Capacity int     `yaml:"capacity" default:"30"`
			Refill   float64 `yaml:"refill_per_sec" default:"5"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Provider struct {
		BaseURL   string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; PairDesk/1.0)"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		Attempts  int           `yaml:"attempts" default:"3"`
	} `yaml:"provider"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		MaxQuoteAge    time.Duration `yaml:"max_quote_age" default:"1m"`
	} `yaml:"finnhub"`
	Cache struct {
		Type       string        `yaml:"type" default:"memory"`
		HistoryTTL time.Duration `yaml:"history_ttl" default:"1h"`
		QuoteTTL   time.Duration `yaml:"quote_ttl" default:"15s"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pairdesk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"pairdesk.signals"`
		LogTopic     string   `yaml:"log_topic" default:"pairdesk.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		LogCollector struct {
			Enabled        bool          `yaml:"enabled"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"log_collector"`
	} `yaml:"kafka"`
	Analysis struct {
		Period    string  `yaml:"period" default:"1y"`
		Interval  string  `yaml:"interval" default:"1d"`
		UpperZ    float64 `yaml:"upper_z" default:"2"`
		LotSize   int64   `yaml:"lot_size" default:"100"`
		StdDev    string  `yaml:"std_dev" default:"population"`
		Reference string  `yaml:"reference" default:"BZ=F"`
	} `yaml:"analysis"`
	Simulation struct {
		RefQty              int64   `yaml:"ref_qty" default:"1000"`
		BorrowAnnualRatePct float64 `yaml:"borrow_annual_rate_pct" default:"5"`
		DurationDays        int     `yaml:"duration_days" default:"30"`
		BrokerageTotal      float64 `yaml:"brokerage_total" default:"10"`
		FeesTotal           float64 `yaml:"fees_total" default:"5"`
		BuyExitPct          float64 `yaml:"buy_exit_pct" default:"2"`
		SellExitPct         float64 `yaml:"sell_exit_pct" default:"-2"`
	} `yaml:"simulation"`
	Watcher struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval" default:"5m"`
		Throttle time.Duration `yaml:"throttle" default:"1m"`
		Pairs    []string      `yaml:"pairs"`
	} `yaml:"watcher"`
}

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment looked up through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Type = "redis"
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("UPPER_Z"); v != "" {
		z, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("UPPER_Z: %w", err)
		}
		c.Analysis.UpperZ = z
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Analysis.UpperZ <= 0 {
		return fmt.Errorf("analysis.upper_z must be positive, got %v", c.Analysis.UpperZ)
	}
	if c.Analysis.LotSize <= 0 {
		return fmt.Errorf("analysis.lot_size must be positive")
	}
	if c.Analysis.StdDev != "population" && c.Analysis.StdDev != "sample" {
		return fmt.Errorf("analysis.std_dev must be 'population' or 'sample', got '%s'", c.Analysis.StdDev)
	}
	if c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("cache.type must be 'memory' or 'redis', got '%s'", c.Cache.Type)
	}
	if c.Simulation.RefQty <= 0 || c.Simulation.RefQty%c.Analysis.LotSize != 0 {
		return fmt.Errorf("simulation.ref_qty must be a positive multiple of analysis.lot_size")
	}
	if c.Finnhub.Enabled && c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required when finnhub is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Watcher.Enabled {
		if len(c.Watcher.Pairs) == 0 {
			return fmt.Errorf("watcher.pairs cannot be empty when watcher is enabled")
		}
		for _, p := range c.Watcher.Pairs {
			if _, _, err := SplitPair(p); err != nil {
				return fmt.Errorf("watcher.pairs: %w", err)
			}
		}
	}
	return nil
}

// SplitPair parses "FIRST/SECOND".
func SplitPair(p string) (string, string, error) {
	parts := strings.Split(p, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("invalid pair %q, want FIRST/SECOND", p)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}
