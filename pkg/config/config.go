package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Scanner struct {
		Symbols    []string      `yaml:"symbols"`    // explicit list or ["ALL"]
		Timeframes []string      `yaml:"timeframes"` // subset of 5m..1h
		TopN       int           `yaml:"top_n"`      // universe size for ALL
		Workers    int           `yaml:"workers"`
		Grace      time.Duration `yaml:"grace"` // wait after close before scanning
		Tick       time.Duration `yaml:"tick"`  // scheduler poll interval
	} `yaml:"scanner"`
	Detector struct {
		WindowSize int  `yaml:"window_size"`
		PivotLeft  int  `yaml:"pivot_left"`
		PivotRight int  `yaml:"pivot_right"`
		KeepPivots int  `yaml:"keep_pivots"`
		UseFilter  bool `yaml:"use_variant_filter"`
		AllowPH1   bool `yaml:"allow_ph1"`
		AllowPH2   bool `yaml:"allow_ph2"`
		AllowPH3   bool `yaml:"allow_ph3"`
		AllowPL1   bool `yaml:"allow_pl1"`
		AllowPL2   bool `yaml:"allow_pl2"`
		AllowPL3   bool `yaml:"allow_pl3"`
	} `yaml:"detector"`
	Binance struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"binance"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		Size       int           `yaml:"size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

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

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Scanner.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		c.Scanner.Timeframes = strings.Split(v, ",")
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.Scanner.Symbols) == 0 {
		c.Scanner.Symbols = []string{"ALL"}
	}
	if len(c.Scanner.Timeframes) == 0 {
		c.Scanner.Timeframes = []string{"5m", "15m", "30m", "1h"}
	}
	if c.Scanner.TopN <= 0 {
		c.Scanner.TopN = 100
	}
	if c.Scanner.Workers <= 0 {
		c.Scanner.Workers = 8
	}
	if c.Scanner.Grace <= 0 {
		c.Scanner.Grace = 30 * time.Second
	}
	if c.Scanner.Tick <= 0 {
		c.Scanner.Tick = 5 * time.Second
	}
	if c.Detector.WindowSize <= 0 {
		c.Detector.WindowSize = 50
	}
	if c.Detector.PivotLeft <= 0 {
		c.Detector.PivotLeft = 1
	}
	if c.Detector.PivotRight <= 0 {
		c.Detector.PivotRight = 1
	}
	if c.Detector.KeepPivots <= 0 {
		c.Detector.KeepPivots = 200
	}
	if !c.Detector.UseFilter {
		// With the filter off every variant is accepted.
		c.Detector.AllowPH1, c.Detector.AllowPH2, c.Detector.AllowPH3 = true, true, true
		c.Detector.AllowPL1, c.Detector.AllowPL2, c.Detector.AllowPL3 = true, true, true
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		c.Kafka.Topic = "chochscan.signals"
	}
	if c.Kafka.Enabled && c.Kafka.LogTopic == "" {
		c.Kafka.LogTopic = "chochscan.logs"
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.Size <= 0 {
		c.Queue.Size = 256
	}
	if c.Queue.RetryLimit <= 0 {
		c.Queue.RetryLimit = 3
	}
	if c.Queue.RetryDelay <= 0 {
		c.Queue.RetryDelay = 5 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	valid := map[string]bool{
		"5m": true, "10m": true, "15m": true, "20m": true, "25m": true,
		"30m": true, "40m": true, "50m": true, "1h": true,
	}
	for _, tf := range c.Scanner.Timeframes {
		if !valid[tf] {
			return fmt.Errorf("scanner.timeframes: unsupported timeframe %q", tf)
		}
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required when telegram is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Telegram.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("telegram notifications require the redis queue")
	}
	return nil
}
