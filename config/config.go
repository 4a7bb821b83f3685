package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Game     GameConfig     `mapstructure:"game"`
	Words    WordsConfig    `mapstructure:"words"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type ServerConfig struct {
	HTTPAddress    string   `mapstructure:"http_address"`
	RPCAddress     string   `mapstructure:"rpc_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RateLimit is the sustained number of inbound messages per second per connection.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
	// Heartbeat closes connections silent for twice this long. Zero disables it.
	Heartbeat  time.Duration `mapstructure:"heartbeat"`
	OutboxSize int           `mapstructure:"outbox_size"`
	// IdleTimeout disconnects players that sent nothing for this long. Zero disables it.
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Housekeeping time.Duration `mapstructure:"housekeeping"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type GameConfig struct {
	RoundsPerPlayer     int           `mapstructure:"rounds_per_player"`
	AnswerWindow        time.Duration `mapstructure:"answer_window"`
	SelectDelay         time.Duration `mapstructure:"select_delay"`
	RevealDelay         time.Duration `mapstructure:"reveal_delay"`
	MinCandidates       int           `mapstructure:"min_candidates"`
	MaxFragmentAttempts int           `mapstructure:"max_fragment_attempts"`
	MailboxSize         int           `mapstructure:"mailbox_size"`
}

type WordsConfig struct {
	// Source is one of "file", "redis" or "postgres".
	Source string `mapstructure:"source"`
	File   string `mapstructure:"file"`
}

type DatabaseConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Driver is "gorm" or "sql" (database/sql with lib/pq).
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

const envPrefix = "WORDGAME"

// SetDefaults registers a default for every key so env overrides work without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8765")
	v.SetDefault("server.rpc_address", "127.0.0.1:8766")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.heartbeat", 30*time.Second)
	v.SetDefault("server.outbox_size", 256)
	v.SetDefault("server.idle_timeout", 5*time.Minute)
	v.SetDefault("server.housekeeping", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("game.rounds_per_player", 3)
	v.SetDefault("game.answer_window", 10*time.Second)
	v.SetDefault("game.select_delay", 2*time.Second)
	v.SetDefault("game.reveal_delay", 3*time.Second)
	v.SetDefault("game.min_candidates", 20)
	v.SetDefault("game.max_fragment_attempts", 50)
	v.SetDefault("game.mailbox_size", 256)

	v.SetDefault("words.source", "file")
	v.SetDefault("words.file", "data/words.txt")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "gorm")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "wordgame")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "wordgame-matches")
}

// New returns a viper instance with defaults and environment overrides applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads config.yaml from path (or the explicit file when path ends in .yaml/.yml).
// A missing config file is not an error.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
