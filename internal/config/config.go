package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PostgresConfig holds task store connection settings.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	IdleConnections int           `mapstructure:"idle_connections"`
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
}

// RedisConfig holds session/idempotency cache settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdaptersConfig holds base URLs for the external tool services.
type AdaptersConfig struct {
	ContactsURL string        `mapstructure:"contacts_url"`
	EmailURL    string        `mapstructure:"email_url"`
	CalendarURL string        `mapstructure:"calendar_url"`
	CRMURL      string        `mapstructure:"crm_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds the LLM gateway endpoint and rate limit.
type LLMConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	Burst          int           `mapstructure:"burst"`
}

// RetrievalConfig holds the document retriever endpoint.
type RetrievalConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	TopK    int           `mapstructure:"top_k"`
}

// EngineConfig holds workflow engine policy knobs.
type EngineConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	// DefaultMeetingStartHour/EndHour define the fallback window used when
	// no time expression can be parsed out of the request (24h clock).
	DefaultMeetingStartHour int `mapstructure:"default_meeting_start_hour"`
	DefaultMeetingEndHour   int `mapstructure:"default_meeting_end_hour"`
	// StaleAfter marks how long a waiting task may sit before it shows up
	// in the stale-waiting report. Nothing auto-fails stale tasks.
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	MetricsPort        int           `mapstructure:"metrics_port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	WebhookBearerToken string        `mapstructure:"webhook_bearer_token"`
	JWTSecret          string        `mapstructure:"jwt_secret"`
}

// Config is the full service configuration.
type Config struct {
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Adapters  AdaptersConfig  `mapstructure:"adapters"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Server    ServerConfig    `mapstructure:"server"`
	LogLevel  string          `mapstructure:"log_level"`
}

// Load reads config.yaml from CONFIG_PATH (default ./config.yaml), applies
// defaults, and lets ORCH_* environment variables override any key
// (ORCH_POSTGRES_HOST, ORCH_SERVER_PORT, ...).
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ORCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	v.SetConfigFile(cfgPath)
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env cover everything.
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "orchestrator")
	v.SetDefault("postgres.database", "orchestrator")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_connections", 25)
	v.SetDefault("postgres.idle_connections", 5)
	v.SetDefault("postgres.max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("adapters.timeout", 15*time.Second)

	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.requests_per_sec", 5.0)
	v.SetDefault("llm.burst", 10)

	v.SetDefault("retrieval.timeout", 10*time.Second)
	v.SetDefault("retrieval.top_k", 5)

	v.SetDefault("engine.max_retries", 3)
	v.SetDefault("engine.default_meeting_start_hour", 16)
	v.SetDefault("engine.default_meeting_end_hour", 17)
	v.SetDefault("engine.stale_after", 7*24*time.Hour)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 2112)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
}
