package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Server         ServerConfig         `mapstructure:"server"`
	OpenRouter     OpenRouterConfig     `mapstructure:"openrouter"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Cache          CacheConfig          `mapstructure:"cache"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	DedupWindow    time.Duration        `mapstructure:"dedup_window"`
	LogLevel       string               `mapstructure:"log_level"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// OpenRouterConfig holds generative-model provider settings
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RecommendationConfig holds the pipeline tuning parameters.
// The weight schedule carries over from the tuning the product team
// signed off on; treat changes as a product decision, not a refactor.
type RecommendationConfig struct {
	MustHaveWeight   int `mapstructure:"must_have_weight"`
	BeneficialWeight int `mapstructure:"beneficial_weight"`
	ConcernWeight    int `mapstructure:"concern_weight"`
	SkinTypeWeight   int `mapstructure:"skin_type_weight"`
	QualityBonus     int `mapstructure:"quality_bonus"`
	BudgetBonus      int `mapstructure:"budget_bonus"`
	BaseFloorScore   int `mapstructure:"base_floor_score"`
	AvoidPenalty     int `mapstructure:"avoid_penalty"`

	MaxPerCategory  int     `mapstructure:"max_per_category"`
	MinRoutineSize  int     `mapstructure:"min_routine_size"`
	MinRatingBonus  float64 `mapstructure:"min_rating_bonus"`
	BudgetWidenPct  float64 `mapstructure:"budget_widen_pct"`
	CatalogPageSize int     `mapstructure:"catalog_page_size"`

	// StrictAvoid selects disqualifying avoidance for the first pass;
	// the pipeline relaxes to lenient once if filtering empties out
	StrictAvoid bool `mapstructure:"strict_avoid"`

	ModelTimeout time.Duration `mapstructure:"model_timeout"`
}

// DatabaseConfig holds catalog/persistence store settings
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds run-status store settings
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	StatusTTL time.Duration `mapstructure:"status_ttl"`
}

// CacheConfig holds AI response cache settings
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds rate limit settings
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig loads the configuration
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("database.dsn", "DATABASE_DSN")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("recommendation.strict_avoid", "RECOMMENDATION_STRICT_AVOID")
	viper.BindEnv("recommendation.model_timeout", "RECOMMENDATION_MODEL_TIMEOUT")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger is not initialized yet, use fmt for the startup trace
	fmt.Println("Loading configuration", "openrouter_api_key:", maskAPIKey(viper.GetString("openrouter.api_key")), "openrouter_model:", viper.GetString("openrouter.model"))

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey masks the API key, showing only 4 leading and trailing chars
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "skincare-advisor")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("openrouter.enabled", false)
	viper.SetDefault("openrouter.model", "qwen/qwen2.5-vl-72b-instruct:free")
	viper.SetDefault("openrouter.max_tokens", 2000)
	viper.SetDefault("openrouter.timeout", "60s")

	// scoring weights and caps (see RecommendationConfig comment)
	viper.SetDefault("recommendation.must_have_weight", 100)
	viper.SetDefault("recommendation.beneficial_weight", 50)
	viper.SetDefault("recommendation.concern_weight", 30)
	viper.SetDefault("recommendation.skin_type_weight", 20)
	viper.SetDefault("recommendation.quality_bonus", 15)
	viper.SetDefault("recommendation.budget_bonus", 10)
	viper.SetDefault("recommendation.base_floor_score", 5)
	viper.SetDefault("recommendation.avoid_penalty", 50)
	viper.SetDefault("recommendation.max_per_category", 8)
	viper.SetDefault("recommendation.min_routine_size", 2)
	viper.SetDefault("recommendation.min_rating_bonus", 4.0)
	viper.SetDefault("recommendation.budget_widen_pct", 0.2)
	viper.SetDefault("recommendation.catalog_page_size", 200)
	viper.SetDefault("recommendation.strict_avoid", true)
	viper.SetDefault("recommendation.model_timeout", "45s")

	viper.SetDefault("database.dsn", "postgres://localhost:5432/skincare?sslmode=disable")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "30m")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.status_ttl", "1h")

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	viper.SetDefault("dedup_window", "1s")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	rec := config.Recommendation
	if rec.MaxPerCategory <= 0 {
		return fmt.Errorf("invalid max per category")
	}
	if rec.MinRoutineSize <= 0 {
		return fmt.Errorf("invalid min routine size")
	}
	if rec.ModelTimeout <= 0 {
		return fmt.Errorf("invalid model timeout")
	}
	if rec.CatalogPageSize <= 0 {
		return fmt.Errorf("invalid catalog page size")
	}

	return nil
}
