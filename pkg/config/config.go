package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported state backends.
const (
	StateDriverMemory   = "memory"
	StateDriverPostgres = "postgres"
	StateDriverSQLite   = "sqlite"
	StateDriverRedis    = "redis"
	StateDriverS3       = "s3"
	StateDriverFile     = "file"
)

type Config struct {
	Env        string
	Port       int
	APIPrefix  string
	EnableDocs bool

	State      StateConfig
	Database   DatabaseConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	S3         S3Config
	CORS       CORSConfig
	Log        LogConfig
	Actors     ActorConfig
	Cache      CacheConfig
	Enrollment EnrollmentConfig
	Scoring    ScoringConfig
	Seed       SeedConfig
}

// StateConfig selects where actor state is persisted.
type StateConfig struct {
	Driver      string
	RedisPrefix string
	FileDir     string
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLiteConfig points at the embedded state database.
type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// S3Config describes the object store used when State.Driver is s3.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Prefix    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ActorConfig tunes the actor runtime.
type ActorConfig struct {
	IdleTimeout time.Duration
	CallTimeout time.Duration
}

// CacheConfig governs recommendation caching.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// EnrollmentConfig tunes retries of the class side of enrollment.
type EnrollmentConfig struct {
	RetryAttempts int
	RetryDelay    time.Duration
	RepairWorkers int
	RepairRetries int
}

// ScoringConfig locates optional trained coefficients.
type ScoringConfig struct {
	ModelPath          string
	RecommendationTopN int
}

// SeedConfig toggles demo data at startup.
type SeedConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	if v.IsSet("ENABLE_DOCS") {
		cfg.EnableDocs = v.GetBool("ENABLE_DOCS")
	} else {
		cfg.EnableDocs = cfg.Env != EnvProduction
	}

	cfg.State = StateConfig{
		Driver:      strings.ToLower(v.GetString("STATE_DRIVER")),
		RedisPrefix: v.GetString("STATE_REDIS_PREFIX"),
		FileDir:     v.GetString("STATE_FILE_DIR"),
	}

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.S3 = S3Config{
		Bucket:    v.GetString("S3_BUCKET"),
		Region:    v.GetString("S3_REGION"),
		Endpoint:  v.GetString("S3_ENDPOINT"),
		PathStyle: v.GetBool("S3_PATH_STYLE"),
		Prefix:    v.GetString("S3_PREFIX"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Actors = ActorConfig{
		IdleTimeout: parseDuration(v.GetString("ACTOR_IDLE_TIMEOUT"), 2*time.Minute),
		CallTimeout: parseDuration(v.GetString("ACTOR_CALL_TIMEOUT"), 10*time.Second),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Enrollment = EnrollmentConfig{
		RetryAttempts: v.GetInt("ENROLLMENT_RETRY_ATTEMPTS"),
		RetryDelay:    parseDuration(v.GetString("ENROLLMENT_RETRY_DELAY"), 100*time.Millisecond),
		RepairWorkers: v.GetInt("REPAIR_WORKERS"),
		RepairRetries: v.GetInt("REPAIR_RETRIES"),
	}

	cfg.Scoring = ScoringConfig{
		ModelPath:          v.GetString("SCORING_MODEL_PATH"),
		RecommendationTopN: v.GetInt("RECOMMENDATION_TOP_N"),
	}

	cfg.Seed = SeedConfig{Enabled: v.GetBool("SEED_DEMO_DATA")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STATE_DRIVER", StateDriverMemory)
	v.SetDefault("STATE_REDIS_PREFIX", "state:")
	v.SetDefault("STATE_FILE_DIR", "./data/state")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "course_state")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("SQLITE_PATH", "./data/course-state.db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PATH_STYLE", false)
	v.SetDefault("S3_PREFIX", "state/")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ACTOR_IDLE_TIMEOUT", "2m")
	v.SetDefault("ACTOR_CALL_TIMEOUT", "10s")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("ENROLLMENT_RETRY_ATTEMPTS", 3)
	v.SetDefault("ENROLLMENT_RETRY_DELAY", "100ms")
	v.SetDefault("REPAIR_WORKERS", 1)
	v.SetDefault("REPAIR_RETRIES", 5)

	v.SetDefault("SCORING_MODEL_PATH", "")
	v.SetDefault("RECOMMENDATION_TOP_N", 10)
	v.SetDefault("SEED_DEMO_DATA", false)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
