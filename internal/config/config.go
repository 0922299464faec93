package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
	Sweep      SweepConfig
	Face       FaceConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig holds the sweep lock backend. An empty Addr uses an
// in-process lock, which is only safe with a single instance.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
}

// AttendanceConfig holds the defaults used until an administrator saves
// settings, plus recorder tuning.
type AttendanceConfig struct {
	LateAfter     string
	CloseAfter    string
	Timezone      string
	SchoolDays    []time.Weekday
	TokenMaxAge   time.Duration
	RecordTimeout time.Duration
}

type SweepConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
}

type FaceConfig struct {
	ServiceURL string
	Skip       bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		slog.Info("No .env file found, using environment variables only")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Driver:   getEnv("STORAGE_DRIVER", StoragePostgres),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "school_attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Attendance configuration
	schoolDays, err := parseWeekdays(getEnv("ATTENDANCE_SCHOOL_DAYS", "1,2,3,4,5"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_SCHOOL_DAYS: %w", err)
	}
	tokenMaxAge, err := getEnvDuration("QR_TOKEN_MAX_AGE", "0")
	if err != nil {
		return nil, err
	}
	recordTimeout, err := getEnvDuration("RECORD_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	config.Attendance = AttendanceConfig{
		LateAfter:     getEnv("ATTENDANCE_LATE_AFTER", "08:00"),
		CloseAfter:    getEnv("ATTENDANCE_CLOSE_AFTER", "15:00"),
		Timezone:      getEnv("ATTENDANCE_TIMEZONE", "Asia/Jakarta"),
		SchoolDays:    schoolDays,
		TokenMaxAge:   tokenMaxAge,
		RecordTimeout: recordTimeout,
	}

	// Sweep configuration
	sweepInterval, err := getEnvDuration("SWEEP_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	sweepLockTTL, err := getEnvDuration("SWEEP_LOCK_TTL", "5m")
	if err != nil {
		return nil, err
	}

	config.Sweep = SweepConfig{
		Interval: sweepInterval,
		LockTTL:  sweepLockTTL,
	}

	// Face recognition service
	config.Face = FaceConfig{
		ServiceURL: getEnv("FACE_SERVICE_URL", ""),
		Skip:       getEnv("FACE_SKIP", "false") == "true",
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case StoragePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: %s, %s", StoragePostgres, StorageMemory)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if !validator.IsValidClock(c.Attendance.LateAfter) {
		return fmt.Errorf("ATTENDANCE_LATE_AFTER must be in HH:mm format")
	}
	if !validator.IsValidClock(c.Attendance.CloseAfter) {
		return fmt.Errorf("ATTENDANCE_CLOSE_AFTER must be in HH:mm format")
	}
	if _, err := time.LoadLocation(c.Attendance.Timezone); err != nil {
		return fmt.Errorf("invalid ATTENDANCE_TIMEZONE: %w", err)
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	return nil
}

// AttendanceDefaults returns the settings used while none are stored.
func (c *Config) AttendanceDefaults() settings.AttendanceSettings {
	return settings.AttendanceSettings{
		LateAfter:  c.Attendance.LateAfter,
		CloseAfter: c.Attendance.CloseAfter,
		Timezone:   c.Attendance.Timezone,
		SchoolDays: c.Attendance.SchoolDays,
	}
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	return getSplit(value)
}

func getEnvDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseWeekdays(value string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range getSplit(value) {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("weekday %q must be between 0 (Sunday) and 6", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

func getSplit(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
