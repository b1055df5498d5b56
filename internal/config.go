package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env          string             `mapstructure:"env"`
	Server       ServerConfig       `mapstructure:"http_server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Security     SecurityConfig     `mapstructure:"security" validate:"required"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Scoring      ScoringConfig      `mapstructure:"scoring"`
	Stripe       StripeConfig       `mapstructure:"stripe"`
	Email        EmailConfig        `mapstructure:"email"`
	Notification NotificationConfig `mapstructure:"notification"`
	Media        MediaConfig        `mapstructure:"media"`
	Loan         LoanConfig         `mapstructure:"loan"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ValidateRequests  bool          `mapstructure:"validate_requests"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	BCryptCost           int           `mapstructure:"bcrypt_cost"`
}

// RedisConfig is optional. An empty Addr keeps locks, idempotency and the
// notification queue in-process.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

type ScoringConfig struct {
	URL             string        `mapstructure:"url"`
	PredictTimeout  time.Duration `mapstructure:"predict_timeout"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout"`
	FallbackEnabled bool          `mapstructure:"fallback_enabled"`
	ServeAddr       string        `mapstructure:"serve_addr"`
}

type StripeConfig struct {
	SecretKey       string        `mapstructure:"secret_key"`
	APIURL          string        `mapstructure:"api_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DefaultCurrency string        `mapstructure:"default_currency"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type NotificationConfig struct {
	Workers   int    `mapstructure:"workers"`
	QueueSize int    `mapstructure:"queue_size"`
	QueueKey  string `mapstructure:"queue_key"`
}

type MediaConfig struct {
	Root string `mapstructure:"root"`
	URL  string `mapstructure:"url"`
}

type LoanConfig struct {
	DefaultInterestRate float64 `mapstructure:"default_interest_rate"`
}

// ----------------- DEFAULTS -----------------

// ApplyDefaults fills values the loan workflow cannot run without.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = 15 * time.Minute
	}
	if c.Security.RefreshTokenDuration == 0 {
		c.Security.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 10
	}
	if c.Scoring.PredictTimeout == 0 {
		c.Scoring.PredictTimeout = 20 * time.Second
	}
	if c.Scoring.HealthTimeout == 0 {
		c.Scoring.HealthTimeout = 10 * time.Second
	}
	if c.Scoring.ServeAddr == "" {
		c.Scoring.ServeAddr = ":8001"
	}
	if c.Stripe.Timeout == 0 {
		c.Stripe.Timeout = 20 * time.Second
	}
	if c.Stripe.DefaultCurrency == "" {
		c.Stripe.DefaultCurrency = "usd"
	}
	if c.Notification.Workers == 0 {
		c.Notification.Workers = 2
	}
	if c.Notification.QueueSize == 0 {
		c.Notification.QueueSize = 100
	}
	if c.Notification.QueueKey == "" {
		c.Notification.QueueKey = "notifications:email"
	}
	if c.Media.Root == "" {
		c.Media.Root = "media"
	}
	if c.Media.URL == "" {
		c.Media.URL = "/media/"
	}
	if c.Loan.DefaultInterestRate == 0 {
		c.Loan.DefaultInterestRate = 0.10
	}
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds the configuration from plain environment variables.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", ""),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ValidateRequests:  getEnvAsBool("HTTP_VALIDATE_REQUESTS", true),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:  getEnv("JWT_ACCESS_SECRET", ""),
			RefreshTokenSecret: getEnv("JWT_REFRESH_SECRET", ""),
			BCryptCost:         getEnvAsInt("BCRYPT_COST", 10),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
			DB:   getEnvAsInt("REDIS_DB", 0),
		},
		Scoring: ScoringConfig{
			URL:             getEnv("AI_SERVICE_URL", ""),
			FallbackEnabled: getEnvAsBool("AI_LOCAL_FALLBACK", true),
			ServeAddr:       getEnv("AI_SERVE_ADDR", ":8001"),
		},
		Stripe: StripeConfig{
			SecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
			APIURL:          getEnv("STRIPE_API_URL", ""),
			DefaultCurrency: getEnv("STRIPE_CURRENCY", "usd"),
		},
		Email: EmailConfig{
			Enabled:  getEnvAsBool("EMAIL_ENABLED", false),
			Host:     getEnv("EMAIL_HOST", ""),
			Port:     getEnvAsInt("EMAIL_PORT", 587),
			Username: getEnv("EMAIL_HOST_USER", ""),
			Password: getEnv("EMAIL_HOST_PASSWORD", ""),
			From:     getEnv("DEFAULT_FROM_EMAIL", "no-reply@loans.local"),
		},
		Notification: NotificationConfig{
			Workers:   getEnvAsInt("NOTIFICATION_WORKERS", 2),
			QueueSize: getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 100),
			QueueKey:  getEnv("NOTIFICATION_QUEUE_KEY", "notifications:email"),
		},
		Media: MediaConfig{
			Root: getEnv("MEDIA_ROOT", "media"),
			URL:  getEnv("MEDIA_URL", "/media/"),
		},
		Loan: LoanConfig{
			DefaultInterestRate: getEnvAsFloat("LOAN_DEFAULT_INTEREST_RATE", 0.10),
		},
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("scoring config: %v", err))
	}

	if err := c.Email.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("email config: %v", err))
	}

	if c.Loan.DefaultInterestRate < 0 {
		errs = append(errs, "loan config: default_interest_rate must be >= 0")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 16 {
		return errors.New("access_token_secret must be at least 16 characters")
	}
	if len(c.RefreshTokenSecret) < 16 {
		return errors.New("refresh_token_secret must be at least 16 characters")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh secrets must differ")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return errors.New("bcrypt_cost must be between 4 and 31")
	}
	return nil
}

func (c *ScoringConfig) Validate() error {
	if c.URL == "" && !c.FallbackEnabled {
		return errors.New("url is required when the local fallback is disabled")
	}
	if c.URL != "" {
		if _, err := url.ParseRequestURI(c.URL); err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
	}
	return nil
}

func (c *EmailConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Host == "" {
		return errors.New("host is required when email is enabled")
	}
	if c.From == "" {
		return errors.New("from is required when email is enabled")
	}
	return nil
}
