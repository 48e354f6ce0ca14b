package config

import (
	"errors"  // For validation errors
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"time"    // For durations

	"github.com/joho/godotenv"   // For loading .env files
	"github.com/sirupsen/logrus" // For logger setup
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBDriver   string // Database driver: mysql or sqlite
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBPath     string // SQLite database file
	JWTSecret  string // JWT secret key
	JWTTTL     time.Duration
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment
	LogLevel   string // Logrus level name

	LockBackend         string        // memory or redis
	LockTimeout         time.Duration // Max wait for per-project/per-user locks
	LockTTL             time.Duration // Expiry of redis lock keys
	TxRetries           int           // Retries after a concurrency failure
	WithdrawMaxFraction float64       // Max share of the remaining principal per withdrawal
	VariableReturnMin   float64       // Lower bound of the simulated market return
	VariableReturnMax   float64       // Upper bound of the simulated market return
	CacheTTL            time.Duration // Redis read cache lifetime
	RateLimitRPS        int           // Requests per second per principal
	RateLimitBurst      int           // Burst size per principal
	MetricsAddr         string        // Prometheus listener, empty to serve on the API port
	ExpirySchedule      string        // Cron spec for closing expired projects

	AdminEmail    string // Seeded admin account, optional
	AdminPassword string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:    getString("APP_PORT", "8080"),
		DBDriver:   getString("DB_DRIVER", "mysql"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getString("DB_HOST", "127.0.0.1"),
		DBPort:     getString("DB_PORT", "3306"),
		DBName:     os.Getenv("DB_NAME"),
		DBPath:     getString("DB_PATH", "data/invest.db"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     getDuration("JWT_TTL", 24*time.Hour),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		RedisDB:    getInt("REDIS_DB", 0),
		IsProd:     os.Getenv("IS_PROD") == "true",
		LogLevel:   getString("LOG_LEVEL", "info"),

		LockBackend:         getString("LOCK_BACKEND", "memory"),
		LockTimeout:         getDuration("LOCK_TIMEOUT", 5*time.Second),
		LockTTL:             getDuration("LOCK_TTL", 30*time.Second),
		TxRetries:           getInt("TX_RETRIES", 3),
		WithdrawMaxFraction: getFloat("WITHDRAW_MAX_FRACTION", 1),
		VariableReturnMin:   getFloat("VARIABLE_RETURN_MIN", -0.20),
		VariableReturnMax:   getFloat("VARIABLE_RETURN_MAX", 0.30),
		CacheTTL:            getDuration("CACHE_TTL", 60*time.Second),
		RateLimitRPS:        getInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst:      getInt("RATE_LIMIT_BURST", 20),
		MetricsAddr:         os.Getenv("METRICS_ADDR"),
		ExpirySchedule:      getString("EXPIRY_SCHEDULE", "* * * * *"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

// MySQLDSN builds the Data Source Name for the MySQL driver
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// Validate reports settings the API cannot run without
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required")) // Tokens cannot be signed
	}
	errs = append(errs, c.ValidateEngine())
	return errors.Join(errs...)
}

// ValidateEngine reports settings needed by every process that runs the engine,
// including the scheduler which never issues tokens
func (c *Config) ValidateEngine() error {
	var errs []error
	if c.DBDriver != "mysql" && c.DBDriver != "sqlite" {
		errs = append(errs, errors.New("DB_DRIVER must be mysql or sqlite"))
	}
	if c.LockBackend != "memory" && c.LockBackend != "redis" {
		errs = append(errs, errors.New("LOCK_BACKEND must be memory or redis"))
	}
	if c.LockBackend == "redis" && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when LOCK_BACKEND=redis"))
	}
	if c.VariableReturnMin > c.VariableReturnMax {
		errs = append(errs, errors.New("VARIABLE_RETURN_MIN must not exceed VARIABLE_RETURN_MAX"))
	}
	if c.ExpirySchedule == "" {
		errs = append(errs, errors.New("EXPIRY_SCHEDULE must not be empty"))
	}
	return errors.Join(errs...)
}

// ConfigureLogging sets the global logrus formatter and level
func (c *Config) ConfigureLogging() {
	if c.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.WithField("level", c.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
