package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Internal endpoints
	PipelineAPIKey string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Recurring processor
	RecurringInterval       time.Duration
	RecurringConcurrency    int
	RecurringAutoPauseAtEnd bool
}

// fileConfig is the layout of the optional TOML file named by MONETA_CONFIG.
// Its values become defaults that environment variables override.
type fileConfig struct {
	Server struct {
		Port           string `toml:"port"`
		Env            string `toml:"env"`
		LogLevel       string `toml:"log_level"`
		JWTSecret      string `toml:"jwt_secret"`
		JWTExpiresIn   string `toml:"jwt_expires_in"`
		PipelineAPIKey string `toml:"pipeline_api_key"`
	} `toml:"server"`
	Database struct {
		Driver     string `toml:"driver"`
		Host       string `toml:"host"`
		Port       string `toml:"port"`
		User       string `toml:"user"`
		Password   string `toml:"password"`
		Name       string `toml:"name"`
		SSLMode    string `toml:"sslmode"`
		SQLitePath string `toml:"sqlite_path"`
	} `toml:"database"`
	Recurring struct {
		Interval       string `toml:"interval"`
		Concurrency    int    `toml:"concurrency"`
		AutoPauseAtEnd *bool  `toml:"auto_pause_at_end"`
	} `toml:"recurring"`
	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	file, err := readFile(os.Getenv("MONETA_CONFIG"))
	if err != nil {
		return nil, err
	}

	autoPause := true
	if file.Recurring.AutoPauseAtEnd != nil {
		autoPause = *file.Recurring.AutoPauseAtEnd
	}
	concurrency := 4
	if file.Recurring.Concurrency > 0 {
		concurrency = file.Recurring.Concurrency
	}

	// Get values from environment variables with defaults
	config := &Config{
		// Server
		Port:     getEnv("PORT", or(file.Server.Port, "8080")),
		Env:      getEnv("ENV", or(file.Server.Env, "development")),
		LogLevel: getEnv("LOG_LEVEL", file.Server.LogLevel),

		// Database
		DBDriver:   getEnv("DB_DRIVER", or(file.Database.Driver, "postgres")),
		DBHost:     getEnv("DB_HOST", or(file.Database.Host, "localhost")),
		DBPort:     getEnv("DB_PORT", or(file.Database.Port, "5432")),
		DBUser:     getEnv("DB_USER", or(file.Database.User, "moneta")),
		DBPassword: getEnv("DB_PASSWORD", or(file.Database.Password, "moneta")),
		DBName:     getEnv("DB_NAME", or(file.Database.Name, "moneta")),
		DBSSLMode:  getEnv("DB_SSLMODE", or(file.Database.SSLMode, "disable")),
		SQLitePath: getEnv("SQLITE_PATH", or(file.Database.SQLitePath, "moneta.db")),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", or(file.Server.JWTSecret, "fallback-secret-key-for-dev-only")),

		PipelineAPIKey: getEnv("PIPELINE_API_KEY", file.Server.PipelineAPIKey),

		// AMQP
		AMQPURL:      getEnv("AMQP_URL", file.AMQP.URL),
		AMQPExchange: getEnv("AMQP_EXCHANGE", or(file.AMQP.Exchange, "moneta.recurring")),
		AMQPQueue:    getEnv("AMQP_QUEUE", or(file.AMQP.Queue, "moneta.transaction_due")),

		RecurringConcurrency:    getEnvInt("RECURRING_CONCURRENCY", concurrency),
		RecurringAutoPauseAtEnd: getEnvBool("RECURRING_AUTO_PAUSE_AT_END", autoPause),
	}

	// Parse JWT expiration duration
	config.JWTExpirationDur = getEnvDuration("JWT_EXPIRES_IN", or(file.Server.JWTExpiresIn, "24h"), 24*time.Hour)
	config.RecurringInterval = getEnvDuration("RECURRING_INTERVAL", or(file.Recurring.Interval, "0s"), 0)

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// readFile parses the TOML file at path. An empty path yields zero defaults.
func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fc, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return fc, nil
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key, raw string, fallback time.Duration) time.Duration {
	raw = getEnv(key, raw)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, fallback)
		return fallback
	}
	return d
}
