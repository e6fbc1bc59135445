package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis (optional: token blacklist + activity log queue)
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// JWT
	JWTSecret    string
	JWTExpiresIn time.Duration

	// AWS S3 (profile images)
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3BucketName       string

	// Server
	Port   string
	AppEnv string

	// File upload
	MaxFileSize       int64
	AllowedExtensions string

	// WhatsApp relay
	N8NBaseURL         string
	N8NAPIKey          string
	WaAPIBaseURL       string
	DefaultCountryCode string
	RelayTimeout       time.Duration
	SimulateWhatsApp   bool

	// Logging
	LogLevel string
	LogFile  string
}

func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.AppEnv) == "production"
}

var AppConfig *Config

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	jwtExpires, err := time.ParseDuration(getEnv("JWT_EXPIRES_IN", "24h"))
	if err != nil {
		log.Fatal("Invalid JWT_EXPIRES_IN format:", err)
	}

	maxFileSize, err := strconv.ParseInt(getEnv("MAX_FILE_SIZE", "2097152"), 10, 64)
	if err != nil {
		log.Fatal("Invalid MAX_FILE_SIZE format:", err)
	}

	relayTimeout, err := time.ParseDuration(getEnv("RELAY_TIMEOUT", "10s"))
	if err != nil {
		log.Fatal("Invalid RELAY_TIMEOUT format:", err)
	}

	AppConfig = &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "ccjap"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: jwtExpires,

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "ccjap-storage"),

		Port:   getEnv("PORT", "3001"),
		AppEnv: getEnv("APP_ENV", "development"),

		MaxFileSize:       maxFileSize,
		AllowedExtensions: getEnv("ALLOWED_EXTENSIONS", "jpg,jpeg,png,gif,webp"),

		N8NBaseURL:         getEnv("N8N_BASE_URL", ""),
		N8NAPIKey:          getEnv("N8N_API_KEY", ""),
		WaAPIBaseURL:       getEnv("WAAPI_BASE_URL", "https://api.waapi.net"),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "503"),
		RelayTimeout:       relayTimeout,
		SimulateWhatsApp:   strings.ToLower(getEnv("SIMULATE_WHATSAPP", "false")) == "true",

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "logs/app.log"),
	}

	validateConfig(AppConfig)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func validateConfig(c *Config) {
	// The signing secret is never defaulted. Refuse to start without it.
	if strings.TrimSpace(c.JWTSecret) == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 16 {
		log.Fatal("JWT_SECRET too short (min 16 chars)")
	}

	if !c.IsProduction() {
		return
	}
	if strings.TrimSpace(c.DBPassword) == "" {
		log.Fatal("Missing required secret DB_PASSWORD in production")
	}
	// Simulated delivery is a testing affordance only.
	if c.SimulateWhatsApp {
		log.Fatal("SIMULATE_WHATSAPP must not be enabled in production")
	}
}
