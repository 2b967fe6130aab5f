package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	RegulatedMode bool
	Environment   string
	LogLevel      string

	// SessionSigningKey signs onboarding session handles.
	SessionSigningKey string
	SessionTTL        time.Duration
	SessionIssuer     string
	// SessionStartLimit caps new sessions per client IP per SessionStartWindow.
	SessionStartLimit  int
	SessionStartWindow time.Duration
	RateLimitDisabled  bool

	Registry  RegistryConfig
	OCR       OCRConfig
	Biometric BiometricConfig
	Email     EmailConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Database  DatabaseConfig

	// ReferralCode is the shared secret Gaza clinicians present.
	ReferralCode string
}

// RegistryConfig points at the professional registry service.
type RegistryConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// OCRConfig points at the OCR engine.
type OCRConfig struct {
	URL           string
	APIKey        string
	Timeout       time.Duration
	MaxImageBytes int64
}

// BiometricConfig selects the face verification policy.
type BiometricConfig struct {
	// Policy is one of always_pass, randomized, remote.
	Policy    string
	PassRatio float64
	RemoteURL string
	APIKey    string
	Threshold float64
	Timeout   time.Duration
}

// EmailConfig governs institutional email verification.
type EmailConfig struct {
	InstitutionalSuffix string
	CodeTTL             time.Duration
	ResendCooldown      time.Duration
	// MaxCodeAttempts bounds confirmations per issued code.
	MaxCodeAttempts int
	// Dispatcher is one of log, kafka.
	Dispatcher string
}

// KafkaConfig configures the verification code topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig configures the optional shared ephemeral store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the optional Postgres account store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RegistryCacheTTL enforces retention for sensitive registry data.
var RegistryCacheTTL = 5 * time.Minute

const (
	DefaultReferralCode        = "DeenDevelopers"
	DefaultInstitutionalSuffix = "nhs.net"
	DefaultCodeTTL             = 10 * time.Minute
	DefaultResendCooldown      = 60 * time.Second
	DefaultMaxCodeAttempts     = 5
	DefaultSessionTTL          = 30 * time.Minute
	DefaultMaxImageBytes       = 8 << 20
)

// Load reads a .env file when present and then builds the config from the
// environment. Missing .env is not an error.
func Load() Server {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	env := getEnv("ENVIRONMENT", "development")

	signingKey := os.Getenv("SESSION_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-session-key-change-in-production"
	}

	return Server{
		Addr:               getEnv("MEDBRIDGE_ADDR", ":8080"),
		RegulatedMode:      os.Getenv("REGULATED_MODE") == "true",
		Environment:        env,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SessionSigningKey:  signingKey,
		SessionTTL:         getDuration("SESSION_TTL", DefaultSessionTTL),
		SessionIssuer:      getEnv("SESSION_ISSUER", "medbridge"),
		SessionStartLimit:  getInt("SESSION_START_LIMIT", 20),
		SessionStartWindow: getDuration("SESSION_START_WINDOW", time.Minute),
		RateLimitDisabled:  os.Getenv("DISABLE_RATE_LIMITING") == "true",
		Registry: RegistryConfig{
			BaseURL:  getEnv("REGISTRY_BASE_URL", "http://localhost:9090/registry"),
			Timeout:  getDuration("REGISTRY_TIMEOUT", 5*time.Second),
			CacheTTL: getDuration("REGISTRY_CACHE_TTL", RegistryCacheTTL),
		},
		OCR: OCRConfig{
			URL:           getEnv("OCR_URL", "http://localhost:9091/ocr"),
			APIKey:        os.Getenv("OCR_API_KEY"),
			Timeout:       getDuration("OCR_TIMEOUT", 20*time.Second),
			MaxImageBytes: int64(getInt("OCR_MAX_IMAGE_BYTES", DefaultMaxImageBytes)),
		},
		Biometric: BiometricConfig{
			Policy:    getEnv("BIOMETRIC_POLICY", "always_pass"),
			PassRatio: getFloat("BIOMETRIC_PASS_RATIO", 0.7),
			RemoteURL: os.Getenv("BIOMETRIC_REMOTE_URL"),
			APIKey:    os.Getenv("BIOMETRIC_API_KEY"),
			Threshold: getFloat("BIOMETRIC_THRESHOLD", 0.8),
			Timeout:   getDuration("BIOMETRIC_TIMEOUT", 10*time.Second),
		},
		Email: EmailConfig{
			InstitutionalSuffix: getEnv("EMAIL_INSTITUTIONAL_SUFFIX", DefaultInstitutionalSuffix),
			CodeTTL:             getDuration("EMAIL_CODE_TTL", DefaultCodeTTL),
			ResendCooldown:      getDuration("EMAIL_RESEND_COOLDOWN", DefaultResendCooldown),
			MaxCodeAttempts:     getInt("EMAIL_MAX_CODE_ATTEMPTS", DefaultMaxCodeAttempts),
			Dispatcher:          getEnv("EMAIL_DISPATCHER", "log"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_CODE_TOPIC", "verification-codes"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		ReferralCode: getEnv("REFERRAL_CODE", DefaultReferralCode),
	}
}

// IsProduction reports whether the service runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
