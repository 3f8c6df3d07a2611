package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string
	JWTSigningKey  string
	AccessTokenTTL time.Duration

	Persona PersonaConfig
	Onfido  OnfidoConfig
	Redis   RedisConfig
	Audit   AuditConfig
}

// PersonaConfig selects the Persona KYC integration. With no API key the
// service falls back to the client-side template flow.
type PersonaConfig struct {
	APIKey      string
	TemplateID  string
	Environment string
	BaseURL     string
}

// OnfidoConfig selects the Onfido KYC integration. With no API token the
// SDK token endpoint reports the vendor as unavailable.
type OnfidoConfig struct {
	APIToken string
}

// RedisConfig configures the optional Redis-backed session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig configures audit event fan-out. Brokers empty means the Kafka
// sink stays disabled and events only hit the local store.
type AuditConfig struct {
	KafkaBrokers string
	KafkaTopic   string
	AsyncBuffer  int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VALID8_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	personaBase := os.Getenv("PERSONA_API_BASE")
	if personaBase == "" {
		personaBase = "https://withpersona.com/api/v1"
	}
	personaEnv := os.Getenv("PERSONA_ENV")
	if personaEnv == "" {
		personaEnv = "sandbox"
	}

	kafkaTopic := os.Getenv("AUDIT_KAFKA_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "valid8.audit"
	}

	return Server{
		Addr:           addr,
		JWTSigningKey:  jwtSigningKey,
		AccessTokenTTL: envDuration("ACCESS_TOKEN_TTL", time.Hour),
		Persona: PersonaConfig{
			APIKey:      os.Getenv("PERSONA_API_KEY"),
			TemplateID:  os.Getenv("PERSONA_TEMPLATE_ID"),
			Environment: personaEnv,
			BaseURL:     personaBase,
		},
		Onfido: OnfidoConfig{
			APIToken: os.Getenv("ONFIDO_API_TOKEN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			KafkaBrokers: os.Getenv("AUDIT_KAFKA_BROKERS"),
			KafkaTopic:   kafkaTopic,
			AsyncBuffer:  envInt("AUDIT_ASYNC_BUFFER", 256),
		},
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
