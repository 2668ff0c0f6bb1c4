package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"storefront"`

	ServerPort int `envconfig:"SERVER_PORT" default:"8080"`

	// DatabaseURL is a postgres DSN, or "sqlite:<path>" for a local file.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// RedisAddr empty keeps guest carts in process memory.
	RedisAddr    string        `envconfig:"REDIS_ADDR"`
	GuestCartTTL time.Duration `envconfig:"GUEST_CART_TTL" default:"168h"`

	JWTAccessSecret string `envconfig:"JWT_SECRET"`
	AuthHTTPURL     string `envconfig:"AUTH_URL"`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	MaxQuantityPerRequest int  `envconfig:"MAX_QUANTITY_PER_REQUEST" default:"999"`
	CSRFSecure            bool `envconfig:"CSRF_SECURE" default:"false"`
}

// Load reads the optional env files and then the process environment.
// Variables already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			log.Printf("notice: env file not loaded: %v, using system environment", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Brokers() []string {
	return CSV(c.KafkaBrokers)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
