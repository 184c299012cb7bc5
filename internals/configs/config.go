package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the typed view of the environment used by main and the CLI.
type Config struct {
	Port    string
	AppEnv  string
	AppName string

	DatabaseURL string
	DBSSLMode   string

	JWTSecret string

	PaymentGateway     string // paystack | midtrans | memory
	PaymentCurrency    string
	PaymentCallbackURL string
	GatewayTimeout     time.Duration
	PaystackSecretKey  string
	PaystackBaseURL    string
	MidtransServerKey  string
	MidtransUseProd    bool

	FormFeeDefault           decimal.Decimal
	OfferDeadlineDaysDefault int
	OfferExpiryCron          string

	RedisURL         string
	InitLockTTL      time.Duration
	CorsAllowOrigins string
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("[CONFIG] no .env file found, using system environment")
		} else {
			log.Println("[CONFIG] .env file loaded")
		}
	} else {
		log.Println("[CONFIG] running on Railway, using system environment")
	}
}

// Load reads the process environment. Call LoadEnv first when a .env file
// should be honoured.
func Load() Config {
	cfg := Config{
		Port:    GetEnv("PORT", "3000"),
		AppEnv:  strings.ToLower(GetEnv("APP_ENV", "development")),
		AppName: GetEnv("APP_NAME", "admissions"),

		DatabaseURL: GetEnv("DATABASE_URL"),
		DBSSLMode:   GetEnv("DB_SSLMODE", "require"),

		JWTSecret: GetEnv("JWT_SECRET"),

		PaymentGateway:     strings.ToLower(GetEnv("PAYMENT_GATEWAY", "paystack")),
		PaymentCurrency:    strings.ToUpper(GetEnv("PAYMENT_CURRENCY", "NGN")),
		PaymentCallbackURL: GetEnv("PAYMENT_CALLBACK_URL"),
		GatewayTimeout:     getEnvDuration("PAYMENT_GATEWAY_TIMEOUT", 15*time.Second),
		PaystackSecretKey:  GetEnv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:    GetEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		MidtransServerKey:  GetEnv("MIDTRANS_SERVER_KEY"),
		MidtransUseProd:    getEnvBool("MIDTRANS_USE_PROD", false),

		FormFeeDefault:           getEnvDecimal("FORM_FEE_DEFAULT", decimal.NewFromInt(5000)),
		OfferDeadlineDaysDefault: getEnvInt("OFFER_DEADLINE_DAYS_DEFAULT", 14),
		OfferExpiryCron:          GetEnv("OFFER_EXPIRY_CRON", "@every 15m"),

		RedisURL:         GetEnv("REDIS_URL"),
		InitLockTTL:      getEnvDuration("PAYMENT_INIT_LOCK_TTL", 30*time.Second),
		CorsAllowOrigins: GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts(cfg.DBSSLMode)
	}
	return cfg
}

// Validate reports missing settings that would make the server unusable.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch c.PaymentGateway {
	case "paystack":
		if c.PaystackSecretKey == "" {
			missing = append(missing, "PAYSTACK_SECRET_KEY")
		}
	case "midtrans":
		if c.MidtransServerKey == "" {
			missing = append(missing, "MIDTRANS_SERVER_KEY")
		}
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("PAYMENT_GATEWAY=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_GATEWAY %q", c.PaymentGateway)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if (!exists || value == "") && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func dsnFromParts(sslmode string) string {
	// statement_timeout keeps DB work inside the HTTP timeout guard
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=admissions&options=-c%%20statement_timeout=3000",
		GetEnv("DB_USER"),
		GetEnv("DB_PASSWORD"),
		GetEnv("DB_HOST", "127.0.0.1"),
		GetEnv("DB_PORT", "5432"),
		GetEnv("DB_NAME", "admissions"),
		sslmode,
	)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			return time.Duration(s) * time.Second
		}
	}
	return def
}

func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return def
	}
	return d
}
