package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	GoEnv string `envconfig:"GO_ENV" default:"dev"` // dev/prod

	// DATABASE_URLがあれば最優先
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"saptrangi"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	JWTSecret       string        `envconfig:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"24h"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
	CookieSecure    bool          `envconfig:"COOKIE_SECURE" default:"true"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	OTPTTL     time.Duration `envconfig:"OTP_TTL" default:"5m"`
	OTPDevMode bool          `envconfig:"OTP_DEV_MODE" default:"false"`

	// log / msg91
	SMSProvider   string `envconfig:"SMS_PROVIDER" default:"log"`
	MSG91AuthKey  string `envconfig:"MSG91_AUTH_KEY"`
	MSG91FlowID   string `envconfig:"MSG91_FLOW_ID"`
	MSG91SenderID string `envconfig:"MSG91_SENDER_ID"`
	MSG91BaseURL  string `envconfig:"MSG91_BASE_URL" default:"https://api.msg91.com"`

	RazorpayKeyID         string        `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string        `envconfig:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string        `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	RazorpayBaseURL       string        `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	PaymentCurrency       string        `envconfig:"PAYMENT_CURRENCY" default:"INR"`
	GatewayTimeout        time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`
	GatewayMaxRetry       time.Duration `envconfig:"GATEWAY_MAX_RETRY" default:"15s"`
	PaymentSuccessURL     string        `envconfig:"PAYMENT_SUCCESS_URL" default:"http://localhost:3000/order-success"`
	PaymentFailureURL     string        `envconfig:"PAYMENT_FAILURE_URL" default:"http://localhost:3000/payment-failed"`

	// 空ならイベント送信しない
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"order-events"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Loadは環境変数から読み込んで必須チェックまで行う
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProd() bool {
	return strings.EqualFold(c.GoEnv, "prod")
}

// DSNはgorm(postgres)用の接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) Validate() error {
	//必須チェック
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}

	switch c.SMSProvider {
	case "log":
		if c.IsProd() {
			return fmt.Errorf("SMS_PROVIDER=log is not allowed in prod")
		}
	case "msg91":
		if c.MSG91AuthKey == "" || c.MSG91FlowID == "" {
			return fmt.Errorf("MSG91_AUTH_KEY and MSG91_FLOW_ID are required")
		}
	default:
		return fmt.Errorf("SMS_PROVIDER must be log or msg91")
	}

	//本番は決済キー必須
	if c.IsProd() {
		if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
		}
		if c.RazorpayWebhookSecret == "" {
			return fmt.Errorf("RAZORPAY_WEBHOOK_SECRET is required")
		}
		if c.OTPDevMode {
			return fmt.Errorf("OTP_DEV_MODE must be off in prod")
		}
	}
	return nil
}
