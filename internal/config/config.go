package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Sales    SalesConfig
	Stock    StockConfig
	Payments PaymentsConfig
	Notify   NotifyConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret    string
	AccessExpiry int // in minutes
}

// SalesConfig carries checkout business policy. The tax rate is a default
// only; every checkout may override it.
type SalesConfig struct {
	DefaultTaxRate float64 // percent
	Currency       string
}

// StockConfig carries the alerting thresholds. CriticalMultiplier is the
// fraction of a product's minimum stock level at or below which its
// status becomes critical.
type StockConfig struct {
	CriticalMultiplier float64
}

type PaymentsConfig struct {
	Enabled        bool
	ConfirmTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	MPesa          MPesaConfig
	Airtel         AirtelConfig
	TKash          APIKeyProviderConfig
	Equitel        APIKeyProviderConfig
}

type MPesaConfig struct {
	Enabled        bool
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
}

type AirtelConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
}

type APIKeyProviderConfig struct {
	Enabled bool
	APIKey  string
}

type NotifyConfig struct {
	SMS   SMSConfig
	Email EmailConfig
}

type SMSConfig struct {
	Enabled    bool
	AccountSID string
	AuthToken  string
	FromNumber string
}

type EmailConfig struct {
	Enabled    bool
	SMTPHost   string
	SMTPPort   int
	Sender     string
	Password   string
	Recipients []string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 480)
	viper.SetDefault("SALES_DEFAULT_TAX_RATE", 16.0)
	viper.SetDefault("SALES_CURRENCY", "KES")
	viper.SetDefault("STOCK_CRITICAL_MULTIPLIER", 0.3)
	viper.SetDefault("PAYMENTS_ENABLED", true)
	viper.SetDefault("PAYMENTS_CONFIRM_TIMEOUT", "90s")
	viper.SetDefault("PAYMENTS_MAX_RETRIES", 2)
	viper.SetDefault("PAYMENTS_RETRY_BACKOFF", "2s")
	viper.SetDefault("MPESA_ENABLED", true)
	viper.SetDefault("AIRTEL_ENABLED", true)
	viper.SetDefault("TKASH_ENABLED", true)
	viper.SetDefault("EQUITEL_ENABLED", true)
	viper.SetDefault("SMS_ENABLED", false)
	viper.SetDefault("EMAIL_ENABLED", false)
	viper.SetDefault("EMAIL_SMTP_HOST", "smtp.gmail.com")
	viper.SetDefault("EMAIL_SMTP_PORT", 587)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			JWTSecret:    viper.GetString("JWT_SECRET"),
			AccessExpiry: viper.GetInt("JWT_ACCESS_EXPIRY"),
		},
		Sales: SalesConfig{
			DefaultTaxRate: viper.GetFloat64("SALES_DEFAULT_TAX_RATE"),
			Currency:       viper.GetString("SALES_CURRENCY"),
		},
		Stock: StockConfig{
			CriticalMultiplier: viper.GetFloat64("STOCK_CRITICAL_MULTIPLIER"),
		},
		Payments: PaymentsConfig{
			Enabled:        viper.GetBool("PAYMENTS_ENABLED"),
			ConfirmTimeout: viper.GetDuration("PAYMENTS_CONFIRM_TIMEOUT"),
			MaxRetries:     viper.GetInt("PAYMENTS_MAX_RETRIES"),
			RetryBackoff:   viper.GetDuration("PAYMENTS_RETRY_BACKOFF"),
			MPesa: MPesaConfig{
				Enabled:        viper.GetBool("MPESA_ENABLED"),
				ConsumerKey:    viper.GetString("MPESA_CONSUMER_KEY"),
				ConsumerSecret: viper.GetString("MPESA_CONSUMER_SECRET"),
				Shortcode:      viper.GetString("MPESA_SHORTCODE"),
				Passkey:        viper.GetString("MPESA_PASSKEY"),
			},
			Airtel: AirtelConfig{
				Enabled:      viper.GetBool("AIRTEL_ENABLED"),
				ClientID:     viper.GetString("AIRTEL_CLIENT_ID"),
				ClientSecret: viper.GetString("AIRTEL_CLIENT_SECRET"),
			},
			TKash: APIKeyProviderConfig{
				Enabled: viper.GetBool("TKASH_ENABLED"),
				APIKey:  viper.GetString("TKASH_API_KEY"),
			},
			Equitel: APIKeyProviderConfig{
				Enabled: viper.GetBool("EQUITEL_ENABLED"),
				APIKey:  viper.GetString("EQUITEL_API_KEY"),
			},
		},
		Notify: NotifyConfig{
			SMS: SMSConfig{
				Enabled:    viper.GetBool("SMS_ENABLED"),
				AccountSID: viper.GetString("SMS_ACCOUNT_SID"),
				AuthToken:  viper.GetString("SMS_AUTH_TOKEN"),
				FromNumber: viper.GetString("SMS_FROM_NUMBER"),
			},
			Email: EmailConfig{
				Enabled:    viper.GetBool("EMAIL_ENABLED"),
				SMTPHost:   viper.GetString("EMAIL_SMTP_HOST"),
				SMTPPort:   viper.GetInt("EMAIL_SMTP_PORT"),
				Sender:     viper.GetString("EMAIL_SENDER"),
				Password:   viper.GetString("EMAIL_PASSWORD"),
				Recipients: viper.GetStringSlice("EMAIL_RECIPIENTS"),
			},
		},
	}
}
