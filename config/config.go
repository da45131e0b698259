package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`

	// Document store: "firestore" or "mongo".
	StoreDriver             string `mapstructure:"STORE_DRIVER"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	DatabaseName            string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Razorpay.
	RazorpayKeyID         string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `mapstructure:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `mapstructure:"RAZORPAY_WEBHOOK_SECRET"`
	DefaultCurrency       string `mapstructure:"DEFAULT_CURRENCY"`

	// Slots offered per event day, comma separated.
	SlotLabels string `mapstructure:"SLOT_LABELS"`

	// Webhook booking lookup.
	WebhookInitialDelay time.Duration `mapstructure:"WEBHOOK_INITIAL_DELAY"`
	WebhookRetryDelay   time.Duration `mapstructure:"WEBHOOK_RETRY_DELAY"`
	WebhookMaxAttempts  int           `mapstructure:"WEBHOOK_MAX_ATTEMPTS"`

	// Cleanup sweep.
	SweepCron       string        `mapstructure:"SWEEP_CRON"`
	SweepTimezone   string        `mapstructure:"SWEEP_TIMEZONE"`
	SweepStaleAfter time.Duration `mapstructure:"SWEEP_STALE_AFTER"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("STORE_DRIVER", "firestore")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "slotbook")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("RAZORPAY_KEY_ID", "")
	v.SetDefault("RAZORPAY_KEY_SECRET", "")
	v.SetDefault("RAZORPAY_WEBHOOK_SECRET", "")
	v.SetDefault("DEFAULT_CURRENCY", "INR")
	v.SetDefault("SLOT_LABELS", strings.Join(DefaultSlotLabels(), ","))
	v.SetDefault("WEBHOOK_INITIAL_DELAY", 2*time.Second)
	v.SetDefault("WEBHOOK_RETRY_DELAY", 3*time.Second)
	v.SetDefault("WEBHOOK_MAX_ATTEMPTS", 5)
	v.SetDefault("SWEEP_CRON", "*/5 * * * *")
	v.SetDefault("SWEEP_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("SWEEP_STALE_AFTER", 5*time.Minute)
}

// Validate checks the settings the server cannot run without. Gateway credentials are not
// required here: the order endpoint answers 500 on its own when they are missing.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case "firestore":
		if c.FirebaseProjectID == "" && c.FirebaseCredentialsFile == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_FILE is required for the firestore store"))
		}
	case "mongo":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.RazorpayWebhookSecret == "" {
		errs = append(errs, errors.New("RAZORPAY_WEBHOOK_SECRET is required"))
	}
	if c.WebhookMaxAttempts < 1 {
		errs = append(errs, errors.New("WEBHOOK_MAX_ATTEMPTS must be at least 1"))
	}
	if len(c.Slots()) == 0 {
		errs = append(errs, errors.New("SLOT_LABELS must list at least one slot"))
	}
	if _, err := time.LoadLocation(c.SweepTimezone); err != nil {
		errs = append(errs, fmt.Errorf("SWEEP_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Slots returns the configured slot labels in order.
func (c Config) Slots() []string {
	var labels []string
	for _, l := range strings.Split(c.SlotLabels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// HasGatewayCredentials reports whether the Razorpay key pair is configured.
func (c Config) HasGatewayCredentials() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

// DefaultSlotLabels is the event day: 10 minute slots from 09:00 AM to 05:50 PM.
func DefaultSlotLabels() []string {
	var labels []string
	start := time.Date(2000, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2000, 1, 1, 18, 0, 0, 0, time.UTC)
	for t := start; t.Before(end); t = t.Add(10 * time.Minute) {
		labels = append(labels, t.Format("03:04 PM"))
	}
	return labels
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
