package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
)

// const dsn = "host=localhost user=postgres password=password dbname=vbsdb port=5432 sslmode=disable TimeZone=Africa/Nairobi"

const (
	DATE_PARSE_FORMAT = "2006-01-02"
	TIME_PARSE_FORMAT = "15:04"
)

type Environment string

const (
	Local      Environment = "local"
	Test       Environment = "test"
	Production Environment = "production"
)

// Config is built once at startup and passed to every component that needs
// provider credentials or callback URLs.
type Config struct {
	Env             Environment
	Port            string
	APIHost         string
	AppHost         string
	JWTSecret       string
	MaintenanceMode bool

	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string
	DatabaseTimezone string

	RedisURL       string
	StatusCacheTTL time.Duration

	Currency                string
	StripeSecretKey         string
	StripeWebhookSecret     string
	CheckoutSuccessURL      string
	CheckoutCancelURL       string
	TicketOnCheckoutSession bool

	MpesaBaseURL        string
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortCode      string
	MpesaPassKey        string
	MpesaCallbackURL    string
	MpesaCallbackToken  string
	ProviderTimeout     time.Duration

	PendingBookingTTL time.Duration
	SweepInterval     time.Duration

	KafkaBroker     string
	EventsTopic     string
	EventsQueueName string
	AWSSecretsID    string

	PusherAppID   string
	PusherKey     string
	PusherSecret  string
	PusherCluster string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailFromName string
}

// Load reads the process environment. When API_ENV is local the .env file in
// the working directory is loaded first.
func Load() (*Config, error) {
	if os.Getenv("API_ENV") == string(Local) {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("Could not load .env file: %s\n", err.Error())
		}
	}
	cfg := &Config{
		Env:             Environment(getEnv("API_ENV", string(Local))),
		Port:            getEnv("PORT", "9090"),
		APIHost:         os.Getenv("API_HOST"),
		AppHost:         os.Getenv("APP_HOST"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		MaintenanceMode: getBool("MAINTENANCE_MODE", false),

		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnv("DATABASE_PORT", "5432"),
		DatabaseUser:     getEnv("DATABASE_USER", "postgres"),
		DatabasePassword: os.Getenv("DATABASE_PASSWORD"),
		DatabaseName:     getEnv("DATABASE_NAME", "vbsdb"),
		DatabaseSSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		DatabaseTimezone: getEnv("DATABASE_TIMEZONE", "Africa/Nairobi"),

		RedisURL:       os.Getenv("REDIS_HOST"),
		StatusCacheTTL: getDuration("STATUS_CACHE_TTL", 10*time.Minute),

		Currency:                strings.ToLower(getEnv("CURRENCY", "kes")),
		StripeSecretKey:         os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutSuccessURL:      os.Getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:       os.Getenv("CHECKOUT_CANCEL_URL"),
		TicketOnCheckoutSession: getBool("TICKET_ON_CHECKOUT_SESSION", true),

		MpesaBaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		MpesaConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		MpesaConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		MpesaShortCode:      os.Getenv("MPESA_SHORTCODE"),
		MpesaPassKey:        os.Getenv("MPESA_PASSKEY"),
		MpesaCallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		MpesaCallbackToken:  os.Getenv("MPESA_CALLBACK_TOKEN"),
		ProviderTimeout:     getDuration("PROVIDER_TIMEOUT", 30*time.Second),

		PendingBookingTTL: getDuration("PENDING_BOOKING_TTL", 30*time.Minute),
		SweepInterval:     getDuration("SWEEP_INTERVAL", time.Minute),

		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		EventsTopic:     getEnv("EVENTS_TOPIC", "PaymentUpdates"),
		EventsQueueName: getEnv("EVENTS_QUEUE", "PaymentUpdates"),
		AWSSecretsID:    os.Getenv("AWS_SECRETS_ID"),

		PusherAppID:   os.Getenv("PUSHER_APP_ID"),
		PusherKey:     os.Getenv("PUSHER_KEY"),
		PusherSecret:  os.Getenv("PUSHER_SECRET"),
		PusherCluster: getEnv("PUSHER_CLUSTER", "ap2"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),
		MailFromName: getEnv("MAIL_FROM_NAME", "Bookings"),
	}
	return cfg, nil
}

// Validate reports the settings that the payment flows cannot run without.
func (c *Config) Validate() error {
	var missing []string
	required := map[string]string{
		"JWT_SECRET":            c.JWTSecret,
		"STRIPE_SECRET_KEY":     c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": c.StripeWebhookSecret,
		"MPESA_CONSUMER_KEY":    c.MpesaConsumerKey,
		"MPESA_CONSUMER_SECRET": c.MpesaConsumerSecret,
		"MPESA_SHORTCODE":       c.MpesaShortCode,
		"MPESA_PASSKEY":         c.MpesaPassKey,
		"MPESA_CALLBACK_URL":    c.MpesaCallbackURL,
		"MPESA_CALLBACK_TOKEN":  c.MpesaCallbackToken,
	}
	for k, v := range required {
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DatabaseHost, c.DatabaseUser, c.DatabasePassword, c.DatabaseName, c.DatabasePort, c.DatabaseSSLMode, c.DatabaseTimezone)
}

func (c *Config) IsProd() bool {
	return c.Env == Production
}

// MpesaCallbackEndpoint is the URL handed to the provider, carrying the shared
// token the callback route checks.
func (c *Config) MpesaCallbackEndpoint() string {
	sep := "?"
	if strings.Contains(c.MpesaCallbackURL, "?") {
		sep = "&"
	}
	return c.MpesaCallbackURL + sep + "token=" + c.MpesaCallbackToken
}

// LoadSecrets overlays provider credentials stored as a JSON secret in AWS
// Secrets Manager. It does nothing when AWS_SECRETS_ID is unset.
func LoadSecrets(ctx context.Context, c *Config) error {
	if c.AWSSecretsID == "" {
		return nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Error loading default config: %s\n", err.Error())
		return err
	}
	client := secretsmanager.NewFromConfig(awsCfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(c.AWSSecretsID),
	})
	if err != nil {
		log.Printf("Error retrieving secret %s: %s\n", c.AWSSecretsID, err.Error())
		return err
	}
	if out.SecretString == nil {
		return errors.New("secret has no string value")
	}
	ApplySecrets(c, *out.SecretString)
	return nil
}

// ApplySecrets copies the known keys of a JSON secret document onto c.
// Keys absent from the document leave the current value untouched.
func ApplySecrets(c *Config, doc string) {
	fields := map[string]*string{
		"JWT_SECRET":            &c.JWTSecret,
		"DATABASE_PASSWORD":     &c.DatabasePassword,
		"STRIPE_SECRET_KEY":     &c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": &c.StripeWebhookSecret,
		"MPESA_CONSUMER_KEY":    &c.MpesaConsumerKey,
		"MPESA_CONSUMER_SECRET": &c.MpesaConsumerSecret,
		"MPESA_PASSKEY":         &c.MpesaPassKey,
		"MPESA_CALLBACK_TOKEN":  &c.MpesaCallbackToken,
		"SMTP_PASSWORD":         &c.SMTPPassword,
		"PUSHER_SECRET":         &c.PusherSecret,
	}
	for key, dst := range fields {
		if v := gjson.Get(doc, key); v.Exists() && v.String() != "" {
			*dst = v.String()
		}
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
