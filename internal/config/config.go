package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default suggestion lists used when the overrides are unset or empty after trimming.
var (
	DefaultStoreOptions         = []string{"スーパーA", "コンビニB", "ドラッグストアC"}
	DefaultPaymentMethodOptions = []string{"現金", "クレジットカード", "QRコード決済"}
)

// Backends
const (
	BackendWebDAV = "webdav"
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// Networks, in addition to loopback and private ranges, whose
	// forwarding headers are believed.
	TrustedProxies []string

	// Backend selection
	DataBackend string

	// WebDAV (required per request for the webdav backend)
	WebDAVURL       string
	WebDAVUsername  string
	WebDAVPassword  string
	SpreadsheetPath string
	WebDAVTimeout   time.Duration

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Suggestions
	StoreOptions         []string
	PaymentMethodOptions []string

	// Submission journal (empty disables it)
	SubmissionLogPath string

	// AMQP (empty URL disables events)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Logging
	LogLevel  string
	LogFormat string
}

// Connection holds the settings needed to reach the remote document.
type Connection struct {
	URL      string
	Username string
	Password string
	Path     string
	Timeout  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     ParseOptions(os.Getenv("TRUSTED_PROXIES"), nil),
		DataBackend:        getEnv("DATA_BACKEND", BackendWebDAV),

		WebDAVURL:       strings.TrimSpace(os.Getenv("WEBDAV_URL")),
		WebDAVUsername:  os.Getenv("WEBDAV_USERNAME"),
		WebDAVPassword:  os.Getenv("WEBDAV_PASSWORD"),
		SpreadsheetPath: strings.TrimSpace(os.Getenv("SPREADSHEET_PATH")),
		WebDAVTimeout:   getEnvDuration("WEBDAV_TIMEOUT", 30*time.Second),

		GoogleSpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		GoogleServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		GoogleServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),

		StoreOptions:         ParseOptions(os.Getenv("STORE_OPTIONS"), DefaultStoreOptions),
		PaymentMethodOptions: ParseOptions(os.Getenv("PAYMENT_METHOD_OPTIONS"), DefaultPaymentMethodOptions),

		SubmissionLogPath: getEnv("SUBMISSION_LOG_PATH", ""),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "kakeibo"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "entries.appended"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Connection returns the remote document settings.
func (c *Config) Connection() Connection {
	return Connection{
		URL:      c.WebDAVURL,
		Username: c.WebDAVUsername,
		Password: c.WebDAVPassword,
		Path:     c.SpreadsheetPath,
		Timeout:  c.WebDAVTimeout,
	}
}

// Missing lists the absent required settings, in env var names.
func (c Connection) Missing() []string {
	var missing []string
	if c.URL == "" {
		missing = append(missing, "WEBDAV_URL")
	}
	if c.Username == "" {
		missing = append(missing, "WEBDAV_USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "WEBDAV_PASSWORD")
	}
	if c.Path == "" {
		missing = append(missing, "SPREADSHEET_PATH")
	}
	return missing
}

// Complete reports whether every required setting is present.
func (c Connection) Complete() bool {
	return len(c.Missing()) == 0
}

// Validate validates the configuration and returns an error if invalid.
// Connection settings are checked per request by the append path, not here.
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be positive", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	// Validate data backend
	validBackends := []string{BackendWebDAV, BackendSheets, BackendMemory}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.WebDAVURL != "" {
		if parsedURL, err := url.Parse(c.WebDAVURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid WebDAV URL '%s': %v", c.WebDAVURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid WebDAV URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.WebDAVTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid WebDAV timeout %v: must be positive", c.WebDAVTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ParseOptions splits a comma separated override list, trimming items and
// dropping empty ones. It falls back to a copy of defaults when nothing remains.
func ParseOptions(raw string, defaults []string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaults...)
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
