package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"agency-forms/utils"
)

// Well-known relay used by the contact form. Only the credentials vary per
// deployment.
const (
	ContactRelayHost = "smtp.gmail.com"
	ContactRelayPort = 587
)

var ErrNotConfigured = errors.New("smtp credentials are not configured")

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Secure   bool   `yaml:"secure"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Addr returns host:port of the relay.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate reports whether the relay can be used at all. Handlers call it per
// request so a missing credential fails closed without blocking startup.
func (s SMTPConfig) Validate() error {
	var missing []string
	if s.Host == "" {
		missing = append(missing, "host")
	}
	if s.Port <= 0 {
		missing = append(missing, "port")
	}
	if s.Username == "" {
		missing = append(missing, "username")
	}
	if s.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// Sender returns the From address, falling back to the login user.
func (s SMTPConfig) Sender() string {
	if s.From != "" {
		return s.From
	}
	return s.Username
}

type MailPolicy struct {
	// Timeout bounds a single relay session (verify or one send attempt).
	Timeout time.Duration `yaml:"timeout" env:"MAIL_TIMEOUT"`
	// RequestTimeout bounds all relay work done for one form submission,
	// retries included.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"MAIL_REQUEST_TIMEOUT"`
	MaxRetries     uint64        `yaml:"max_retries" env:"MAIL_MAX_RETRIES"`
	// RetryBackoff is the first delay of the exponential retry schedule.
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"MAIL_RETRY_BACKOFF"`
	RatePerSec   float64       `yaml:"rate_per_sec" env:"MAIL_RATE_PER_SEC"`
	Burst        int           `yaml:"burst" env:"MAIL_BURST"`
	DevDir       string        `yaml:"dev_dir" env:"MAIL_DEV_DIR"`
}

type Config struct {
	Server struct {
		Port        string   `yaml:"port" env:"PORT"`
		Host        string   `yaml:"host" env:"HOST"`
		CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	} `yaml:"server"`

	App struct {
		Env  string `yaml:"env" env:"APP_ENV"`
		Name string `yaml:"name" env:"APP_NAME"`
	} `yaml:"app"`

	// Contact form relay. Host and port are fixed to the provider unless
	// overridden; credentials come from EMAIL_USER / EMAIL_PASS.
	Contact struct {
		SMTP       SMTPConfig `yaml:"smtp"`
		Recipients []string   `yaml:"recipients" env:"CONTACT_RECIPIENTS" envSeparator:","`
	} `yaml:"contact"`

	// Waiting list relay, configured independently.
	WaitingList struct {
		SMTP SMTPConfig `yaml:"smtp"`
	} `yaml:"waiting_list"`

	Mail MailPolicy `yaml:"mail"`

	Database struct {
		URL string `yaml:"url" env:"DATABASE_URL"`
	} `yaml:"database"`

	Submissions struct {
		CacheSize int           `yaml:"cache_size" env:"SUBMISSION_CACHE_SIZE"`
		CacheTTL  time.Duration `yaml:"cache_ttl" env:"SUBMISSION_CACHE_TTL"`
	} `yaml:"submissions"`
}

// envSMTP maps the environment variables of both relays onto SMTPConfig
// fields. SMTPConfig itself carries no env tags since the two relays use
// different variable names.
type envSMTP struct {
	ContactHost string `env:"CONTACT_SMTP_HOST"`
	ContactPort int    `env:"CONTACT_SMTP_PORT"`
	ContactUser string `env:"EMAIL_USER"`
	ContactPass string `env:"EMAIL_PASS"`
	ContactFrom string `env:"CONTACT_FROM"`

	Host   string `env:"SMTP_HOST"`
	Port   int    `env:"SMTP_PORT"`
	Secure *bool  `env:"SMTP_SECURE"`
	User   string `env:"SMTP_USER"`
	Pass   string `env:"SMTP_PASS"`
	From   string `env:"SMTP_FROM"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.App.Env = "development"
	cfg.App.Name = "agency-forms"
	cfg.Contact.SMTP.Host = ContactRelayHost
	cfg.Contact.SMTP.Port = ContactRelayPort
	cfg.Contact.Recipients = []string{"info@agency.example"}
	cfg.WaitingList.SMTP.Port = 587
	cfg.Mail = MailPolicy{
		Timeout:        10 * time.Second,
		RequestTimeout: 25 * time.Second,
		MaxRetries:     2,
		RetryBackoff:   500 * time.Millisecond,
		RatePerSec:     5,
		Burst:          5,
	}
	cfg.Submissions.CacheSize = 1024
	cfg.Submissions.CacheTTL = 24 * time.Hour
	return cfg
}

// LoadConfig applies defaults, then the YAML file at configPath if it exists,
// then environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		file, err := os.Open(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(config); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", configPath, err)
			}
		}
	}

	if err := config.overrideWithEnvVars(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) overrideWithEnvVars() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	var e envSMTP
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("failed to parse smtp environment: %w", err)
	}

	c.Contact.Recipients = utils.SplitList(strings.Join(c.Contact.Recipients, ","))

	setString(&c.Contact.SMTP.Host, e.ContactHost)
	setInt(&c.Contact.SMTP.Port, e.ContactPort)
	setString(&c.Contact.SMTP.Username, e.ContactUser)
	setString(&c.Contact.SMTP.Password, e.ContactPass)
	setString(&c.Contact.SMTP.From, e.ContactFrom)

	setString(&c.WaitingList.SMTP.Host, e.Host)
	setInt(&c.WaitingList.SMTP.Port, e.Port)
	if e.Secure != nil {
		c.WaitingList.SMTP.Secure = *e.Secure
	}
	setString(&c.WaitingList.SMTP.Username, e.User)
	setString(&c.WaitingList.SMTP.Password, e.Pass)
	setString(&c.WaitingList.SMTP.From, e.From)

	if len(c.Contact.Recipients) == 0 {
		log.Printf("WARNING: no contact recipients configured")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func MustLoadConfig(configPath string) *Config {
	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return config
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// WriteTimeout is the HTTP write deadline. It leaves room after the mail
// budget so a timed out submission can still be answered.
func (c *Config) WriteTimeout() time.Duration {
	const margin = 5 * time.Second
	if c.Mail.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return c.Mail.RequestTimeout + margin
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
