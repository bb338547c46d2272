// Package config loads the authd service configuration from code defaults,
// an optional YAML file and command line flags, in that order of precedence.
package config

import (
	"time"

	auth "github.com/edutrial/go-auth"
	"github.com/edutrial/go-auth/mailer"
)

// Throttle backends
const (
	ThrottleMemory = "memory"
	ThrottleRedis  = "redis"
)

// Mail transports
const (
	MailTransportSMTP = "smtp"
	MailTransportLog  = "log"
)

type Config struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	JWT      JWT      `koanf:"jwt"`
	OTP      OTP      `koanf:"otp"`
	Redis    Redis    `koanf:"redis"`
	Mail     Mail     `koanf:"mail"`
	Accounts Accounts `koanf:"accounts"`
	Seed     Seed     `koanf:"seed"`
	Log      Log      `koanf:"log"`
}

type Server struct {
	Addr            string        `koanf:"addr"`
	BasePath        string        `koanf:"base_path"`
	Debug           bool          `koanf:"debug"`
	PublicPaths     []string      `koanf:"public_paths"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type Database struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type JWT struct {
	SigningKey          string        `koanf:"signing_key"`
	PreviousSigningKeys []string      `koanf:"previous_signing_keys"`
	SigningMethod       string        `koanf:"signing_method"`
	Issuer              string        `koanf:"issuer"`
	TTL                 time.Duration `koanf:"ttl"`
	AuthScheme          string        `koanf:"auth_scheme"`
	ContextKey          string        `koanf:"context_key"`
}

type OTP struct {
	Length         int           `koanf:"length"`
	TTL            time.Duration `koanf:"ttl"`
	ResendInterval time.Duration `koanf:"resend_interval"`
	Throttle       string        `koanf:"throttle"`
}

type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type Mail struct {
	Transport   string        `koanf:"transport"`
	From        string        `koanf:"from"`
	SMTPHost    string        `koanf:"smtp_host"`
	SMTPPort    int           `koanf:"smtp_port"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	Workers     int           `koanf:"workers"`
	MaxWorkers  int           `koanf:"max_workers"`
	QueueSize   int           `koanf:"queue_size"`
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	SendTimeout time.Duration `koanf:"send_timeout"`
}

type Accounts struct {
	DeterministicIDs bool   `koanf:"deterministic_ids"`
	PhoneRegion      string `koanf:"phone_region"`
	DefaultRole      string `koanf:"default_role"`
}

type Seed struct {
	AdminEmail     string `koanf:"admin_email"`
	AdminPassword  string `koanf:"admin_password"`
	AdminFirstName string `koanf:"admin_first_name"`
	AdminLastName  string `koanf:"admin_last_name"`
	DemoAccounts   bool   `koanf:"demo_accounts"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultCORSOrigins applies when no origin is configured
var DefaultCORSOrigins = []string{"http://localhost:3000"}

// AllowedOrigins returns the CORS origins, falling back to
// DefaultCORSOrigins when none are set
func (s Server) AllowedOrigins() []string {
	if len(s.CORSOrigins) == 0 {
		return append([]string(nil), DefaultCORSOrigins...)
	}
	return s.CORSOrigins
}

// Default returns the configuration used when nothing overrides it. The
// signing key is left empty and must be provided.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			BasePath:        "/api/v1",
			ShutdownTimeout: 15 * time.Second,
		},
		Database: Database{
			Driver: auth.DriverSQLite,
			DSN:    "file:edutrial.db",
		},
		JWT: JWT{
			SigningMethod: "HS256",
			Issuer:        "edutrial",
			TTL:           auth.DefaultTokenTTL,
			AuthScheme:    "Bearer",
			ContextKey:    auth.DefaultContextKey,
		},
		OTP: OTP{
			Length:         auth.DefaultOTPLength,
			TTL:            auth.DefaultOTPTTL,
			ResendInterval: auth.DefaultResendInterval,
			Throttle:       ThrottleMemory,
		},
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "edutrial:otp:resend:",
		},
		Mail: Mail{
			Transport:   MailTransportLog,
			From:        "EDU TRIAL <no-reply@edutrial.local>",
			SMTPPort:    587,
			Workers:     mailer.DefaultWorkers,
			MaxWorkers:  mailer.DefaultMaxWorkers,
			QueueSize:   mailer.DefaultQueueSize,
			IdleTimeout: mailer.DefaultIdleTimeout,
			SendTimeout: mailer.DefaultSendTimeout,
		},
		Accounts: Accounts{
			PhoneRegion: auth.DefaultPhoneRegion,
			DefaultRole: auth.DefaultRole,
		},
		Seed: Seed{
			AdminEmail:     "admin@edutrial.local",
			AdminPassword:  "123456",
			AdminFirstName: "Super",
			AdminLastName:  "Admin",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

var (
	_ auth.Config    = (*Config)(nil)
	_ auth.OTPConfig = (*Config)(nil)
)

func (c *Config) GetSigningKey() string { return c.JWT.SigningKey }

func (c *Config) GetSigningMethod() string { return c.JWT.SigningMethod }

func (c *Config) GetIssuer() string { return c.JWT.Issuer }

func (c *Config) GetTokenTTL() time.Duration { return c.JWT.TTL }

func (c *Config) GetAuthScheme() string { return c.JWT.AuthScheme }

func (c *Config) GetContextKey() string { return c.JWT.ContextKey }

func (c *Config) GetOTPLength() int { return c.OTP.Length }

func (c *Config) GetOTPTTL() time.Duration { return c.OTP.TTL }

func (c *Config) GetResendInterval() time.Duration { return c.OTP.ResendInterval }

// GetPublicPaths returns the configured allowlist, or nil to fall back to
// auth.DefaultPublicPaths.
func (c *Config) GetPublicPaths() []string {
	if len(c.Server.PublicPaths) == 0 {
		return nil
	}
	return c.Server.PublicPaths
}

// SMTP returns the relay settings for mailer.NewSMTPSender
func (c *Config) SMTP() mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:     c.Mail.SMTPHost,
		Port:     c.Mail.SMTPPort,
		Username: c.Mail.Username,
		Password: c.Mail.Password,
		From:     c.Mail.From,
	}
}

// AdminAccount is the bootstrap administrator
func (c *Config) AdminAccount() auth.SeedAccount {
	return auth.SeedAccount{
		Email:     c.Seed.AdminEmail,
		Password:  c.Seed.AdminPassword,
		FirstName: c.Seed.AdminFirstName,
		LastName:  c.Seed.AdminLastName,
		Role:      auth.RoleAdmin,
	}
}
