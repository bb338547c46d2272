package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"addr":               "server.addr",
	"base-path":          "server.base_path",
	"debug":              "server.debug",
	"cors-origins":       "server.cors_origins",
	"db-driver":          "database.driver",
	"db-dsn":             "database.dsn",
	"jwt-signing-key":    "jwt.signing_key",
	"jwt-ttl":            "jwt.ttl",
	"otp-length":         "otp.length",
	"otp-ttl":            "otp.ttl",
	"otp-resend":         "otp.resend_interval",
	"otp-throttle":       "otp.throttle",
	"redis-addr":         "redis.addr",
	"mail-transport":     "mail.transport",
	"mail-from":          "mail.from",
	"smtp-host":          "mail.smtp_host",
	"smtp-port":          "mail.smtp_port",
	"deterministic-ids":  "accounts.deterministic_ids",
	"seed-demo-accounts": "seed.demo_accounts",
	"log-level":          "log.level",
	"log-format":         "log.format",
}

// RegisterFlags declares the command line overrides on fs, using the values
// in Default() as flag defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Server.Addr, "HTTP listen address")
	fs.String("base-path", d.Server.BasePath, "API base path")
	fs.Bool("debug", d.Server.Debug, "log request payloads")
	fs.StringSlice("cors-origins", nil, "allowed CORS origins")
	fs.String("db-driver", d.Database.Driver, "database driver (sqlite or postgres)")
	fs.String("db-dsn", d.Database.DSN, "database connection string")
	fs.String("jwt-signing-key", d.JWT.SigningKey, "HMAC signing key, at least 32 bytes")
	fs.Duration("jwt-ttl", d.JWT.TTL, "access token lifetime")
	fs.Int("otp-length", d.OTP.Length, "number of digits in a verification code")
	fs.Duration("otp-ttl", d.OTP.TTL, "verification code validity")
	fs.Duration("otp-resend", d.OTP.ResendInterval, "minimum interval between code resends")
	fs.String("otp-throttle", d.OTP.Throttle, "resend throttle backend (memory or redis)")
	fs.String("redis-addr", d.Redis.Addr, "redis address for the resend throttle")
	fs.String("mail-transport", d.Mail.Transport, "mail transport (smtp or log)")
	fs.String("mail-from", d.Mail.From, "sender address")
	fs.String("smtp-host", d.Mail.SMTPHost, "SMTP relay host")
	fs.Int("smtp-port", d.Mail.SMTPPort, "SMTP relay port")
	fs.Bool("deterministic-ids", d.Accounts.DeterministicIDs, "derive account ids from the email")
	fs.Bool("seed-demo-accounts", d.Seed.DemoAccounts, "create the demo accounts when seeding")
	fs.String("log-level", d.Log.Level, "log level")
	fs.String("log-format", d.Log.Format, "log format (text or json)")
}

// Load builds the configuration from Default(), then the YAML file at path
// when path is not empty, then the flags in fs that map to a key. Flags left
// unset do not override values from the file.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				In("config").
				With("path", path).
				Wrapf(err, "load config file")
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				In("config").
				Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			In("config").
			Wrapf(err, "decode config")
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			In("config").
			Wrapf(err, "invalid config")
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Server.BasePath = "/" + strings.Trim(c.Server.BasePath, "/")
	if c.Server.BasePath == "/" {
		c.Server.BasePath = ""
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = append([]string(nil), DefaultCORSOrigins...)
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	c.OTP.Throttle = strings.ToLower(c.OTP.Throttle)
	c.Mail.Transport = strings.ToLower(c.Mail.Transport)
	c.Accounts.DefaultRole = strings.ToUpper(c.Accounts.DefaultRole)
}
