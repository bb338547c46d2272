package config

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	auth "github.com/edutrial/go-auth"
)

// MinSigningKeyLength is the shortest accepted HMAC key
const MinSigningKeyLength = 32

func (c *Config) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.JWT),
		validation.Field(&c.OTP),
		validation.Field(&c.Mail),
		validation.Field(&c.Accounts),
		validation.Field(&c.Seed),
		validation.Field(&c.Log),
	}
	if c.OTP.Throttle == ThrottleRedis {
		rules = append(rules, validation.Field(&c.Redis))
	}
	return validation.ValidateStruct(c, rules...)
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ShutdownTimeout, validation.Min(0)),
	)
}

func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(auth.DriverSQLite, auth.DriverPostgres)),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (j JWT) Validate() error {
	return validation.ValidateStruct(&j,
		validation.Field(&j.SigningKey, validation.Required, validation.Length(MinSigningKeyLength, 0)),
		validation.Field(&j.PreviousSigningKeys, validation.By(signingKeys)),
		validation.Field(&j.SigningMethod, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&j.TTL, validation.Required, validation.Min(0)),
	)
}

func (o OTP) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Length, validation.Required, validation.Min(4), validation.Max(10)),
		validation.Field(&o.TTL, validation.Required),
		validation.Field(&o.ResendInterval, validation.Min(0)),
		validation.Field(&o.Throttle, validation.Required, validation.In(ThrottleMemory, ThrottleRedis)),
	)
}

func (r Redis) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Addr, validation.Required),
	)
}

func (m Mail) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Transport, validation.Required, validation.In(MailTransportSMTP, MailTransportLog)),
		validation.Field(&m.From, validation.Required),
		validation.Field(&m.SMTPHost, validation.By(requiredFor(m.Transport == MailTransportSMTP))),
		validation.Field(&m.SMTPPort, validation.Min(0), validation.Max(65535), validation.By(requiredFor(m.Transport == MailTransportSMTP))),
		validation.Field(&m.Workers, validation.Required, validation.Min(1)),
		validation.Field(&m.MaxWorkers, validation.Required, validation.Min(m.Workers)),
		validation.Field(&m.QueueSize, validation.Required, validation.Min(1)),
	)
}

func (a Accounts) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.PhoneRegion, validation.Required, validation.Length(2, 2)),
		validation.Field(&a.DefaultRole, validation.Required, validation.By(predefinedRole)),
	)
}

func (s Seed) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.AdminEmail, validation.Required, is.Email),
		validation.Field(&s.AdminPassword, validation.Required),
	)
}

func (l Log) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func predefinedRole(value any) error {
	role, _ := value.(string)
	if !auth.IsPredefinedRole(role) {
		return errors.New("must be a predefined role")
	}
	return nil
}

func signingKeys(value any) error {
	keys, _ := value.([]string)
	for _, key := range keys {
		if len(key) < MinSigningKeyLength {
			return errors.New("each key must be at least 32 bytes")
		}
	}
	return nil
}

func requiredFor(cond bool) validation.RuleFunc {
	return func(value any) error {
		if !cond {
			return nil
		}
		return validation.Validate(value, validation.Required)
	}
}
