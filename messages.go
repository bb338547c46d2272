package auth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse phone numbers given without a country code
const DefaultPhoneRegion = "VN"

// RegisterAccountMessage is the self registration payload
type RegisterAccountMessage struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

// Validate checks the payload. Phone numbers are parsed for region when
// they carry no country code.
func (e RegisterAccountMessage) Validate(region string) error {
	return toValidationError(validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email, validation.Length(0, 255)),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.Phone, validation.By(phoneRule(region))),
	))
}

func (e RegisterAccountMessage) normalized() RegisterAccountMessage {
	e.Email = strings.TrimSpace(e.Email)
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
	e.Phone = strings.TrimSpace(e.Phone)
	return e
}

// VerifyOTPMessage submits a verification code
type VerifyOTPMessage struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (e VerifyOTPMessage) Validate() error {
	return toValidationError(validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.OTP, validation.Required),
	))
}

// ResendOTPMessage asks for a fresh verification code
type ResendOTPMessage struct {
	Email string `json:"email"`
}

func (e ResendOTPMessage) Validate() error {
	return toValidationError(validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	))
}

// LoginMessage carries credentials
type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e LoginMessage) Validate() error {
	return toValidationError(validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
	))
}

// ChangePasswordMessage replaces the password of the current account
type ChangePasswordMessage struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (e ChangePasswordMessage) Validate() error {
	return toValidationError(validation.ValidateStruct(&e,
		validation.Field(&e.CurrentPassword, validation.Required),
		validation.Field(&e.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&e.ConfirmNewPassword, validation.Required),
	))
}

func phoneRule(region string) validation.RuleFunc {
	return func(value any) error {
		phone, _ := value.(string)
		if phone == "" {
			return nil
		}
		if _, err := NormalizePhone(phone, region); err != nil {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}

// NormalizePhone parses phone for region and returns it in E.164 format
func NormalizePhone(phone, region string) (string, error) {
	if region == "" {
		region = DefaultPhoneRegion
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		return validationError(fields)
	}
	return internalError(err, "request validation failed")
}
