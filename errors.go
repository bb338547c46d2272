package auth

import (
	"net/http"

	"github.com/samber/oops"
)

// ErrorCode identifies a failure kind. Every error produced by this package
// carries one, retrievable with CodeOf.
type ErrorCode string

const (
	CodeAccountAlreadyExists       ErrorCode = "ACCOUNT_ALREADY_EXISTS"
	CodeAccountPendingVerification ErrorCode = "ACCOUNT_PENDING_VERIFICATION"
	CodeAccountNotFound            ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeOTPInvalid                 ErrorCode = "OTP_INVALID"
	CodeOTPExpired                 ErrorCode = "OTP_EXPIRED"
	CodeOTPRateLimited             ErrorCode = "OTP_RATE_LIMITED"
	CodeAlreadyVerified            ErrorCode = "ALREADY_VERIFIED"
	CodeInvalidCredentials         ErrorCode = "INVALID_CREDENTIALS"
	CodeAccountDisabled            ErrorCode = "ACCOUNT_DISABLED"
	CodeTokenInvalid               ErrorCode = "TOKEN_INVALID"
	CodeTokenExpired               ErrorCode = "TOKEN_EXPIRED"
	CodeTokenMalformed             ErrorCode = "TOKEN_MALFORMED"
	CodeTokenUnsupported           ErrorCode = "TOKEN_UNSUPPORTED"
	CodeTokenSignatureInvalid      ErrorCode = "TOKEN_SIGNATURE_INVALID"
	CodeUnauthenticated            ErrorCode = "UNAUTHENTICATED"
	CodeAccessDenied               ErrorCode = "ACCESS_DENIED"
	CodeValidationFailed           ErrorCode = "VALIDATION_FAILED"
	CodeInvalidOldPassword         ErrorCode = "INVALID_OLD_PASSWORD"
	CodeNewPasswordMismatch        ErrorCode = "NEW_PASSWORD_MISMATCH"
	CodePasswordUnchanged          ErrorCode = "PASSWORD_UNCHANGED"
	CodeRoleNotFound               ErrorCode = "ROLE_NOT_FOUND"
	CodeResourceNotFound           ErrorCode = "RESOURCE_NOT_FOUND"
	CodeMethodNotSupported         ErrorCode = "METHOD_NOT_SUPPORTED"
	CodeInvalidRequestBody         ErrorCode = "INVALID_REQUEST_BODY"
	CodeInternal                   ErrorCode = "INTERNAL"
)

// errorDomain tags every error built here
const errorDomain = "auth"

type codeInfo struct {
	status  int
	message string
}

var codeTable = map[ErrorCode]codeInfo{
	CodeAccountAlreadyExists:       {http.StatusBadRequest, "Email is already registered"},
	CodeAccountPendingVerification: {http.StatusBadRequest, "Account is registered but not verified, please verify or request a new code"},
	CodeAccountNotFound:            {http.StatusNotFound, "Account not found"},
	CodeOTPInvalid:                 {http.StatusBadRequest, "Invalid OTP code"},
	CodeOTPExpired:                 {http.StatusBadRequest, "OTP code has expired, please request a new one"},
	CodeOTPRateLimited:             {http.StatusTooManyRequests, "Please wait before requesting a new code"},
	CodeAlreadyVerified:            {http.StatusBadRequest, "Account is already verified"},
	CodeInvalidCredentials:         {http.StatusUnauthorized, "Invalid email or password"},
	CodeAccountDisabled:            {http.StatusForbidden, "Account is not verified"},
	CodeTokenInvalid:               {http.StatusUnauthorized, "Invalid token"},
	CodeTokenExpired:               {http.StatusUnauthorized, "Token has expired"},
	CodeTokenMalformed:             {http.StatusUnauthorized, "Invalid token"},
	CodeTokenUnsupported:           {http.StatusUnauthorized, "Invalid token"},
	CodeTokenSignatureInvalid:      {http.StatusUnauthorized, "Invalid token"},
	CodeUnauthenticated:            {http.StatusUnauthorized, "Authentication is required to access this resource"},
	CodeAccessDenied:               {http.StatusForbidden, "You do not have permission to access this resource"},
	CodeValidationFailed:           {http.StatusBadRequest, "Validation failed"},
	CodeInvalidOldPassword:         {http.StatusBadRequest, "Current password is incorrect"},
	CodeNewPasswordMismatch:        {http.StatusBadRequest, "New password confirmation does not match"},
	CodePasswordUnchanged:          {http.StatusBadRequest, "New password must differ from the current password"},
	CodeRoleNotFound:               {http.StatusInternalServerError, "An internal error occurred"},
	CodeResourceNotFound:           {http.StatusNotFound, "Resource not found"},
	CodeMethodNotSupported:         {http.StatusMethodNotAllowed, "Method not supported"},
	CodeInvalidRequestBody:         {http.StatusBadRequest, "Malformed request body"},
	CodeInternal:                   {http.StatusInternalServerError, "An internal error occurred"},
}

// Status returns the HTTP status the code maps to
func (c ErrorCode) Status() int {
	if info, ok := codeTable[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Message returns the client facing message for the code
func (c ErrorCode) Message() string {
	if info, ok := codeTable[c]; ok {
		return info.message
	}
	return codeTable[CodeInternal].message
}

// Public returns the code shown to clients. Token sub kinds collapse into
// TOKEN_INVALID, configuration failures and unknown codes into INTERNAL.
func (c ErrorCode) Public() ErrorCode {
	switch c {
	case CodeTokenMalformed, CodeTokenUnsupported, CodeTokenSignatureInvalid:
		return CodeTokenInvalid
	case CodeRoleNotFound:
		return CodeInternal
	}
	if _, ok := codeTable[c]; !ok {
		return CodeInternal
	}
	return c
}

func newError(code ErrorCode, kv ...any) error {
	return oops.
		Code(string(code)).
		In(errorDomain).
		With(kv...).
		Public(code.Message()).
		Errorf("%s", code.Message())
}

func wrapError(err error, code ErrorCode, msg string, kv ...any) error {
	return oops.
		Code(string(code)).
		In(errorDomain).
		With(kv...).
		Public(code.Message()).
		Wrapf(err, "%s", msg)
}

func internalError(err error, msg string, kv ...any) error {
	return wrapError(err, CodeInternal, msg, kv...)
}

// validationError carries field level messages keyed by request field name
func validationError(fields map[string]string) error {
	return oops.
		Code(string(CodeValidationFailed)).
		In(errorDomain).
		With(validationErrorsKey, fields).
		Public(CodeValidationFailed.Message()).
		Errorf("%s", CodeValidationFailed.Message())
}

const validationErrorsKey = "validation_errors"

// ValidationErrors returns the field messages attached to a validation error
func ValidationErrors(err error) map[string]string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	fields, _ := oopsErr.Context()[validationErrorsKey].(map[string]string)
	return fields
}

// CodeOf returns the ErrorCode carried by err, CodeInternal for foreign
// errors and the empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return CodeInternal
	}
	code, _ := oopsErr.Code().(string)
	if code == "" {
		return CodeInternal
	}
	return ErrorCode(code)
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// StatusFor returns the HTTP status for err
func StatusFor(err error) int {
	return CodeOf(err).Status()
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return IsCode(err, CodeTokenExpired)
}

// IsTokenError reports whether err is any token validation failure
func IsTokenError(err error) bool {
	switch CodeOf(err) {
	case CodeTokenInvalid, CodeTokenExpired, CodeTokenMalformed, CodeTokenUnsupported, CodeTokenSignatureInvalid:
		return true
	}
	return false
}
