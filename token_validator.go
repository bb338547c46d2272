package auth

// TokenValidator checks a raw bearer token and returns its claims
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc lets a plain function act as a TokenValidator
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, newError(CodeTokenInvalid, "reason", "no validator")
	}
	return f(tokenString)
}

// MultiTokenValidator accepts tokens signed with the current key or any
// previous one. Validators are tried in order; only TOKEN_SIGNATURE_INVALID
// falls through to the next key, so an expired token stays expired.
type MultiTokenValidator struct {
	keys []TokenValidator
}

var _ TokenValidator = (*MultiTokenValidator)(nil)

// NewMultiTokenValidator ignores nil entries. The first validator should
// hold the signing key in use.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	m := &MultiTokenValidator{}
	for _, v := range validators {
		if v != nil {
			m.keys = append(m.keys, v)
		}
	}
	return m
}

func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	if len(m.keys) == 0 {
		return nil, newError(CodeTokenInvalid, "reason", "no validators configured")
	}

	var err error
	for _, key := range m.keys {
		var claims AuthClaims
		claims, err = key.Validate(tokenString)
		switch {
		case err == nil:
			return claims, nil
		case !IsCode(err, CodeTokenSignatureInvalid):
			return nil, err
		}
	}
	return nil, err
}
