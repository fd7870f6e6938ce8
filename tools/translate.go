package tools

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Coder maps a driver-specific error to a code of the error table.
// Every dialect implements it.
type Coder interface {
	ErrorCode(err error) (string, bool)
}

// BoundaryError is the only error shape that leaves the process.
type BoundaryError struct {
	HTTPCode int    `json:"httpCode"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Translator turns arbitrary errors into domain errors.
type Translator struct {
	coders []Coder
	logger *slog.Logger
}

// NewTranslator returns a Translator consulting coders, in order, for driver errors.
func NewTranslator(coders ...Coder) *Translator {
	return &Translator{coders: coders, logger: Logger}
}

// WithLogger returns a copy of t logging to logger.
func (t *Translator) WithLogger(logger *slog.Logger) *Translator {
	cp := *t
	cp.logger = logger
	return &cp
}

var jwtCodes = []struct {
	err  error
	code string
}{
	{jwt.ErrTokenMalformed, CodeJWTMalformed},
	{jwt.ErrTokenExpired, CodeJWTExpired},
	{jwt.ErrTokenSignatureInvalid, CodeJWTSignatureMismatch},
	{jwt.ErrTokenUnverifiable, CodeJWTAlgorithm},
	{jwt.ErrTokenInvalidIssuer, CodeJWTIssuerInvalid},
	{jwt.ErrTokenInvalidAudience, CodeJWTAudienceInvalid},
	{jwt.ErrTokenRequiredClaimMissing, CodeJWTEmptyPayload},
	{jwt.ErrTokenInvalidClaims, CodeJWTPayloadInvalid},
	{jwt.ErrTokenNotValidYet, CodeJWTInvalid},
	{jwt.ErrTokenUsedBeforeIssued, CodeJWTInvalid},
	{jwt.ErrInvalidKey, CodeJWTFailedCreate},
	{jwt.ErrInvalidKeyType, CodeJWTFailedCreate},
}

// Translate never returns nil for a non-nil err, and unknown errors become INTERNAL_SERVER_ERROR.
func (t *Translator) Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var domain *Error
	if errors.As(err, &domain) {
		return domain
	}

	for _, c := range t.coders {
		if code, ok := c.ErrorCode(err); ok {
			return New(code, err)
		}
	}

	if code, ok := stdCode(err); ok {
		return New(code, err)
	}

	for _, m := range jwtCodes {
		if errors.Is(err, m.err) {
			return New(m.code, err)
		}
	}

	if code, ok := bcryptCode(err); ok {
		return New(code, err)
	}

	t.logger.Error("unmapped error", "error", err)
	return New(CodeInternal, err)
}

// Boundary returns the wire triple for err.
func (t *Translator) Boundary(err error) BoundaryError {
	e := t.Translate(err)
	if e == nil {
		e = New(CodeInternal, nil)
	}
	return BoundaryError{HTTPCode: e.HTTPCode, Code: e.Code, Message: e.Message}
}

func stdCode(err error) (string, bool) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return CodeNotFound, true
	case errors.Is(err, context.DeadlineExceeded):
		return CodeGatewayTimeout, true
	case errors.Is(err, context.Canceled):
		return CodeServiceNotAvailable, true
	case errors.Is(err, sql.ErrConnDone):
		return CodeServiceNotAvailable, true
	}
	return "", false
}

func bcryptCode(err error) (string, bool) {
	var prefixErr bcrypt.InvalidHashPrefixError
	var versionErr bcrypt.HashVersionTooNewError
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return CodeInvalidCredentials, true
	case errors.Is(err, bcrypt.ErrHashTooShort),
		errors.As(err, &prefixErr),
		errors.As(err, &versionErr):
		return CodeHashingPassword, true
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return CodeInvalidPasswordFormat, true
	}
	return "", false
}
