package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/joe-ervin05/rolebase/dialect"
)

func newTestTranslator() *Translator {
	coders := make([]Coder, 0, 3)
	for _, d := range dialect.All() {
		coders = append(coders, d)
	}
	return NewTranslator(coders...)
}

// =============================================================================
// Table
// =============================================================================

func TestLookup(t *testing.T) {
	d := Lookup(CodeNotFound)
	assert.Equal(t, http.StatusNotFound, d.HTTPCode)
	assert.Equal(t, TypeDB, d.Type)
	assert.Equal(t, "Resource not found", d.Message)

	d = Lookup("ER_SOMETHING_NEW")
	assert.Equal(t, CodeInternal, d.Code)
	assert.Equal(t, http.StatusInternalServerError, d.HTTPCode)
	assert.Equal(t, "Internal server error", d.Message)

	assert.Equal(t, "Invalid field key", Lookup(CodeBadField).Message)
	assert.Equal(t, http.StatusMultiStatus, Lookup(CodePartialBulkEntry).HTTPCode)
	assert.True(t, Known(CodeJWTAudienceInvalid))
	assert.False(t, Known("nope"))
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("driver said no")
	err := New(CodeDupEntry, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Duplicate entry: driver said no", err.Error())

	wrapped := fmt.Errorf("create role: %w", err)
	assert.ErrorIs(t, wrapped, &Error{Descriptor: Lookup(CodeDupEntry)})
	assert.NotErrorIs(t, wrapped, ErrNotFound)
	assert.ErrorIs(t, New(CodeBadField, nil), ErrBadField)
}

// =============================================================================
// Translate
// =============================================================================

func TestTranslate(t *testing.T) {
	tr := newTestTranslator()

	tests := []struct {
		name     string
		err      error
		code     string
		httpCode int
	}{
		{"domain error passes through", New(CodeBadField, nil), CodeBadField, 400},
		{"wrapped domain error", fmt.Errorf("ctx: %w", New(CodeInvalidBody, nil)), CodeInvalidBody, 400},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, CodeDupEntry, 409},
		{"mysql referenced row", &mysql.MySQLError{Number: 1451}, CodeRowIsReferenced, 400},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, CodeLockWaitTimeout, 503},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, CodeDupEntry, 409},
		{"postgres undefined column", &pgconn.PgError{Code: "42703"}, CodeBadField, 400},
		{"no rows", sql.ErrNoRows, CodeNotFound, 404},
		{"deadline", context.DeadlineExceeded, CodeGatewayTimeout, 504},
		{"jwt expired", fmt.Errorf("parse: %w", jwt.ErrTokenExpired), CodeJWTExpired, 401},
		{"jwt malformed", jwt.ErrTokenMalformed, CodeJWTMalformed, 401},
		{"jwt issuer", jwt.ErrTokenInvalidIssuer, CodeJWTIssuerInvalid, 401},
		{"bcrypt mismatch", bcrypt.ErrMismatchedHashAndPassword, CodeInvalidCredentials, 400},
		{"bcrypt short hash", bcrypt.ErrHashTooShort, CodeHashingPassword, 500},
		{"unknown mysql number", &mysql.MySQLError{Number: 4242}, CodeInternal, 500},
		{"plain error", errors.New("something odd"), CodeInternal, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.Translate(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.httpCode, got.HTTPCode)
		})
	}

	assert.Nil(t, tr.Translate(nil))
}

func TestTranslateKeepsCause(t *testing.T) {
	raw := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Admin' for key 'name'"}
	got := newTestTranslator().Translate(raw)

	var myErr *mysql.MySQLError
	require.ErrorAs(t, got, &myErr)
	assert.Equal(t, uint16(1062), myErr.Number)
}

func TestBoundary(t *testing.T) {
	tr := newTestTranslator()

	b := tr.Boundary(&mysql.MySQLError{Number: 1062, Message: "secret internals"})
	assert.Equal(t, BoundaryError{HTTPCode: 409, Code: CodeDupEntry, Message: "Duplicate entry"}, b)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"httpCode":409,"code":"ER_DUP_ENTRY","message":"Duplicate entry"}`, string(raw))

	b = tr.Boundary(New(CodeNotFound, nil))
	assert.Equal(t, 404, b.HTTPCode)

	b = tr.Boundary(nil)
	assert.Equal(t, CodeInternal, b.Code)
}

func TestRespErr(t *testing.T) {
	rec := httptest.NewRecorder()
	RespErr(rec, New(CodeBadField, errors.New("unknown key")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"httpCode":400,"code":"ER_BAD_FIELD_ERROR","message":"Invalid field key"}`, rec.Body.String())
}
