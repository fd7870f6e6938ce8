// Package tools provides shared utilities: the error taxonomy, logging,
// identifier validation and HTTP helpers.
package tools

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types group codes by the layer that raises them.
const (
	TypeDB              = "DB_Error"
	TypeJWT             = "JWT_Error"
	TypeInput           = "Input_Error"
	TypeQuery           = "Query_Error"
	TypePasswordManager = "Password_Manager_Error"
	TypeModel           = "Model_Error"
	TypeAuthentication  = "Authentication_Error"
	TypeHTTP            = "Http_Error"
	TypeUnknown         = "Unknown_Error"
)

// Error codes. These are part of the API's error response body and must stay stable.
const (
	// Data access
	CodeAccessDenied      = "ER_ACCESS_DENIED_ERROR"
	CodeBadDB             = "ER_BAD_DB_ERROR"
	CodePartialBulkEntry  = "ER_PARTIAL_BULK_ENTRY"
	CodeNotFound          = "ER_NOT_FOUND"
	CodeDupEntry          = "ER_DUP_ENTRY"
	CodeNoSuchTable       = "ER_NO_SUCH_TABLE"
	CodeNoData            = "ER_NO_DATA"
	CodeParse             = "ER_PARSE_ERROR"
	CodeInvalidBody       = "ER_INVALID_BODY"
	CodeBadField          = "ER_BAD_FIELD_ERROR"
	CodeCreateFailed      = "ER_CREATE_FAILED"
	CodeRowIsReferenced   = "ER_ROW_IS_REFERENCED_2"
	CodeNoReferencedRow   = "ER_NO_REFERENCED_ROW_2"
	CodeConCount          = "ER_CON_COUNT_ERROR"
	CodeDBCreateExists    = "ER_DB_CREATE_EXISTS"
	CodeTableExists       = "ER_TABLE_EXISTS_ERROR"
	CodeLockWaitTimeout   = "ER_LOCK_WAIT_TIMEOUT"
	CodeDataTooLong       = "ER_DATA_TOO_LONG"
	CodeTruncatedWrongVal = "ER_TRUNCATED_WRONG_VALUE"
	CodeMalformedPacket   = "ER_MALFORMED_PACKET"

	// Tokens
	CodeJWTFailedCreate      = "ER_JWT_FAILED_CREATE_TOKEN"
	CodeJWTMalformed         = "ER_JWT_MALFORMED"
	CodeJWTNotFound          = "ER_JWT_NOT_FOUND"
	CodeJWTEmptyPayload      = "ER_JWT_EMPTY_PAYLOAD"
	CodeJWTExpired           = "ER_JWT_EXPIRED"
	CodeJWTEmptySignature    = "ER_JWT_EMPTY_SIGNATURE"
	CodeJWTPayloadInvalid    = "ER_JWT_PAYLOAD_INVALID"
	CodeJWTInvalid           = "ER_JWT_INVALID"
	CodeJWTSignatureMismatch = "ER_JWT_SIGNATURE_MISMATCH"
	CodeJWTAlgorithm         = "ER_JWT_ALGORITHM_NOT_SUPPORTED"
	CodeJWTIssuerInvalid     = "ER_JWT_ISSUER_INVALID"
	CodeJWTAudienceInvalid   = "ER_JWT_AUDIENCE_INVALID"

	// Input and credentials
	CodeEmptyCredentials      = "ER_EMPTY_CREDENTIALS"
	CodeEmptyPassword         = "ER_EMPTY_PASSWORD"
	CodeInvalidPassword       = "ER_INVALID_PASSWORD"
	CodeInvalidCredentials    = "ER_INVALID_CREDENTIALS"
	CodeInvalidPasswordFormat = "ER_INVALID_PASSWORD_FORMAT"
	CodeInvalidUsername       = "ER_INVALID_USERNAME"
	CodeUsernameTaken         = "ER_USERNAME_TAKEN"
	CodeEmailTaken            = "ER_EMAIL_TAKEN"
	CodeInvalidEmail          = "ER_INVALID_EMAIL"
	CodePasswordTooShort      = "ER_PASSWORD_TOO_SHORT"
	CodePasswordTooWeak       = "ER_PASSWORD_TOO_WEAK"

	CodeInvalidQueryParams = "ER_INVALID_QUERY_PARAMS"

	// Password manager
	CodeHashingPassword     = "ER_HASHING_PASSWORD"
	CodeEmptyHashedPassword = "ER_EMPTY_HASHED_PASSWORD"
	CodeComparePassword     = "ER_COMPARE_PASSWORD"

	// Model
	CodeInvalidMethod = "ER_INVALID_METHOD"
	CodeQueryParam    = "ER_QUERY_PARAM"

	CodeAuthenticationFailed = "ER_AUTHENTICATION_FAILED"

	// HTTP
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeHTTPNotFound        = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeServiceNotAvailable = "SERVICE_NOT_AVAILABLE"
	CodeGatewayTimeout      = "GATEWAY_TIMEOUT"
	CodeRefuseBody          = "ER_GET_REFUSE_BODY"

	CodeInternal = "INTERNAL_SERVER_ERROR"
)

// Descriptor is one entry of the closed error table.
type Descriptor struct {
	Code     string
	HTTPCode int
	Type     string
	Message  string
}

var descriptors = buildDescriptors()

func buildDescriptors() map[string]Descriptor {
	table := make(map[string]Descriptor)
	register := func(typ string, httpCode int, code, message string) {
		table[code] = Descriptor{Code: code, HTTPCode: httpCode, Type: typ, Message: message}
	}

	register(TypeDB, http.StatusForbidden, CodeAccessDenied, "Access denied")
	register(TypeDB, http.StatusNotFound, CodeBadDB, "Database not found")
	register(TypeDB, http.StatusMultiStatus, CodePartialBulkEntry, "Some entries failed to insert")
	register(TypeDB, http.StatusNotFound, CodeNotFound, "Resource not found")
	register(TypeDB, http.StatusConflict, CodeDupEntry, "Duplicate entry")
	register(TypeDB, http.StatusNotFound, CodeNoSuchTable, "Table not found")
	register(TypeDB, http.StatusNotFound, CodeNoData, "No data found")
	register(TypeDB, http.StatusBadRequest, CodeParse, "SQL syntax error")
	register(TypeDB, http.StatusBadRequest, CodeInvalidBody, "Invalid request body")
	register(TypeDB, http.StatusBadRequest, CodeBadField, "Invalid field key")
	register(TypeDB, http.StatusInternalServerError, CodeCreateFailed, "Failed to create resource")
	register(TypeDB, http.StatusBadRequest, CodeRowIsReferenced, "Cannot delete or update a referenced row")
	register(TypeDB, http.StatusBadRequest, CodeNoReferencedRow, "Referenced row does not exist")
	register(TypeDB, http.StatusServiceUnavailable, CodeConCount, "Too many connections")
	register(TypeDB, http.StatusConflict, CodeDBCreateExists, "Database already exists")
	register(TypeDB, http.StatusConflict, CodeTableExists, "Table already exists")
	register(TypeDB, http.StatusServiceUnavailable, CodeLockWaitTimeout, "Lock wait timeout exceeded")
	register(TypeDB, http.StatusBadRequest, CodeDataTooLong, "Data too long for column")
	register(TypeDB, http.StatusBadRequest, CodeTruncatedWrongVal, "Incorrect value for column")
	register(TypeDB, http.StatusBadRequest, CodeMalformedPacket, "Malformed packet")

	register(TypeJWT, http.StatusUnauthorized, CodeJWTFailedCreate, "Failed to create token")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTMalformed, "Malformed token")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTNotFound, "Token not found")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTEmptyPayload, "Token payload is empty")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTExpired, "Token expired")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTEmptySignature, "Token signature is empty")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTPayloadInvalid, "Token payload is invalid")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTInvalid, "Invalid token")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTSignatureMismatch, "Token signature mismatch")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTAlgorithm, "Token algorithm not supported")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTIssuerInvalid, "Token issuer is invalid")
	register(TypeJWT, http.StatusUnauthorized, CodeJWTAudienceInvalid, "Token audience is invalid")

	register(TypeInput, http.StatusBadRequest, CodeEmptyCredentials, "Username and password are required")
	register(TypeInput, http.StatusBadRequest, CodeEmptyPassword, "Password is required")
	register(TypeInput, http.StatusBadRequest, CodeInvalidPassword, "Invalid password")
	register(TypeInput, http.StatusBadRequest, CodeInvalidCredentials, "Invalid Username or Password")
	register(TypeInput, http.StatusBadRequest, CodeInvalidPasswordFormat, "Invalid password format")
	register(TypeInput, http.StatusBadRequest, CodeInvalidUsername, "Invalid username")
	register(TypeInput, http.StatusConflict, CodeUsernameTaken, "Username is already taken")
	register(TypeInput, http.StatusConflict, CodeEmailTaken, "Email is already taken")
	register(TypeInput, http.StatusBadRequest, CodeInvalidEmail, "Invalid email")
	register(TypeInput, http.StatusBadRequest, CodePasswordTooShort, "Password is too short")
	register(TypeInput, http.StatusBadRequest, CodePasswordTooWeak, "Password is too weak")

	register(TypeQuery, http.StatusInternalServerError, CodeInvalidQueryParams, "Invalid query parameters")

	register(TypePasswordManager, http.StatusInternalServerError, CodeHashingPassword, "Invalid hash format")
	register(TypePasswordManager, http.StatusInternalServerError, CodeEmptyHashedPassword, "Hashed password is empty")
	register(TypePasswordManager, http.StatusInternalServerError, CodeComparePassword, "Failed to compare password")

	register(TypeModel, http.StatusInternalServerError, CodeInvalidMethod, "Invalid model method")
	register(TypeModel, http.StatusInternalServerError, CodeQueryParam, "Query id not defined")

	register(TypeAuthentication, http.StatusUnauthorized, CodeAuthenticationFailed, "Authentication failed")

	register(TypeHTTP, http.StatusBadRequest, CodeBadRequest, "Bad request")
	register(TypeHTTP, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized")
	register(TypeHTTP, http.StatusForbidden, CodeForbidden, "Forbidden")
	register(TypeHTTP, http.StatusNotFound, CodeHTTPNotFound, "Not found")
	register(TypeHTTP, http.StatusConflict, CodeConflict, "Conflict")
	register(TypeHTTP, http.StatusServiceUnavailable, CodeServiceNotAvailable, "Service not available")
	register(TypeHTTP, http.StatusGatewayTimeout, CodeGatewayTimeout, "Gateway timeout")
	register(TypeHTTP, http.StatusBadRequest, CodeRefuseBody, "Request body refused")

	register(TypeUnknown, http.StatusInternalServerError, CodeInternal, "Internal server error")
	return table
}

// Lookup returns the descriptor for code. Unknown codes resolve to INTERNAL_SERVER_ERROR.
func Lookup(code string) Descriptor {
	if d, ok := descriptors[code]; ok {
		return d
	}
	return descriptors[CodeInternal]
}

// Known reports whether code is in the table.
func Known(code string) bool {
	_, ok := descriptors[code]
	return ok
}

// Error is a domain error carrying a descriptor and the error that caused it.
type Error struct {
	Descriptor
	cause error
}

// New builds a domain error for code, keeping cause for diagnostics.
func New(code string, cause error) *Error {
	return &Error{Descriptor: Lookup(code), cause: cause}
}

// Errorf builds a domain error whose cause is a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return New(code, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = &Error{Descriptor: Lookup(CodeNotFound)}
	ErrBadField          = &Error{Descriptor: Lookup(CodeBadField)}
	ErrDupEntry          = &Error{Descriptor: Lookup(CodeDupEntry)}
	ErrInvalidBody       = &Error{Descriptor: Lookup(CodeInvalidBody)}
	ErrInvalidQuery      = &Error{Descriptor: Lookup(CodeInvalidQueryParams)}
	ErrConCount          = &Error{Descriptor: Lookup(CodeConCount)}
	ErrInternal          = &Error{Descriptor: Lookup(CodeInternal)}
	ErrEmptyIdentifier   = errors.New("identifier cannot be empty")
	ErrIdentifierTooLong = errors.New("identifier too long")
	ErrInvalidCharacter  = errors.New("identifier contains invalid character")
)
