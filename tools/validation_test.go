package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "users", nil},
		{"camel case", "roleId", nil},
		{"underscore start", "_tmp", nil},
		{"with digits", "t1", nil},
		{"empty", "", ErrEmptyIdentifier},
		{"too long", strings.Repeat("a", MaxIdentifierLength+1), ErrIdentifierTooLong},
		{"digit start", "1users", ErrInvalidCharacter},
		{"space", "user name", ErrInvalidCharacter},
		{"injection", "users; DROP TABLE users", ErrInvalidCharacter},
		{"quote", "name'", ErrInvalidCharacter},
		{"non ascii", "usérs", ErrInvalidCharacter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateQualified(t *testing.T) {
	assert.NoError(t, ValidateQualified("users.roleId"))
	assert.Error(t, ValidateQualified("roleId"))
	assert.Error(t, ValidateQualified("users.role Id"))
	assert.Error(t, ValidateQualified(".id"))
}
