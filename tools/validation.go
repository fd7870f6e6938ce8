package tools

import (
	"fmt"
	"strings"
	"unicode"
)

// Constants for identifier validation.
const (
	MaxIdentifierLength = 64
)

// ValidateIdentifier validates a table or column name.
// Returns nil if valid, or an error describing the problem.
func ValidateIdentifier(name string) error {
	if name == "" {
		return ErrEmptyIdentifier
	}
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrIdentifierTooLong, len(name), MaxIdentifierLength)
	}
	for i, r := range name {
		if i == 0 {
			if r > unicode.MaxASCII || (!unicode.IsLetter(r) && r != '_') {
				return fmt.Errorf("%w: identifier must start with letter or underscore", ErrInvalidCharacter)
			}
			continue
		}
		if r > unicode.MaxASCII || (!unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_') {
			return fmt.Errorf("%w: '%c' at position %d", ErrInvalidCharacter, r, i)
		}
	}
	return nil
}

// ValidateQualified validates a "table.column" reference.
func ValidateQualified(ref string) error {
	table, column, ok := strings.Cut(ref, ".")
	if !ok {
		return fmt.Errorf("invalid column reference %q: expected table.column", ref)
	}
	if err := ValidateIdentifier(table); err != nil {
		return fmt.Errorf("invalid column reference %q: %w", ref, err)
	}
	if err := ValidateIdentifier(column); err != nil {
		return fmt.Errorf("invalid column reference %q: %w", ref, err)
	}
	return nil
}

// ValidateTableName validates a table name.
func ValidateTableName(name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return fmt.Errorf("invalid table name %q: %w", name, err)
	}
	return nil
}

// ValidateColumnName validates a column name.
func ValidateColumnName(name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return fmt.Errorf("invalid column name %q: %w", name, err)
	}
	return nil
}
