package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator()
	assert.NotNil(t, validator)
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"0771234567", "0771234567", "Standard format"},
		{"077 123 4567", "0771234567", "With spaces"},
		{"077-123-4567", "0771234567", "With dashes"},
		{"077.123.4567", "0771234567", "With dots"},
		{"(077) 123 4567", "0771234567", "With parentheses"},
		{"+94 77 123 4567", "94771234567", "With country code"},
		{"+919876543210", "919876543210", "Indian mobile"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
			assert.True(t, validator.IsValid(tc.input))
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input string
		err   error
		name  string
	}{
		{"", ErrEmptyPhone, "Empty"},
		{"   ", ErrEmptyPhone, "Whitespace"},
		{"077123456a", ErrInvalidFormat, "Letter"},
		{"077123", ErrInvalidLength, "Too short"},
		{"1234567890123456", ErrInvalidLength, "Too long"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.ErrorIs(t, err, tc.err)
			assert.False(t, validator.IsValid(tc.input))
		})
	}
}

func TestNormalizeFlatNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"A101", "A101", false},
		{" a510 ", "A510", false},
		{"B203", "B203", false},
		{"A01", "", true},
		{"A1010", "", true},
		{"101", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := NormalizeFlatNumber(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFlatNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
