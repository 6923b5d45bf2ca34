package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBookingRequest(t *testing.T) {
	colombo, err := time.LoadLocation("Asia/Colombo")
	require.NoError(t, err)

	t.Run("RFC3339", func(t *testing.T) {
		start, end, err := ValidateBookingRequest("Pool", "2025-03-01T10:00:00+05:30", "2025-03-01T11:00:00+05:30", "u", time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, end.Sub(start))
		assert.True(t, start.Equal(time.Date(2025, 3, 1, 4, 30, 0, 0, time.UTC)))
	})

	t.Run("Zone-less In Booking Location", func(t *testing.T) {
		start, _, err := ValidateBookingRequest("Pool", "2025-03-01T10:00", "2025-03-01T11:00", "u", colombo)
		require.NoError(t, err)
		assert.True(t, start.Equal(time.Date(2025, 3, 1, 4, 30, 0, 0, time.UTC)))
	})

	t.Run("Space Separated", func(t *testing.T) {
		_, _, err := ValidateBookingRequest("Pool", "2025-03-01 10:00", "2025-03-01 10:30", "u", nil)
		assert.NoError(t, err)
	})

	t.Run("Missing Field Names The Field", func(t *testing.T) {
		_, _, err := ValidateBookingRequest("Pool", "2025-03-01T10:00:00Z", "  ", "u", time.UTC)
		require.ErrorIs(t, err, ErrMissingField)
		var fe *FieldError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "endSlot", fe.Field)
	})

	t.Run("Invalid Format", func(t *testing.T) {
		_, _, err := ValidateBookingRequest("Pool", "2025-03-01T10:00:00Z", "03/01/2025 11am", "u", time.UTC)
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("Zero Length Interval", func(t *testing.T) {
		_, _, err := ValidateBookingRequest("Pool", "2025-03-01T10:00:00Z", "2025-03-01T10:00:00Z", "u", time.UTC)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}
