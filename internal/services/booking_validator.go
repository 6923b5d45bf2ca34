package services

import (
	"strings"
	"time"
)

// Layouts accepted for bookingSlot / endSlot. Forms without an offset are read in the booking location.
var bookingTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ValidateBookingRequest checks presence, format and ordering of a booking request.
// It performs no I/O.
func ValidateBookingRequest(amenity, startRaw, endRaw, userID string, loc *time.Location) (time.Time, time.Time, error) {
	switch {
	case strings.TrimSpace(amenity) == "":
		return time.Time{}, time.Time{}, missing("amenity")
	case strings.TrimSpace(startRaw) == "":
		return time.Time{}, time.Time{}, missing("bookingSlot")
	case strings.TrimSpace(endRaw) == "":
		return time.Time{}, time.Time{}, missing("endSlot")
	case strings.TrimSpace(userID) == "":
		return time.Time{}, time.Time{}, missing("userId")
	}

	start, err := parseBookingTime(startRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &FieldError{Field: "bookingSlot", Err: ErrInvalidFormat}
	}
	end, err := parseBookingTime(endRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &FieldError{Field: "endSlot", Err: ErrInvalidFormat}
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}

	return start, end, nil
}

func parseBookingTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)

	var lastErr error
	for _, layout := range bookingTimeLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
