package timeparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay_RoundTrip(t *testing.T) {
	tests := []struct {
		input      string
		normalized string
	}{
		{"00:00", "00:00"},
		{"07:30", "07:30"},
		{"7:30", "07:30"},
		{"23:59", "23:59"},
		{"9:05", "09:05"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			parsed, err := ParseTimeOfDay(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.normalized, Format(parsed))
		})
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "24:00", "12:60", "noon", "12-30"} {
		_, err := ParseTimeOfDay(in)
		assert.Error(t, err, in)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(1, 5, 10))
	assert.Equal(t, 10.0, Clamp(20, 5, 10))
	assert.Equal(t, 7.0, Clamp(7, 5, 10))
}
