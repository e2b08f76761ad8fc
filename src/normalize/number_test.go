package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalBothSeparators(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"12.345.678,99", "12345678.99"},
		{"12,345,678.99", "12345678.99"},
		{"-1.234,56", "-1234.56"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDecimal(tt.raw, LocaleUnknown)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDecimalSingleSeparatorFallback(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"73,26", "73.26"},   // tail of two digits is a decimal point
		{"73.26", "73.26"},
		{"0.355", "0.355"},   // leading zero never groups thousands
		{"0,355", "0.355"},
		{"1.234", "1234"},    // three-digit tail after a non-zero head groups
		{"1,234", "1234"},
		{"5", "5"},
		{"1.234.567", "1234567"}, // repeated separators can only be grouping
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDecimal(tt.raw, LocaleUnknown)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDecimalLocaleHint(t *testing.T) {
	// The same token reads differently under each convention.
	eu, err := ParseDecimal("1.234", LocaleEuropean)
	require.NoError(t, err)
	assert.Equal(t, "1234", eu.String())

	us, err := ParseDecimal("1.234", LocaleAmerican)
	require.NoError(t, err)
	assert.Equal(t, "1.234", us.String())

	eu, err = ParseDecimal("1,234", LocaleEuropean)
	require.NoError(t, err)
	assert.Equal(t, "1.234", eu.String())

	us, err = ParseDecimal("1,234", LocaleAmerican)
	require.NoError(t, err)
	assert.Equal(t, "1234", us.String())
}

func TestParseDecimalHintedDecimalStaysDecimal(t *testing.T) {
	// A European hint marks the comma as decimal even with a 3-digit tail.
	got, err := ParseDecimal("12,500", LocaleEuropean)
	require.NoError(t, err)
	assert.Equal(t, "12.5", got.String())
}

func TestParseDecimalStripsNoise(t *testing.T) {
	got, err := ParseDecimal("1.234,56 EUR", LocaleUnknown)
	require.NoError(t, err)
	assert.Equal(t, "1234.56", got.String())

	got, err = ParseDecimal("€ 73,26", LocaleUnknown)
	require.NoError(t, err)
	assert.Equal(t, "73.26", got.String())
}

func TestParseDecimalRejectsGarbage(t *testing.T) {
	_, err := ParseDecimal("", LocaleUnknown)
	assert.Error(t, err)

	_, err = ParseDecimal("n/a", LocaleUnknown)
	assert.Error(t, err)
}
