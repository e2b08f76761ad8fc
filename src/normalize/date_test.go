package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2024-09-19", time.Date(2024, 9, 19, 0, 0, 0, 0, time.UTC)},
		{"19-09-2024", time.Date(2024, 9, 19, 0, 0, 0, 0, time.UTC)},
		{"19/09/2024", time.Date(2024, 9, 19, 0, 0, 0, 0, time.UTC)},
		{"2024-09-19 14:30:00", time.Date(2024, 9, 19, 14, 30, 0, 0, time.UTC)},
		{"2024-09-19-14:30:00", time.Date(2024, 9, 19, 14, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDate(tt.raw, 0)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDateItalianShortMonth(t *testing.T) {
	got, err := ParseDate("19 set", 2024)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 9, 19, 0, 0, 0, 0, time.UTC), got)

	// An inline year beats the hint.
	got, err = ParseDate("2 gen 2023", 2024)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), got)

	// Longer month names truncate to the abbreviation.
	got, err = ParseDate("5 dicembre 2023", 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateEnglishShortMonth(t *testing.T) {
	got, err := ParseDate("19 Sep 2024", 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 9, 19, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateZeroHintUsesCurrentYear(t *testing.T) {
	got, err := ParseDate("19 set", 0)
	require.NoError(t, err)
	assert.Equal(t, time.Now().Year(), got.Year())
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("", 0)
	assert.Error(t, err)

	_, err = ParseDate("Saldo", 2024)
	assert.Error(t, err)

	_, err = ParseDate("19 xyz 2024", 0)
	assert.Error(t, err)
}
