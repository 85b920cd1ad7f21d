package osduid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"strata/backend/internal/osduid"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		rawID string
		want  string
	}{
		{"ten digit version stamp", "well:123:9876543210", "well:123"},
		{"long version stamp", "osdu:wks:well--Well:1.0.0:1696000000000000", "osdu:wks:well--Well:1.0.0"},
		{"four digit fallback", "well:123:4567", "well:123"},
		{"nine digit fallback", "well:123:456789012", "well:123"},
		{"no trailing digit run", "well:123", "well:123"},
		{"short digit run kept", "well:123:99", "well:123:99"},
		{"non-numeric suffix kept", "well:123:v2", "well:123:v2"},
		{"digits with letters kept", "well:12ab34", "well:12ab34"},
		{"empty id", "", ""},
		{"only digits after single colon", "well:9876543210", "well"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, osduid.Normalize(tt.rawID))
		})
	}
}

func TestNormalize_OnlyStripsOnce(t *testing.T) {
	// Two stacked version-like runs: only the trailing one goes.
	require.Equal(t, "well:4567", osduid.Normalize("well:4567:9876543210"))
}

func TestNormalizeWith(t *testing.T) {
	require.Equal(t, "well:123", osduid.NormalizeWith("well:123:99", 5, 2))
	require.Equal(t, "well:123:99", osduid.NormalizeWith("well:123:99", 10, 4))

	// Degenerate thresholds leave the id alone.
	require.Equal(t, "well:123:4567", osduid.NormalizeWith("well:123:4567", 0, 4))
	require.Equal(t, "well:123:4567", osduid.NormalizeWith("well:123:4567", 4, 10))
}
