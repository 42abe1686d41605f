package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLikelyScanned(t *testing.T) {
	th := DefaultThresholds()
	rich := strings.Repeat("계약기간 2024년 3월 1일부터 ", 10)

	cases := []struct {
		name       string
		text       string
		pages      int
		emptyPages int
		want       bool
	}{
		{"no pages", "", 0, 0, true},
		{"one empty page among rich ones", rich + rich, 3, 1, true},
		{"dense text-native", rich, 1, 0, false},
		{"sparse per page", strings.Repeat("가", 120), 3, 0, true},
		{"exactly fifty per page", strings.Repeat("가", 100), 2, 0, false},
		{"mostly symbols", strings.Repeat("·-|", 40) + strings.Repeat("가", 20), 1, 0, true},
		{"digits and latin count", strings.Repeat("Phase 1 ", 10), 1, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := IsLikelyScanned(tc.text, tc.pages, tc.emptyPages, th)
			assert.Equal(t, tc.want, got)
			if got {
				assert.NotEmpty(t, reason)
			} else {
				assert.Empty(t, reason)
			}
		})
	}
}

func TestIsLikelyScanned_ThresholdsAreInjected(t *testing.T) {
	text := strings.Repeat("가", 60)
	scanned, _ := IsLikelyScanned(text, 1, 0, Thresholds{MinCharsPerPage: 80, MinMeaningfulRatio: 0.3})
	assert.True(t, scanned)

	scanned, _ = IsLikelyScanned(text, 1, 0, Thresholds{MinCharsPerPage: 10, MinMeaningfulRatio: 0.3})
	assert.False(t, scanned)
}
