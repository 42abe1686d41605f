package parse

import (
	"fmt"
	"unicode/utf8"
)

// Thresholds tune the text-layer trust decision for PDFs.
type Thresholds struct {
	MinTextLength      int     // below this the text layer alone is never enough
	MinCharsPerPage    float64 // average runes per page
	MinMeaningfulRatio float64 // Hangul syllables, ASCII letters and digits over all runes
}

func DefaultThresholds() Thresholds {
	return Thresholds{MinTextLength: 100, MinCharsPerPage: 50, MinMeaningfulRatio: 0.3}
}

// IsLikelyScanned decides from several independent signals whether the text
// layer of a PDF can be trusted. cleanText must already have page markers
// removed. The returned reason is empty when the document looks text-native.
func IsLikelyScanned(cleanText string, pageCount, emptyPages int, th Thresholds) (bool, string) {
	if pageCount <= 0 {
		return true, "no pages"
	}
	if emptyPages > 0 {
		return true, fmt.Sprintf("%d/%d pages without text", emptyPages, pageCount)
	}

	total := utf8.RuneCountInString(cleanText)
	avg := float64(total) / float64(pageCount)
	if avg < th.MinCharsPerPage {
		return true, fmt.Sprintf("avg %.0f chars/page", avg)
	}

	if total > 0 {
		ratio := float64(meaningfulRunes(cleanText)) / float64(total)
		if ratio < th.MinMeaningfulRatio {
			return true, fmt.Sprintf("meaningful ratio %.2f", ratio)
		}
	}
	return false, ""
}

func meaningfulRunes(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r >= 0xAC00 && r <= 0xD7A3,
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9':
			n++
		}
	}
	return n
}
