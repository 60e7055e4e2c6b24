package textshape

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	zwnj = '\u200C'
	zwj  = '\u200D'
)

// isContinuation reports whether r extends the cluster started by the
// preceding base: combining marks and the two joiner controls.
func isContinuation(r rune) bool {
	if unicode.Is(unicode.M, r) {
		return true
	}
	return r == zwj || r == zwnj
}

// Clusters splits text into base + continuation units after NFC
// normalization. A base letter is never separated from its diacritics or a
// following joiner.
func Clusters(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(norm.NFC.String(text))
	clusters := make([]string, 0, len(runes))
	start := 0
	for i := 1; i < len(runes); i++ {
		if isContinuation(runes[i]) {
			continue
		}
		clusters = append(clusters, string(runes[start:i]))
		start = i
	}
	return append(clusters, string(runes[start:]))
}

func isBidiControl(r rune) bool {
	switch {
	case r == '\u200E', r == '\u200F', r == '\u061C':
		return true
	case r >= '\u202A' && r <= '\u202E':
		return true
	case r >= '\u2066' && r <= '\u2069':
		return true
	}
	return false
}

// IsSkippableBidiControl reports whether cluster consists only of bidi
// formatting controls (LRM, RLM, ALM, embeddings, overrides, isolates).
// Rasterizers draw these as visible boxes, so they are dropped before drawing.
func IsSkippableBidiControl(cluster string) bool {
	if cluster == "" {
		return false
	}
	for _, r := range cluster {
		if !isBidiControl(r) {
			return false
		}
	}
	return true
}

// StripBidiControls removes clusters made only of bidi controls.
func StripBidiControls(text string) string {
	out := make([]rune, 0, len(text))
	for _, c := range Clusters(text) {
		if IsSkippableBidiControl(c) {
			continue
		}
		out = append(out, []rune(c)...)
	}
	return string(out)
}
