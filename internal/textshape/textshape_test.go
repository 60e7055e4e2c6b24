package textshape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stamppdf/internal/logger"
)

func TestClustersKeepMarksWithBase(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"latin", "abc", []string{"a", "b", "c"}},
		{"composed by NFC", "e\u0301x", []string{"é", "x"}},
		{"arabic harakat", "ب\u0650س\u0652م", []string{"ب\u0650", "س\u0652", "م"}},
		{"zero width joiner", "ل\u200Dا", []string{"ل\u200D", "ا"}},
		{"zero width non joiner", "م\u200Cا", []string{"م\u200C", "ا"}},
		{"leading mark", "\u0301a", []string{"\u0301", "a"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Clusters(tc.input))
		})
	}
}

func TestClustersIdempotent(t *testing.T) {
	samples := []string{
		"",
		"plain ascii",
		"e\u0301\u0301 combining",
		"شركة النور 2024",
		"ب\u0650س\u0652م\u0650 الل\u0651\u064Eه",
		"\u202Bمرحبا\u202C",
		"\u0301\u0301",
	}
	for _, s := range samples {
		once := Clusters(s)
		twice := Clusters(strings.Join(once, ""))
		assert.Equal(t, once, twice, "input %q", s)
	}
}

func TestIsSkippableBidiControl(t *testing.T) {
	assert.True(t, IsSkippableBidiControl("\u200F"))
	assert.True(t, IsSkippableBidiControl("\u200E"))
	assert.True(t, IsSkippableBidiControl("\u2067\u2069"))
	assert.True(t, IsSkippableBidiControl("\u202E"))
	assert.False(t, IsSkippableBidiControl(""))
	assert.False(t, IsSkippableBidiControl("a"))
	assert.False(t, IsSkippableBidiControl("\u200Fa"))

	assert.Equal(t, "abc", StripBidiControls("\u202Babc\u202C"))
}

func TestReshapeContextualForms(t *testing.T) {
	// seen + lam-alef ligature + meem ("salam")
	got := Reshape("سلام")
	assert.Equal(t, "\uFEB3\uFEFC\uFEE1", got)

	// sheen, reh, kaf, teh marbuta ("company")
	got = Reshape("شركة")
	assert.Equal(t, "\uFEB7\uFEAE\uFEDB\uFE94", got)

	// hamza never joins, so the letter before it ends its word
	assert.Equal(t, "\uFEB7\uFEF2\uFE80", Reshape("\u0634\u064A\u0621"))
	assert.Equal(t, "\uFEA9\uFED1\uFE80", Reshape("\u062F\u0641\u0621"))

	// a single letter stays isolated
	assert.Equal(t, "\uFE8F", Reshape("ب"))

	// marks do not break joining
	got = Reshape("ب\u0650ب")
	assert.Equal(t, "\uFE91\u0650\uFE90", got)

	// latin is untouched
	assert.Equal(t, "Ref 12", Reshape("Ref 12"))
}

func TestShapeLatinIsUnchanged(t *testing.T) {
	samples := []string{
		"Hello World",
		"Invoice #42 (final).",
		"1-00000007",
		" trailing space ",
		"2024/05/01 10:30",
	}
	for _, s := range samples {
		assert.Equal(t, s, Shape(s))
	}
	assert.Equal(t, "", Shape(""))
}

func TestShapeReordersArabicIntoVisualOrder(t *testing.T) {
	got := Shape("سلام")
	assert.Equal(t, "\uFEE1\uFEFC\uFEB3", got)
}

func TestShapeKeepsDigitsLeftToRight(t *testing.T) {
	got := Shape("شركة 123")
	assert.True(t, strings.HasPrefix(got, "123"), "got %q", got)
	assert.True(t, strings.HasSuffix(got, "\uFE94\uFEDB\uFEAE\uFEB7"), "got %q", got)
}

func TestHasRTL(t *testing.T) {
	assert.True(t, HasRTL("abc م"))
	assert.True(t, HasRTL("שלום"))
	assert.False(t, HasRTL("abc 123"))
}

func TestShapeContextLogsFallbackWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	orig := reorderText
	reorderText = func(string) (string, error) { return "", errors.New("bidi levels: broken") }
	t.Cleanup(func() { reorderText = orig })

	ctx := logger.WithRequestID(context.Background(), "req-7")
	assert.Equal(t, "\u0639\u0642\u062F", ShapeContext(ctx, "\u0639\u0642\u062F"))

	var entry logger.LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry.Level)
	assert.Equal(t, "req-7", entry.RequestID)
	assert.Equal(t, "bidi levels: broken", entry.Fields["error"])
}
