// Package textshape prepares mixed Arabic/Latin text for rasterizers that draw
// code points left to right and know nothing about bidi or cursive joining.
//
// Shape reshapes Arabic letters into presentation forms and reorders the text
// into visual order. Clusters splits text into base + mark units so callers can
// measure or skip whole clusters.
package textshape

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"golang.org/x/text/unicode/bidi"

	"go-stamppdf/internal/logger"
)

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

// HasRTL reports whether text contains a letter from a right-to-left script.
func HasRTL(text string) bool {
	for _, r := range text {
		if scriptDirection(language.LookupScript(r)) == di.DirectionRTL {
			return true
		}
		if p, _ := bidi.LookupRune(r); p.Class() == bidi.R || p.Class() == bidi.AL {
			return true
		}
	}
	return false
}

// Shape converts logical-order text into the visual order a left-to-right
// rasterizer must receive. Text with no right-to-left script is returned as
// is. If reshaping or reordering fails the logical text is returned and the
// failure is logged.
func Shape(text string) string {
	return ShapeContext(context.Background(), text)
}

// ShapeContext is Shape with the fallback logged against ctx.
func ShapeContext(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}
	if !HasRTL(text) {
		return text
	}
	visual, err := shape(text)
	if err != nil {
		logger.Warn(ctx, "text shaping failed, drawing logical order", logger.Fields{
			"error": err.Error(),
		})
		return text
	}
	return visual
}

func shape(text string) (visual string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shape panic: %v", r)
		}
	}()
	return reorderText(Reshape(text))
}

var reorderText = reorder

// reorder resolves embedding levels with a right-to-left paragraph direction
// and lays the runs out in visual order. With an RTL paragraph every run sits
// at level 1 (RTL) or 2 (LTR), so the visual line is the runs in reverse with
// each RTL run reversed cluster by cluster.
func reorder(text string) (string, error) {
	var p bidi.Paragraph
	if _, err := p.SetString(text, bidi.DefaultDirection(bidi.RightToLeft)); err != nil {
		return "", fmt.Errorf("bidi input: %w", err)
	}
	o, err := p.Order()
	if err != nil {
		return "", fmt.Errorf("bidi levels: %w", err)
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := o.NumRuns() - 1; i >= 0; i-- {
		run := o.Run(i)
		if run.Direction() == bidi.RightToLeft {
			b.WriteString(reverseClusters(run.String()))
			continue
		}
		b.WriteString(run.String())
	}
	return b.String(), nil
}

// reverseClusters reverses s cluster-wise so marks stay after their base.
// Single-rune clusters go through bidi.ReverseString, which swaps mirrored
// brackets.
func reverseClusters(s string) string {
	clusters := Clusters(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := len(clusters) - 1; i >= 0; i-- {
		c := clusters[i]
		if len([]rune(c)) == 1 {
			c = bidi.ReverseString(c)
		}
		b.WriteString(c)
	}
	return b.String()
}
