// Package stamp rasterizes approval stamps: a Code 128 barcode framed by the
// company and attachment lines above it and the barcode value and date below.
package stamp

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/logger"
	"go-stamppdf/internal/textshape"
)

// ReferenceWidth is the stamp width all sizes below are defined against.
const ReferenceWidth = 180

const (
	padding        = 8.0
	gap            = 4.0
	barcodeHeight  = 40.0
	companySize    = 14.0
	attachmentSize = 11.0
	valueSize      = 10.0
	dateSize       = 10.0
)

// Artwork is the content of one stamp.
type Artwork struct {
	Barcode    string
	Company    string
	Attachment string
	Date       string
	// Width in pixels. Zero means ReferenceWidth.
	Width int
}

// Output is an encoded stamp image.
type Output struct {
	PNG    []byte
	Width  int
	Height int
}

// Aspect returns height / width.
func (o Output) Aspect() float64 {
	if o.Width == 0 {
		return 0
	}
	return float64(o.Height) / float64(o.Width)
}

type Renderer struct {
	font *opentype.Font
}

// NewRenderer loads the outline font at fontPath. An empty path is a
// configuration error. A font that cannot be read or parsed is logged and
// replaced by a fixed bitmap face.
func NewRenderer(fontPath string) (*Renderer, error) {
	if fontPath == "" {
		return nil, apperr.Errorf(apperr.KindConfiguration, "stamp.NewRenderer", "no font configured")
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		logger.Warn(context.Background(), "stamp font unavailable, using fallback face", logger.Fields{
			"font_path": fontPath,
			"error":     err.Error(),
		})
		return &Renderer{}, nil
	}
	return NewRendererFromBytes(data), nil
}

// NewRendererFromBytes parses an OpenType or TrueType font. Parse failures
// fall back to the bitmap face.
func NewRendererFromBytes(data []byte) *Renderer {
	f, err := opentype.Parse(data)
	if err != nil {
		logger.Warn(context.Background(), "stamp font could not be parsed, using fallback face", logger.Fields{
			"error": err.Error(),
		})
		return &Renderer{}
	}
	return &Renderer{font: f}
}

// Fallback reports whether the renderer draws with the bitmap face.
func (r *Renderer) Fallback() bool {
	return r.font == nil
}

func (r *Renderer) face(size float64) font.Face {
	if r.font == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

type line struct {
	text   string
	face   font.Face
	height int
	ascent int
}

func (r *Renderer) lines(ctx context.Context, scale float64, texts []string, sizes []float64, rtl bool) []line {
	var out []line
	for i, s := range texts {
		if rtl {
			s = textshape.StripBidiControls(textshape.ShapeContext(ctx, s))
		} else {
			s = textshape.StripBidiControls(s)
		}
		if s == "" {
			continue
		}
		face := r.face(sizes[i] * scale)
		m := face.Metrics()
		out = append(out, line{
			text:   s,
			face:   face,
			height: m.Height.Ceil(),
			ascent: m.Ascent.Ceil(),
		})
	}
	return out
}

// Render draws the stamp and encodes it as PNG. The barcode must encode; a
// stamp without a scannable identifier is an error.
func (r *Renderer) Render(a Artwork) (Output, error) {
	return r.RenderContext(context.Background(), a)
}

// RenderContext is Render with text shaping failures logged against ctx.
func (r *Renderer) RenderContext(ctx context.Context, a Artwork) (Output, error) {
	width := a.Width
	if width <= 0 {
		width = ReferenceWidth
	}
	scale := float64(width) / ReferenceWidth

	code, err := code128.Encode(a.Barcode)
	if err != nil {
		return Output{}, fmt.Errorf("encode barcode %q: %w", a.Barcode, err)
	}

	pad := px(padding * scale)
	spacing := px(gap * scale)
	barH := max(px(barcodeHeight*scale), 1)

	above := r.lines(ctx, scale, []string{a.Company, a.Attachment}, []float64{companySize, attachmentSize}, true)
	below := r.lines(ctx, scale, []string{a.Barcode, a.Date}, []float64{valueSize, dateSize}, false)
	defer closeFaces(above, below)

	blocks := len(above) + len(below) + 1
	height := 2*pad + barH + (blocks-1)*spacing
	for _, l := range above {
		height += l.height
	}
	for _, l := range below {
		height += l.height
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	y := pad
	for _, l := range above {
		drawCentered(canvas, l, y)
		y += l.height + spacing
	}

	if err := drawBarcode(canvas, code, image.Rect(pad, y, width-pad, y+barH)); err != nil {
		return Output{}, err
	}
	y += barH + spacing

	for _, l := range below {
		drawCentered(canvas, l, y)
		y += l.height + spacing
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Output{}, fmt.Errorf("encode stamp png: %w", err)
	}
	return Output{PNG: buf.Bytes(), Width: width, Height: height}, nil
}

// drawBarcode draws the symbol into dst at a whole number of pixels per
// module, centred by barcode.Scale. A symbol wider than dst is an error since
// dropping modules would make it unscannable.
func drawBarcode(canvas *image.RGBA, code barcode.Barcode, dst image.Rectangle) error {
	native := code.Bounds().Dx()
	if native > dst.Dx() {
		return fmt.Errorf("barcode needs %d px, stamp leaves %d px: widen the stamp or shorten the value", native, max(dst.Dx(), 0))
	}
	scaled, err := barcode.Scale(code, dst.Dx(), max(dst.Dy(), 1))
	if err != nil {
		return fmt.Errorf("scale barcode: %w", err)
	}
	draw.Draw(canvas, dst, scaled, scaled.Bounds().Min, draw.Src)
	return nil
}

func drawCentered(dst *image.RGBA, l line, top int) {
	advance := font.MeasureString(l.face, l.text).Ceil()
	x := max((dst.Bounds().Dx()-advance)/2, 0)
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: l.face,
		Dot:  fixed.P(x, top+l.ascent),
	}
	d.DrawString(l.text)
}

func closeFaces(groups ...[]line) {
	for _, g := range groups {
		for _, l := range g {
			if l.face != basicfont.Face7x13 {
				l.face.Close()
			}
		}
	}
}

func px(v float64) int {
	return int(math.Round(v))
}
