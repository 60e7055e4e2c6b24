// Package pdf wraps pdfcpu for the stamping pipeline.
//
// Functions:
//   - Inspect: validates a document and reports its page sizes.
//     Input: PDF bytes. Output: Info or an InvalidDocument error.
//   - Rotate: rotates one page by a right angle.
//   - Composite: draws an image onto one page at a PdfGeometry.
//     Input: PDF bytes, PNG/JPEG bytes, geometry, zero based page index.
//     Output: the full serialized document.
//   - MergeFiles / RemoveBookmarks: join session uploads before signing.
//
// Everything works on byte slices; the pipeline never touches disk.
package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/geometry"
)

const (
	// images are embedded at twice their point size
	oversample = 2.0

	separatorOpacity = 0.3
	separatorWidth   = 1.0
)

// Info describes a validated document.
type Info struct {
	PageCount int
	Pages     []geometry.PageSize
}

// Page returns the size of the page at index, clamped to the document.
func (i Info) Page(index int) geometry.PageSize {
	return i.Pages[ClampPage(index, len(i.Pages))]
}

// Options controls Composite.
type Options struct {
	// DefaultPlacement draws a faint separator above the image as a cue
	// that no explicit placement was chosen.
	DefaultPlacement bool
}

func newConfig() *model.Configuration {
	config := model.NewDefaultConfiguration()
	config.ValidationMode = model.ValidationRelaxed
	return config
}

// ClampPage maps index into [0, count-1].
func ClampPage(index, count int) int {
	if count <= 0 || index < 0 {
		return 0
	}
	if index >= count {
		return count - 1
	}
	return index
}

// Inspect parses data and returns its page sizes.
func Inspect(data []byte) (Info, error) {
	const op = "pdf.Inspect"
	if len(data) == 0 {
		return Info{}, apperr.Errorf(apperr.KindInvalidDocument, op, "empty document")
	}

	config := newConfig()
	count, err := pdfapi.PageCount(bytes.NewReader(data), config)
	if err != nil {
		return Info{}, apperr.E(apperr.KindInvalidDocument, op, err)
	}
	if count == 0 {
		return Info{}, apperr.Errorf(apperr.KindInvalidDocument, op, "document has no pages")
	}

	dims, err := pdfapi.PageDims(bytes.NewReader(data), config)
	if err != nil {
		return Info{}, apperr.E(apperr.KindInvalidDocument, op, err)
	}
	pages := make([]geometry.PageSize, 0, len(dims))
	for _, d := range dims {
		pages = append(pages, geometry.PageSize{Width: d.Width, Height: d.Height})
	}
	if len(pages) == 0 {
		return Info{}, apperr.Errorf(apperr.KindInvalidDocument, op, "document has no page boxes")
	}
	return Info{PageCount: count, Pages: pages}, nil
}

// Rotate turns the page at pageIndex clockwise by degrees. Values other than
// 90, 180 and 270 return data unchanged.
func Rotate(data []byte, pageIndex, degrees int) ([]byte, error) {
	if degrees == 0 || !geometry.IsRightAngle(degrees) {
		return data, nil
	}
	info, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	page := ClampPage(pageIndex, info.PageCount)

	var out bytes.Buffer
	selected := []string{strconv.Itoa(page + 1)}
	if err := pdfapi.Rotate(bytes.NewReader(data), &out, degrees, selected, newConfig()); err != nil {
		return nil, fmt.Errorf("failed to rotate page %d: %w", page+1, err)
	}
	return out.Bytes(), nil
}

// DecodeImage accepts PNG and falls back to JPEG.
func DecodeImage(data []byte) (image.Image, error) {
	img, pngErr := png.Decode(bytes.NewReader(data))
	if pngErr == nil {
		return img, nil
	}
	img, jpegErr := jpeg.Decode(bytes.NewReader(data))
	if jpegErr == nil {
		return img, nil
	}
	return nil, apperr.Errorf(apperr.KindUnsupportedImageFormat, "pdf.DecodeImage",
		"not PNG (%v) or JPEG (%v)", pngErr, jpegErr)
}

// ImageAspect decodes only the image header and returns height / width.
func ImageAspect(data []byte) (float64, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil || cfg.Width == 0 {
		return 0, apperr.Errorf(apperr.KindUnsupportedImageFormat, "pdf.ImageAspect", "unreadable image header")
	}
	return float64(cfg.Height) / float64(cfg.Width), nil
}

// Composite draws img onto the page at pageIndex and returns the new document.
func Composite(data, img []byte, g geometry.PdfGeometry, pageIndex int, opts Options) ([]byte, error) {
	info, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	page := ClampPage(pageIndex, info.PageCount)
	selected := []string{strconv.Itoa(page + 1)}

	decoded, err := DecodeImage(img)
	if err != nil {
		return nil, err
	}

	width := math.Max(g.Width, 1/oversample)
	height := math.Max(g.Height, 1/oversample)
	pxW := max(int(math.Round(width*oversample)), 1)
	pxH := max(int(math.Round(height*oversample)), 1)
	encoded, err := resample(decoded, pxW, pxH)
	if err != nil {
		return nil, err
	}

	out, err := stamp(data, encoded, selected, g.X, g.Y, width/float64(pxW), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to apply image: %w", err)
	}

	if opts.DefaultPlacement {
		line, err := separator(width)
		if err != nil {
			return nil, err
		}
		y := math.Min(g.Y+height, info.Page(page).Height-separatorWidth)
		out, err = stamp(out, line, selected, g.X, math.Max(y, 0), 1, separatorOpacity)
		if err != nil {
			return nil, fmt.Errorf("failed to draw separator: %w", err)
		}
	}
	return out, nil
}

func stamp(data, img []byte, selected []string, x, y, scale, opacity float64) ([]byte, error) {
	// pos:bl anchors the lower left corner, off moves it to (x, y), abs scales
	// from the image's pixel size with one pixel per point.
	desc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:%.4f abs, rot:0, op:%.2f", x, y, scale, opacity)
	wm, err := pdfapi.ImageWatermarkForReader(bytes.NewReader(img), desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image watermark: %w", err)
	}

	var out bytes.Buffer
	if err := pdfapi.AddWatermarks(bytes.NewReader(data), &out, selected, wm, newConfig()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func resample(src image.Image, w, h int) ([]byte, error) {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func separator(width float64) ([]byte, error) {
	w := max(int(math.Round(width)), 1)
	line := image.NewNRGBA(image.Rect(0, 0, w, int(separatorWidth)))
	draw.Draw(line, line.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, line); err != nil {
		return nil, fmt.Errorf("failed to encode separator: %w", err)
	}
	return buf.Bytes(), nil
}
