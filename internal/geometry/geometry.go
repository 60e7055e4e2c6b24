// Package geometry maps placement chosen on a rendered page preview into PDF
// user space.
//
// The preview uses pixels with the origin at the top-left corner of its
// container. PDF pages use points with the origin at the bottom-left corner.
// MapPlacement converts between the two and clamps the result onto the page,
// so malformed client input can never push an image off the page or panic.
package geometry

import "math"

const (
	// DefaultMargin is the distance from the bottom-left corner used when no
	// placement is supplied.
	DefaultMargin = 36.0
	// DefaultWidth is the preferred stamp width in default placement.
	DefaultWidth = 180.0
	// maxPageShare caps default placement to a share of the page width.
	maxPageShare = 0.35
)

// PlacementSpec is a rectangle drawn on a client-rendered page preview, in
// pixels relative to the preview container.
type PlacementSpec struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	ContainerWidth  float64 `json:"containerWidth"`
	ContainerHeight float64 `json:"containerHeight"`
}

// PdfGeometry is a rectangle in PDF points, bottom-left origin.
type PdfGeometry struct {
	X      float64 `json:"xPdf"`
	Y      float64 `json:"yPdf"`
	Width  float64 `json:"widthPdf"`
	Height float64 `json:"heightPdf"`
}

type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsRightAngle reports whether degrees is one of 0, 90, 180, 270.
func IsRightAngle(degrees int) bool {
	switch degrees {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// Rotate returns the visible page size after rotating the page by degrees.
// Anything other than a right angle leaves the size unchanged.
func (p PageSize) Rotate(degrees int) PageSize {
	if degrees == 90 || degrees == 270 {
		return PageSize{Width: p.Height, Height: p.Width}
	}
	return p
}

// MapPlacement converts spec into page space. With a nil spec the image is
// placed at the default margin, min(defaultWidth, 35% of the page width) wide,
// with its height following imageAspect (height / width of the source image).
func MapPlacement(spec *PlacementSpec, page PageSize, imageAspect, defaultWidth float64) PdfGeometry {
	pw := finite(page.Width)
	ph := finite(page.Height)

	var g PdfGeometry
	if spec != nil {
		g = interactive(*spec, pw, ph)
	} else {
		g = fallback(pw, ph, imageAspect, defaultWidth)
	}

	g.X = clamp(g.X, 0, pw-1)
	g.Y = clamp(g.Y, 0, ph-1)
	g.Width = clamp(g.Width, 0, pw)
	g.Height = clamp(g.Height, 0, ph)
	return g
}

func interactive(spec PlacementSpec, pw, ph float64) PdfGeometry {
	cw := finite(spec.ContainerWidth)
	ch := finite(spec.ContainerHeight)
	if cw <= 0 {
		cw = pw
	}
	if ch <= 0 {
		ch = ph
	}
	scaleX := 1.0
	scaleY := 1.0
	if cw > 0 {
		scaleX = pw / cw
	}
	if ch > 0 {
		scaleY = ph / ch
	}

	x := finite(spec.X)
	y := finite(spec.Y)
	w := math.Max(finite(spec.Width), 0)
	h := math.Max(finite(spec.Height), 0)

	return PdfGeometry{
		X:      x * scaleX,
		Y:      ph - (y+h)*scaleY,
		Width:  w * scaleX,
		Height: h * scaleY,
	}
}

func fallback(pw, ph, aspect, defaultWidth float64) PdfGeometry {
	dw := finite(defaultWidth)
	if dw <= 0 {
		dw = DefaultWidth
	}
	width := math.Min(dw, maxPageShare*pw)
	aspect = finite(aspect)
	if aspect <= 0 {
		aspect = 1
	}
	return PdfGeometry{
		X:      DefaultMargin,
		Y:      DefaultMargin,
		Width:  width,
		Height: width * aspect,
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Min(math.Max(v, lo), hi)
}
