// Package testutil builds small PDF and image fixtures in memory.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// PDF returns a valid PDF with n blank pages of the given size in points.
func PDF(n int, width, height float64) []byte {
	if n < 1 {
		n = 1
	}

	// 1: catalog, 2: pages, 3..3+n-1: page objects
	var objects []string
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for i := 0; i < n; i++ {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << >> >>",
			num(width), num(height)))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Letter returns a one page US Letter PDF.
func Letter() []byte {
	return PDF(1, 612, 792)
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}

// Image returns a w x h image filled with c.
func Image(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// PNG encodes a solid w x h image.
func PNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image(w, h, color.NRGBA{R: 20, G: 40, B: 160, A: 255})); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEG encodes a solid w x h image.
func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Image(w, h, color.RGBA{R: 200, G: 30, B: 30, A: 255}), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
