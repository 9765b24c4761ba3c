package geo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"image"
	"image/png"
	"io"
	"math"
	"sort"
	"strconv"
)

const dpi = 72

type svgElement struct {
	z    int
	body string
}

// SVGSurface renders the overlay into a standalone SVG document.
// Coordinates are projected linearly from the bounding box onto the canvas.
type SVGSurface struct {
	box    BoundingBox
	width  float64
	height float64
	axes   bool

	elems []svgElement
	err   error
}

func NewSVGSurface(style OverlayStyle) *SVGSurface {
	return &SVGSurface{
		box:    style.Box,
		width:  style.Width * dpi,
		height: style.Height * dpi,
		axes:   true,
	}
}

func (s *SVGSurface) project(lng, lat float64) (float64, float64) {
	x := (lng - s.box.West) / (s.box.East - s.box.West) * s.width
	y := (s.box.North - lat) / (s.box.North - s.box.South) * s.height
	return x, y
}

func (s *SVGSurface) AxisOff() { s.axes = false }

func (s *SVGSurface) Scatter(xs, ys []float64, marker MarkerStyle, z int) {
	// marker size is an area in points squared
	r := math.Sqrt(marker.Size/math.Pi) * dpi / 72
	var b bytes.Buffer
	fmt.Fprintf(&b, `<g fill="%s" fill-opacity="%s">`, html.EscapeString(marker.Color), fmtFloat(marker.Alpha))
	for i := range xs {
		x, y := s.project(xs[i], ys[i])
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s"/>`, fmtFloat(x), fmtFloat(y), fmtFloat(r))
	}
	b.WriteString("</g>")
	s.elems = append(s.elems, svgElement{z: z, body: b.String()})
}

func (s *SVGSurface) Image(img image.Image, extent BoundingBox, z int) {
	var raw bytes.Buffer
	if err := png.Encode(&raw, img); err != nil {
		s.err = fmt.Errorf("encode map image: %w", err)
		return
	}
	x0, y0 := s.project(extent.West, extent.North)
	x1, y1 := s.project(extent.East, extent.South)
	body := fmt.Sprintf(`<image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none" href="data:image/png;base64,%s"/>`,
		fmtFloat(x0), fmtFloat(y0), fmtFloat(x1-x0), fmtFloat(y1-y0),
		base64.StdEncoding.EncodeToString(raw.Bytes()))
	s.elems = append(s.elems, svgElement{z: z, body: body})
}

// WriteTo emits the document with lower z drawn first.
func (s *SVGSurface) WriteTo(w io.Writer) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	elems := make([]svgElement, len(s.elems))
	copy(elems, s.elems)
	sort.SliceStable(elems, func(i, j int) bool { return elems[i].z < elems[j].z })

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		fmtFloat(s.width), fmtFloat(s.height), fmtFloat(s.width), fmtFloat(s.height))
	if s.axes {
		fmt.Fprintf(&b, `<rect x="0" y="0" width="%s" height="%s" fill="none" stroke="black"/>`,
			fmtFloat(s.width), fmtFloat(s.height))
	}
	for _, e := range elems {
		b.WriteString(e.body)
	}
	b.WriteString("</svg>\n")
	return b.WriteTo(w)
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
