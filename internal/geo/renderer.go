package geo

import (
	"image"

	"ecomdash/internal/models"
)

// BoundingBox is the geographic rectangle a map image covers.
type BoundingBox struct {
	West  float64 `json:"west" yaml:"west"`
	East  float64 `json:"east" yaml:"east"`
	South float64 `json:"south" yaml:"south"`
	North float64 `json:"north" yaml:"north"`
}

func (b BoundingBox) Valid() bool {
	return b.West < b.East && b.South < b.North
}

type MarkerStyle struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Size  float64 `json:"size" yaml:"size"`
	Color string  `json:"color" yaml:"color"`
}

// OverlayStyle fixes everything about the overlay except the data.
type OverlayStyle struct {
	Box    BoundingBox `yaml:"box"`
	Marker MarkerStyle `yaml:"marker"`
	// figure size in inches
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// DefaultStyle covers Brazil with small translucent green markers.
func DefaultStyle() OverlayStyle {
	return OverlayStyle{
		Box:    BoundingBox{West: -73.98283055, East: -33.8, South: -33.75116944, North: 5.4},
		Marker: MarkerStyle{Alpha: 0.3, Size: 0.3, Color: "green"},
		Width:  10,
		Height: 10,
	}
}

// Drawing order: the map sits under the markers.
const (
	ImageZ  = 0
	MarkerZ = 1
)

// ImageResource is a decoded background map.
type ImageResource interface {
	Image() image.Image
}

// PlottingSurface receives the overlay's draw calls.
type PlottingSurface interface {
	AxisOff()
	Scatter(xs, ys []float64, marker MarkerStyle, z int)
	Image(img image.Image, extent BoundingBox, z int)
}

// OverlayPlan is the full set of draw parameters for one render.
type OverlayPlan struct {
	Xs      []float64
	Ys      []float64
	Marker  MarkerStyle
	Extent  BoundingBox
	MarkerZ int
	ImageZ  int
}

// Renderer places customer locations over a map image.
type Renderer struct {
	surface PlottingSurface
	style   OverlayStyle
}

func NewRenderer(surface PlottingSurface, style OverlayStyle) *Renderer {
	return &Renderer{surface: surface, style: style}
}

func (r *Renderer) Plan(points []models.GeoPoint) OverlayPlan {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Lng
		ys[i] = p.Lat
	}
	return OverlayPlan{
		Xs:      xs,
		Ys:      ys,
		Marker:  r.style.Marker,
		Extent:  r.style.Box,
		MarkerZ: MarkerZ,
		ImageZ:  ImageZ,
	}
}

// Render draws the markers, then the map stretched to the bounding box.
// img must be non-nil.
func (r *Renderer) Render(points []models.GeoPoint, img ImageResource) {
	plan := r.Plan(points)
	r.surface.AxisOff()
	r.surface.Scatter(plan.Xs, plan.Ys, plan.Marker, plan.MarkerZ)
	r.surface.Image(img.Image(), plan.Extent, plan.ImageZ)
}
