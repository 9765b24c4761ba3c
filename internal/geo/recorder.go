package geo

import (
	"image"

	"github.com/goccy/go-json"
)

const (
	KindAxisOff = "axis_off"
	KindScatter = "scatter"
	KindImage   = "image"
)

type DrawCommand struct {
	Kind        string       `json:"kind"`
	Z           int          `json:"z"`
	Points      [][2]float64 `json:"points,omitempty"`
	Marker      *MarkerStyle `json:"marker,omitempty"`
	Extent      *BoundingBox `json:"extent,omitempty"`
	ImageWidth  int          `json:"image_width,omitempty"`
	ImageHeight int          `json:"image_height,omitempty"`
}

// Recorder is a PlottingSurface that keeps the draw calls for a client to replay.
type Recorder struct {
	Commands []DrawCommand
}

func (r *Recorder) AxisOff() {
	r.Commands = append(r.Commands, DrawCommand{Kind: KindAxisOff})
}

func (r *Recorder) Scatter(xs, ys []float64, marker MarkerStyle, z int) {
	pts := make([][2]float64, len(xs))
	for i := range xs {
		pts[i] = [2]float64{xs[i], ys[i]}
	}
	m := marker
	r.Commands = append(r.Commands, DrawCommand{Kind: KindScatter, Z: z, Points: pts, Marker: &m})
}

func (r *Recorder) Image(img image.Image, extent BoundingBox, z int) {
	e := extent
	b := img.Bounds()
	r.Commands = append(r.Commands, DrawCommand{
		Kind:        KindImage,
		Z:           z,
		Extent:      &e,
		ImageWidth:  b.Dx(),
		ImageHeight: b.Dy(),
	})
}

func (r *Recorder) MarshalJSON() ([]byte, error) {
	cmds := r.Commands
	if cmds == nil {
		cmds = []DrawCommand{}
	}
	return json.Marshal(cmds)
}
