// Package visualize overlays segmentation targets on their source images for
// debugging: a single-class colormap heatmap blend, and a multi-class variant
// that paints secondary classes with flat colors.
package visualize

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot/palette"

	"github.com/toodef/segdata/masks"
)

// Visualizer combines an image and its mask target into a displayable
// overlay. Implementations hold no mutable state: a Visualizer can be shared
// across data-loading workers.
type Visualizer interface {
	Render(img image.Image, target *masks.Target) (image.Image, error)
}

// Colormap blends a single-channel target as a colored heatmap over the
// image: out = imgProportion*img + maskProportion*colormap(mask).
type Colormap struct {
	imgWeight, maskWeight float64
	lut                   [256]color.NRGBA
}

var _ Visualizer = &Colormap{}

// NewColormap creates a heatmap visualizer with the given blend proportions
// for the image and the colorized mask. The default colormap is the gonum
// heat palette.
func NewColormap(imgProportion, maskProportion float64) *Colormap {
	c := &Colormap{imgWeight: imgProportion, maskWeight: maskProportion}
	return c.WithPalette(palette.Heat(256, 255))
}

// WithPalette replaces the colormap, resampling the palette into a 256-entry
// lookup table. It returns the Colormap, so configuration calls can be
// cascaded.
func (c *Colormap) WithPalette(p palette.Palette) *Colormap {
	colors := p.Colors()
	for i := range c.lut {
		idx := i * (len(colors) - 1) / (len(c.lut) - 1)
		c.lut[i] = color.NRGBAModel.Convert(colors[idx]).(color.NRGBA)
	}
	return c
}

// Render implements Visualizer. The target must have exactly one channel.
func (c *Colormap) Render(img image.Image, target *masks.Target) (image.Image, error) {
	if target.Channels != 1 {
		return nil, errors.Wrapf(masks.ErrShape,
			"colormap visualizer needs a single-channel target, got %d channels", target.Channels)
	}
	return c.renderChannel(img, target, 0)
}

func (c *Colormap) renderChannel(img image.Image, target *masks.Target, channel int) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if bounds.Dy() != target.Height || bounds.Dx() != target.Width {
		return nil, errors.Wrapf(masks.ErrShape,
			"image %dx%d and target %dx%d sizes differ",
			bounds.Dy(), bounds.Dx(), target.Height, target.Width)
	}
	out := image.NewNRGBA(image.Rect(0, 0, target.Width, target.Height))
	for y := 0; y < target.Height; y++ {
		for x := 0; x < target.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			heat := c.lut[lutIndex(target.At(y, x, channel))]
			out.SetNRGBA(x, y, color.NRGBA{
				R: blend(r, heat.R, c.imgWeight, c.maskWeight),
				G: blend(g, heat.G, c.imgWeight, c.maskWeight),
				B: blend(b, heat.B, c.imgWeight, c.maskWeight),
				A: 255,
			})
		}
	}
	return out, nil
}

// lutIndex maps a mask value in [0, 1] to a colormap entry; values above 1
// (instance counts) saturate.
func lutIndex(v float32) int {
	idx := int(v * 255)
	if idx < 0 {
		return 0
	}
	if idx > 255 {
		return 255
	}
	return idx
}

// blend computes the weighted sum of one image channel (16-bit) and one
// heatmap channel (8-bit), clamped to [0, 255].
func blend(imgChannel uint32, heatChannel uint8, imgWeight, heatWeight float64) uint8 {
	v := imgWeight*float64(imgChannel>>8) + heatWeight*float64(heatChannel)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Multiclass renders one main class as a colormap heatmap and paints every
// remaining class with a distinct flat color, linearly interpolated across
// the class count. The flat colors are precomputed at construction, so a
// Multiclass visualizer is immutable and safe to share.
type Multiclass struct {
	colormap    *Colormap
	mainClass   int
	otherColors []color.NRGBA
}

var _ Visualizer = &Multiclass{}

// NewMulticlass creates a visualizer for targets with numClasses channels,
// rendering mainClass as a heatmap blended with the given proportions.
func NewMulticlass(mainClass, numClasses int, imgProportion, maskProportion float64) (*Multiclass, error) {
	if mainClass < 0 || mainClass >= numClasses {
		return nil, errors.Wrapf(masks.ErrConfig,
			"main class %d out of range for %d classes", mainClass, numClasses)
	}
	numOthers := numClasses - 1
	others := make([]color.NRGBA, numOthers)
	for i := range others {
		t := 0.0
		if numOthers > 1 {
			t = float64(i) / float64(numOthers-1)
		}
		others[i] = color.NRGBA{
			R: lerp(127, 0, t),
			G: lerp(255, 127, t),
			B: lerp(127, 255, t),
			A: 255,
		}
	}
	return &Multiclass{
		colormap:    NewColormap(imgProportion, maskProportion),
		mainClass:   mainClass,
		otherColors: others,
	}, nil
}

// WithPalette replaces the heatmap colormap used for the main class.
func (m *Multiclass) WithPalette(p palette.Palette) *Multiclass {
	m.colormap.WithPalette(p)
	return m
}

// OtherColors returns the flat colors assigned to the non-main classes, in
// channel order.
func (m *Multiclass) OtherColors() []color.NRGBA {
	out := make([]color.NRGBA, len(m.otherColors))
	copy(out, m.otherColors)
	return out
}

// Render implements Visualizer.
func (m *Multiclass) Render(img image.Image, target *masks.Target) (image.Image, error) {
	if target.Channels != len(m.otherColors)+1 {
		return nil, errors.Wrapf(masks.ErrShape,
			"multiclass visualizer configured for %d classes, target has %d channels",
			len(m.otherColors)+1, target.Channels)
	}
	out, err := m.colormap.renderChannel(img, target, m.mainClass)
	if err != nil {
		return nil, err
	}
	otherIdx := 0
	for channel := 0; channel < target.Channels; channel++ {
		if channel == m.mainClass {
			continue
		}
		flat := m.otherColors[otherIdx]
		otherIdx++
		for y := 0; y < target.Height; y++ {
			for x := 0; x < target.Width; x++ {
				if target.At(y, x, channel) > 0 {
					out.SetNRGBA(x, y, flat)
				}
			}
		}
	}
	return out, nil
}

func lerp(from, to uint8, t float64) uint8 {
	return uint8(float64(from) + (float64(to)-float64(from))*t)
}
