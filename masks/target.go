package masks

import (
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Target is a channels-last multi-class mask raster, shaped
// [Height, Width, Channels] and stored row-major with the channel axis
// innermost. It is the composed per-sample training target.
type Target struct {
	Height, Width, Channels int
	Data                    []float32
}

// NewTarget returns a zeroed target of the given shape.
func NewTarget(height, width, channels int) *Target {
	return &Target{
		Height:   height,
		Width:    width,
		Channels: channels,
		Data:     make([]float32, height*width*channels),
	}
}

// At returns the value at (row, col, channel). No bounds checking.
func (t *Target) At(row, col, channel int) float32 {
	return t.Data[(row*t.Width+col)*t.Channels+channel]
}

// Set sets the value at (row, col, channel). No bounds checking.
func (t *Target) Set(row, col, channel int, v float32) {
	t.Data[(row*t.Width+col)*t.Channels+channel] = v
}

// Equal reports whether both targets have the same shape and values.
func (t *Target) Equal(other *Target) bool {
	if other == nil || t.Height != other.Height || t.Width != other.Width || t.Channels != other.Channels {
		return false
	}
	for i, v := range t.Data {
		if v != other.Data[i] {
			return false
		}
	}
	return true
}

// ChannelSum returns the sum of the values of one channel.
func (t *Target) ChannelSum(channel int) float64 {
	total := 0.0
	for r := 0; r < t.Height; r++ {
		for c := 0; c < t.Width; c++ {
			total += float64(t.At(r, c, channel))
		}
	}
	return total
}

// fillChannel writes a full-frame mask into one channel of the target.
func (t *Target) fillChannel(channel int, m *Mask) {
	for i, v := range m.Pix {
		t.Data[i*t.Channels+channel] = float32(v)
	}
}

// FlipH returns a copy of the target mirrored horizontally (columns reversed).
func (t *Target) FlipH() *Target {
	out := NewTarget(t.Height, t.Width, t.Channels)
	for r := 0; r < t.Height; r++ {
		for c := 0; c < t.Width; c++ {
			for ch := 0; ch < t.Channels; ch++ {
				out.Set(r, t.Width-1-c, ch, t.At(r, c, ch))
			}
		}
	}
	return out
}

// FlipV returns a copy of the target mirrored vertically (rows reversed).
func (t *Target) FlipV() *Target {
	out := NewTarget(t.Height, t.Width, t.Channels)
	for r := 0; r < t.Height; r++ {
		for c := 0; c < t.Width; c++ {
			for ch := 0; ch < t.Channels; ch++ {
				out.Set(t.Height-1-r, c, ch, t.At(r, c, ch))
			}
		}
	}
	return out
}

// Rotate90 returns a copy of the target rotated 90° counter-clockwise, the
// same direction as imaging.Rotate90 rotates images.
func (t *Target) Rotate90() *Target {
	out := NewTarget(t.Width, t.Height, t.Channels)
	for r := 0; r < t.Height; r++ {
		for c := 0; c < t.Width; c++ {
			for ch := 0; ch < t.Channels; ch++ {
				out.Set(t.Width-1-c, r, ch, t.At(r, c, ch))
			}
		}
	}
	return out
}

// ResizeNearest returns the target resampled to the given size with
// nearest-neighbor interpolation, which keeps mask values discrete.
func (t *Target) ResizeNearest(height, width int) *Target {
	out := NewTarget(height, width, t.Channels)
	for r := 0; r < height; r++ {
		srcR := min(r*t.Height/height, t.Height-1)
		for c := 0; c < width; c++ {
			srcC := min(c*t.Width/width, t.Width-1)
			for ch := 0; ch < t.Channels; ch++ {
				out.Set(r, c, ch, t.At(srcR, srcC, ch))
			}
		}
	}
	return out
}

// Tensor converts the target to a [Height, Width, Channels] tensor of the
// given dtype.
func (t *Target) Tensor(dtype dtypes.DType) (*tensors.Tensor, error) {
	return targetsToTensor(dtype, []*Target{t}, false)
}

// ComposeTensor composes the accumulated canvases (see Compose) and converts
// the result to a tensor of the Composer's configured dtype.
func (c *Composer) ComposeTensor() (*tensors.Tensor, error) {
	return c.Compose().Tensor(c.dtype)
}

// StackTargets converts a batch of equally-shaped targets to one
// [batch, Height, Width, Channels] tensor of the given dtype.
func StackTargets(dtype dtypes.DType, batch []*Target) (*tensors.Tensor, error) {
	if len(batch) == 0 {
		return nil, errors.Wrap(ErrShape, "cannot stack an empty batch of targets")
	}
	return targetsToTensor(dtype, batch, true)
}

func targetsToTensor(dtype dtypes.DType, batch []*Target, batched bool) (*tensors.Tensor, error) {
	first := batch[0]
	for i, t := range batch[1:] {
		if t.Height != first.Height || t.Width != first.Width || t.Channels != first.Channels {
			return nil, errors.Wrapf(ErrShape,
				"target[%d] is (%d, %d, %d), but target[0] is (%d, %d, %d) -- batch shapes must match",
				i+1, t.Height, t.Width, t.Channels, first.Height, first.Width, first.Channels)
		}
	}
	switch dtype {
	case dtypes.Float32:
		return targetsToTensorGenerics[float32](dtype, batch, batched), nil
	case dtypes.Float64:
		return targetsToTensorGenerics[float64](dtype, batch, batched), nil
	case dtypes.Int8:
		return targetsToTensorGenerics[int8](dtype, batch, batched), nil
	case dtypes.Int16:
		return targetsToTensorGenerics[int16](dtype, batch, batched), nil
	case dtypes.Int32:
		return targetsToTensorGenerics[int32](dtype, batch, batched), nil
	case dtypes.Int64:
		return targetsToTensorGenerics[int64](dtype, batch, batched), nil
	case dtypes.Uint8:
		return targetsToTensorGenerics[uint8](dtype, batch, batched), nil
	case dtypes.Uint16:
		return targetsToTensorGenerics[uint16](dtype, batch, batched), nil
	case dtypes.Uint32:
		return targetsToTensorGenerics[uint32](dtype, batch, batched), nil
	case dtypes.Uint64:
		return targetsToTensorGenerics[uint64](dtype, batch, batched), nil
	case dtypes.Float16:
		return targetsToTensorGenerics[float16.Float16](dtype, batch, batched), nil
	case dtypes.BFloat16:
		return targetsToTensorGenerics[bfloat16.BFloat16](dtype, batch, batched), nil
	}
	return nil, errors.Wrapf(ErrConfig, "targets cannot be converted to dtype %s", dtype)
}

func targetsToTensorGenerics[T dtypes.NumberNotComplex | float16.Float16 | bfloat16.BFloat16](
	dtype dtypes.DType, batch []*Target, batched bool) *tensors.Tensor {
	first := batch[0]
	var t *tensors.Tensor
	if batched {
		t = tensors.FromShape(shapes.Make(dtype, len(batch), first.Height, first.Width, first.Channels))
	} else {
		t = tensors.FromShape(shapes.Make(dtype, first.Height, first.Width, first.Channels))
	}

	var convert func(v float32) T
	switch dtype {
	case dtypes.Float16:
		convert = func(v float32) T { return T(float16.Fromfloat32(v)) }
	case dtypes.BFloat16:
		convert = func(v float32) T { return T(bfloat16.FromFloat32(v)) }
	default:
		convert = func(v float32) T { return T(v) }
	}

	t.MustMutableFlatData(func(flatAny any) {
		flat := flatAny.([]T)
		pos := 0
		for _, target := range batch {
			for _, v := range target.Data {
				flat[pos] = convert(v)
				pos++
			}
		}
	})
	return t
}
