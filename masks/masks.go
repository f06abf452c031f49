// Package masks provides binary raster masks, morphological dilation and the
// Composer, which accumulates per-class object masks into a full-frame,
// multi-channel segmentation target.
package masks

import (
	"github.com/pkg/errors"
)

var (
	// ErrConfig indicates invalid construction or configuration parameters.
	ErrConfig = errors.New("invalid configuration")

	// ErrShape indicates a mask or target whose shape does not fit where it
	// is being used.
	ErrShape = errors.New("invalid shape")

	// ErrInvalidOffset indicates an object placement that exceeds the frame
	// canvas bounds.
	ErrInvalidOffset = errors.New("offset out of canvas bounds")
)

// Mask is a 2D uint8 raster, row-major. Values are usually binary {0, 1},
// but plain (non-border) class accumulation in the Composer can produce
// overlap counts above 1.
type Mask struct {
	Height, Width int
	Pix           []uint8
}

// NewMask returns a zeroed mask of the given size.
func NewMask(height, width int) *Mask {
	return &Mask{Height: height, Width: width, Pix: make([]uint8, height*width)}
}

// At returns the value at (row, col). No bounds checking.
func (m *Mask) At(row, col int) uint8 { return m.Pix[row*m.Width+col] }

// Set sets the value at (row, col). No bounds checking.
func (m *Mask) Set(row, col int, v uint8) { m.Pix[row*m.Width+col] = v }

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := &Mask{Height: m.Height, Width: m.Width, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Sum returns the sum of all pixel values.
func (m *Mask) Sum() int {
	total := 0
	for _, v := range m.Pix {
		total += int(v)
	}
	return total
}

// Offset is the placement of an object mask inside the frame canvas,
// in (row, col) order.
type Offset struct {
	Row, Col int
}

// Kernel is an all-ones structuring element for morphological dilation.
type Kernel struct {
	Height, Width int
}

// DefaultKernel is the dilation kernel used when none is configured.
// It is a frozen value: copies are cheap and it is never mutated.
var DefaultKernel = Kernel{Height: 2, Width: 2}

// SquareKernel returns a size×size all-ones kernel.
func SquareKernel(size int) Kernel { return Kernel{Height: size, Width: size} }

// Dilate grows the non-zero regions of the mask with the given all-ones
// kernel and returns the result as a new binary mask.
//
// A destination pixel (r, c) is set when any source pixel in the window
// rows [r-(kh-1)/2, r+kh/2], cols [c-(kw-1)/2, c+kw/2] is non-zero. For odd
// kernels the window is symmetric; for even kernels it extends one further
// down and right.
func (m *Mask) Dilate(k Kernel) *Mask {
	if k.Height <= 0 || k.Width <= 0 {
		return m.Clone()
	}
	out := NewMask(m.Height, m.Width)
	rBefore, rAfter := (k.Height-1)/2, k.Height/2
	cBefore, cAfter := (k.Width-1)/2, k.Width/2
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			r0 := max(0, r-rBefore)
			r1 := min(m.Height-1, r+rAfter)
			c0 := max(0, c-cBefore)
			c1 := min(m.Width-1, c+cAfter)
		window:
			for wr := r0; wr <= r1; wr++ {
				for wc := c0; wc <= c1; wc++ {
					if m.Pix[wr*m.Width+wc] != 0 {
						out.Pix[r*m.Width+c] = 1
						break window
					}
				}
			}
		}
	}
	return out
}

// intersectNonzero returns a binary mask set where both a and b are non-zero.
// The masks must have the same shape.
func intersectNonzero(a, b *Mask) *Mask {
	out := NewMask(a.Height, a.Width)
	for i, v := range a.Pix {
		if v != 0 && b.Pix[i] != 0 {
			out.Pix[i] = 1
		}
	}
	return out
}
