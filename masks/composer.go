package masks

import (
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// classEntry holds the accumulated state for one class. The representation is
// decided once, when the class is first added: borders is non-nil if and only
// if the class was registered with EnableBorders beforehand.
type classEntry struct {
	mask    *Mask
	borders *Mask
}

// Composer accumulates object masks into per-class full-frame canvases,
// optionally synthesizing a border channel between touching instances of
// selected classes.
//
// A Composer is not safe for concurrent use; data-loading layers are expected
// to parallelize across samples, each with its own Composer.
type Composer struct {
	height, width int
	dtype         dtypes.DType

	entries map[int]*classEntry
	order   []int // class ids in first-insertion order

	borderClasses map[int]bool
	kernel        Kernel
}

// NewComposer creates a Composer with a fixed frame canvas size. Every class
// canvas is lazily allocated with this shape. The composed tensor dtype
// defaults to Uint8.
func NewComposer(height, width int) *Composer {
	return &Composer{
		height:  height,
		width:   width,
		dtype:   dtypes.Uint8,
		entries: make(map[int]*classEntry),
		kernel:  DefaultKernel,
	}
}

// WithDType sets the dtype used by ComposeTensor. It returns the Composer, so
// configuration calls can be cascaded.
func (c *Composer) WithDType(dtype dtypes.DType) *Composer {
	c.dtype = dtype
	return c
}

// EnableBorders registers the given classes for border-as-class treatment:
// each of them accumulates a parallel borders canvas marking where dilated
// instance footprints touch. A zero kernel selects DefaultKernel.
//
// It must be called before any Add for the registered classes, so that the
// per-class representation is fixed up front.
func (c *Composer) EnableBorders(classes []int, kernel Kernel) error {
	for _, classID := range classes {
		if _, found := c.entries[classID]; found {
			return errors.Wrapf(ErrConfig,
				"EnableBorders for class %d after masks were already added to it", classID)
		}
	}
	if kernel == (Kernel{}) {
		kernel = DefaultKernel
	}
	if kernel.Height <= 0 || kernel.Width <= 0 {
		return errors.Wrapf(ErrConfig, "invalid dilation kernel %dx%d", kernel.Height, kernel.Width)
	}
	if c.borderClasses == nil {
		c.borderClasses = make(map[int]bool)
	}
	for _, classID := range classes {
		c.borderClasses[classID] = true
	}
	c.kernel = kernel
	return nil
}

// Add accumulates one object mask into the canvas of classID.
//
// If at is non-nil the mask is placed with its top-left corner at
// (at.Row, at.Col); a placement that does not fully fit the canvas fails with
// ErrInvalidOffset, it is never truncated. If at is nil the mask must have
// the full frame shape.
//
// For classes registered with EnableBorders, pixels where the dilated
// footprint of the new mask touches the dilated footprint of the previously
// accumulated class mask are added to the borders canvas, and both canvases
// are clipped to {0, 1}. For plain classes the mask values are added in
// place without clipping, so overlapping instances can accumulate counts
// above 1 (saturating at 255).
//
// A nil or empty mask is a no-op.
func (c *Composer) Add(m *Mask, classID int, at *Offset) error {
	if m == nil || m.Height == 0 || m.Width == 0 {
		return nil
	}
	if at != nil {
		if at.Row < 0 || at.Col < 0 || at.Row+m.Height > c.height || at.Col+m.Width > c.width {
			return errors.Wrapf(ErrInvalidOffset,
				"mask %dx%d at (%d, %d) does not fit canvas %dx%d",
				m.Height, m.Width, at.Row, at.Col, c.height, c.width)
		}
	} else if m.Height != c.height || m.Width != c.width {
		return errors.Wrapf(ErrShape,
			"mask %dx%d without offset must match canvas %dx%d",
			m.Height, m.Width, c.height, c.width)
	}

	entry, found := c.entries[classID]
	if !found {
		entry = &classEntry{mask: NewMask(c.height, c.width)}
		if c.borderClasses[classID] {
			entry.borders = NewMask(c.height, c.width)
		}
		c.entries[classID] = entry
		c.order = append(c.order, classID)
	}

	if entry.borders != nil {
		placed := NewMask(c.height, c.width)
		blit(placed, m, at)
		newBorders := intersectNonzero(entry.mask.Dilate(c.kernel), placed.Dilate(c.kernel))
		for i := range entry.borders.Pix {
			entry.borders.Pix[i] = clip01(int(entry.borders.Pix[i]) + int(newBorders.Pix[i]))
			entry.mask.Pix[i] = clip01(int(entry.mask.Pix[i]) + int(placed.Pix[i]))
		}
		return nil
	}

	row0, col0 := 0, 0
	if at != nil {
		row0, col0 = at.Row, at.Col
	}
	for r := 0; r < m.Height; r++ {
		base := (row0+r)*c.width + col0
		src := r * m.Width
		for j := 0; j < m.Width; j++ {
			sum := int(entry.mask.Pix[base+j]) + int(m.Pix[src+j])
			if sum > 255 {
				sum = 255
			}
			entry.mask.Pix[base+j] = uint8(sum)
		}
	}
	return nil
}

// blit copies src into dst at the given offset (nil means (0, 0)).
// Bounds are assumed to have been checked by the caller.
func blit(dst, src *Mask, at *Offset) {
	row0, col0 := 0, 0
	if at != nil {
		row0, col0 = at.Row, at.Col
	}
	for r := 0; r < src.Height; r++ {
		copy(dst.Pix[(row0+r)*dst.Width+col0:(row0+r)*dst.Width+col0+src.Width],
			src.Pix[r*src.Width:(r+1)*src.Width])
	}
}

func clip01(v int) uint8 {
	if v > 1 {
		return 1
	}
	return uint8(v)
}

// Compose stacks the accumulated canvases into a channels-last Target with a
// stable layout: first the class masks in first-insertion order, then the
// border canvases of border-enabled classes, in the same order.
//
// Compose does not mutate the accumulated state: calling it repeatedly
// without further Add calls yields equal targets.
func (c *Composer) Compose() *Target {
	numChannels := len(c.order)
	for _, classID := range c.order {
		if c.entries[classID].borders != nil {
			numChannels++
		}
	}
	target := NewTarget(c.height, c.width, numChannels)
	channel := 0
	for _, classID := range c.order {
		target.fillChannel(channel, c.entries[classID].mask)
		channel++
	}
	for _, classID := range c.order {
		if borders := c.entries[classID].borders; borders != nil {
			target.fillChannel(channel, borders)
			channel++
		}
	}
	return target
}
