package dataset

import (
	"github.com/pkg/errors"

	"github.com/toodef/segdata/masks"
)

// EmptyClasses expands a dataset's partial-channel targets into a fixed
// number of class channels: the wrapped target's channels are written
// starting at a configured channel index and all other channels stay zero.
type EmptyClasses struct {
	ds             Dataset
	totalClasses   int
	existsClassIdx int
}

var _ Dataset = &EmptyClasses{}

// NewEmptyClasses wraps a dataset so its targets always have totalClasses
// channels, with the wrapped target placed at channel existsClassIdx.
// totalClasses must be strictly greater than existsClassIdx.
func NewEmptyClasses(ds Dataset, totalClasses, existsClassIdx int) (*EmptyClasses, error) {
	if existsClassIdx < 0 {
		return nil, errors.Wrapf(masks.ErrConfig, "existing class index %d must not be negative", existsClassIdx)
	}
	if totalClasses <= existsClassIdx {
		return nil, errors.Wrapf(masks.ErrConfig,
			"total classes number (%d) can't be less than or equal to the existing class index (%d)",
			totalClasses, existsClassIdx)
	}
	return &EmptyClasses{ds: ds, totalClasses: totalClasses, existsClassIdx: existsClassIdx}, nil
}

// Len implements Dataset.
func (ec *EmptyClasses) Len() int { return ec.ds.Len() }

// At implements Dataset. A wrapped target whose channels do not fit the
// configured class count fails with masks.ErrShape.
func (ec *EmptyClasses) At(index int) (*Sample, error) {
	sample, err := ec.ds.At(index)
	if err != nil {
		return nil, err
	}
	target := sample.Target
	if target.Channels > ec.totalClasses {
		return nil, errors.Wrapf(masks.ErrShape,
			"dataset produced a target with shape (%d, %d, %d), more channels than the %d target classes",
			target.Height, target.Width, target.Channels, ec.totalClasses)
	}
	if ec.existsClassIdx+target.Channels > ec.totalClasses {
		return nil, errors.Wrapf(masks.ErrShape,
			"target with shape (%d, %d, %d) does not fit at class index %d with %d target classes",
			target.Height, target.Width, target.Channels, ec.existsClassIdx, ec.totalClasses)
	}

	expanded := masks.NewTarget(target.Height, target.Width, ec.totalClasses)
	for r := 0; r < target.Height; r++ {
		for c := 0; c < target.Width; c++ {
			for ch := 0; ch < target.Channels; ch++ {
				expanded.Set(r, c, ec.existsClassIdx+ch, target.At(r, c, ch))
			}
		}
	}
	return &Sample{Data: sample.Data, Target: expanded}, nil
}
