package dataset

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toodef/segdata/masks"
)

// sliceDataset is an in-memory Dataset for testing wrappers.
type sliceDataset struct {
	samples []*Sample
}

func (ds *sliceDataset) Len() int { return len(ds.samples) }

func (ds *sliceDataset) At(index int) (*Sample, error) {
	if err := checkIndex(index, len(ds.samples)); err != nil {
		return nil, err
	}
	return ds.samples[index], nil
}

func singleChannelSample(height, width int) *Sample {
	target := masks.NewTarget(height, width, 1)
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			target.Set(r, c, 0, float32(r*width+c))
		}
	}
	return &Sample{
		Data:   image.NewNRGBA(image.Rect(0, 0, width, height)),
		Target: target,
	}
}

func TestEmptyClassesExpandsChannels(t *testing.T) {
	inner := &sliceDataset{samples: []*Sample{singleChannelSample(3, 4)}}
	ds, err := NewEmptyClasses(inner, 3, 1)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	sample, err := ds.At(0)
	require.NoError(t, err)
	target := sample.Target
	require.Equal(t, 3, target.Height)
	require.Equal(t, 4, target.Width)
	require.Equal(t, 3, target.Channels)

	original := inner.samples[0].Target
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			assert.Equal(t, original.At(r, c, 0), target.At(r, c, 1))
			assert.Zero(t, target.At(r, c, 0))
			assert.Zero(t, target.At(r, c, 2))
		}
	}
}

func TestEmptyClassesConfigValidation(t *testing.T) {
	inner := &sliceDataset{}
	_, err := NewEmptyClasses(inner, 2, 2)
	require.ErrorIs(t, err, masks.ErrConfig)

	_, err = NewEmptyClasses(inner, 2, 3)
	require.ErrorIs(t, err, masks.ErrConfig)

	_, err = NewEmptyClasses(inner, 1, 0)
	require.NoError(t, err)
}

func TestEmptyClassesRejectsOversizedTargets(t *testing.T) {
	sample := &Sample{Target: masks.NewTarget(2, 2, 4)}
	ds, err := NewEmptyClasses(&sliceDataset{samples: []*Sample{sample}}, 3, 0)
	require.NoError(t, err)
	_, err = ds.At(0)
	require.ErrorIs(t, err, masks.ErrShape)

	// Channels fit the total count, but not at the configured index.
	sample = &Sample{Target: masks.NewTarget(2, 2, 2)}
	ds, err = NewEmptyClasses(&sliceDataset{samples: []*Sample{sample}}, 3, 2)
	require.NoError(t, err)
	_, err = ds.At(0)
	require.ErrorIs(t, err, masks.ErrShape)
}
