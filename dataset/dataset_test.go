package dataset

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toodef/segdata/annotation"
)

// Decoding, composing and normalizing must preserve the foreground pixel
// count per class when nothing overlaps and no borders are enabled.
func TestDecodeComposeNormalizeRoundTrip(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "item.png"), solidImage(32, 32, color.NRGBA{A: 255}))
	writeDocument(t, filepath.Join(root, "item.json"), &annotation.Document{
		Size: annotation.Size{Height: 32, Width: 32},
		Objects: []*annotation.Object{
			polygonObject("person", [2]int{1, 1}, [2]int{5, 1}, [2]int{5, 5}, [2]int{1, 5}),
			polygonObject("person", [2]int{10, 10}, [2]int{16, 10}, [2]int{16, 16}, [2]int{10, 16}),
		},
	})

	inner, err := NewAnnotated(root).Done()
	require.NoError(t, err)
	sample, err := inner.At(0)
	require.NoError(t, err)
	wantForeground := 4*4 + 6*6
	assert.EqualValues(t, wantForeground, sample.Target.ChannelSum(0))

	ds, err := NewEmptyClasses(inner, 3, 1)
	require.NoError(t, err)
	sample, err = ds.At(0)
	require.NoError(t, err)
	require.Equal(t, 3, sample.Target.Channels)
	assert.EqualValues(t, wantForeground, sample.Target.ChannelSum(1))
	assert.Zero(t, sample.Target.ChannelSum(0))
	assert.Zero(t, sample.Target.ChannelSum(2))
}
