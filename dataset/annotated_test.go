package dataset

import (
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toodef/segdata/annotation"
)

func writeDocument(t *testing.T, path string, doc *annotation.Document) {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0644))
}

func polygonObject(class string, points ...[2]int) *annotation.Object {
	return &annotation.Object{
		ClassTitle: class,
		Points:     &annotation.Points{Exterior: points},
	}
}

func TestAnnotatedPairsAndFilters(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "batch1"), 0755))

	// Complete item with a person polygon and a neutral object.
	writePNG(t, filepath.Join(root, "batch1", "item1.png"), solidImage(16, 12, color.NRGBA{A: 255}))
	writeDocument(t, filepath.Join(root, "batch1", "item1.json"), &annotation.Document{
		Size: annotation.Size{Height: 12, Width: 16},
		Objects: []*annotation.Object{
			polygonObject("person", [2]int{2, 2}, [2]int{6, 2}, [2]int{6, 6}, [2]int{2, 6}),
			polygonObject("neutral", [2]int{0, 0}, [2]int{16, 0}, [2]int{16, 12}, [2]int{0, 12}),
		},
	})

	// Annotation without an image: dropped.
	writeDocument(t, filepath.Join(root, "item2.json"), &annotation.Document{
		Size: annotation.Size{Height: 4, Width: 4},
	})

	// Tagged item: filtered out by default.
	writePNG(t, filepath.Join(root, "unmarked.png"), solidImage(4, 4, color.NRGBA{A: 255}))
	writeDocument(t, filepath.Join(root, "unmarked.json"), &annotation.Document{
		Tags: []string{"not-marked-people"},
		Size: annotation.Size{Height: 4, Width: 4},
	})

	ds, err := NewAnnotated(root).Done()
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	sample, err := ds.At(0)
	require.NoError(t, err)
	require.Equal(t, 12, sample.Target.Height)
	require.Equal(t, 16, sample.Target.Width)
	require.Equal(t, 1, sample.Target.Channels)
	// Only the 4x4 person polygon contributes: the neutral object is stripped.
	assert.EqualValues(t, 16, sample.Target.ChannelSum(0))

	withTagged, err := NewAnnotated(root).IncludeUnmarkedPeople().Done()
	require.NoError(t, err)
	assert.Equal(t, 2, withTagged.Len())

	withNeutral, err := NewAnnotated(root).IncludeNeutralObjects().Done()
	require.NoError(t, err)
	sample, err = withNeutral.At(0)
	require.NoError(t, err)
	assert.Greater(t, sample.Target.ChannelSum(0), 16.0,
		"the neutral full-frame object must contribute when included")
}

func TestAnnotatedBorderAsClass(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "item.png"), solidImage(20, 20, color.NRGBA{A: 255}))
	writeDocument(t, filepath.Join(root, "item.json"), &annotation.Document{
		Size: annotation.Size{Height: 20, Width: 20},
		Objects: []*annotation.Object{
			// Two squares separated by one empty column.
			polygonObject("person", [2]int{2, 2}, [2]int{6, 2}, [2]int{6, 6}, [2]int{2, 6}),
			polygonObject("person", [2]int{7, 2}, [2]int{11, 2}, [2]int{11, 6}, [2]int{7, 6}),
		},
	})

	ds, err := NewAnnotated(root).WithBorderAsClass(3).Done()
	require.NoError(t, err)
	sample, err := ds.At(0)
	require.NoError(t, err)
	require.Equal(t, 2, sample.Target.Channels, "border-as-class adds a border channel")
	assert.Positive(t, sample.Target.ChannelSum(1), "adjacent instances must produce a border")

	// Without border tracking the same item yields a single channel.
	plain, err := NewAnnotated(root).Done()
	require.NoError(t, err)
	sample, err = plain.At(0)
	require.NoError(t, err)
	assert.Equal(t, 1, sample.Target.Channels)
}

func TestAnnotatedMalformedDocumentFailsConstruction(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "item.png"), solidImage(4, 4, color.NRGBA{A: 255}))
	require.NoError(t, os.WriteFile(filepath.Join(root, "item.json"), []byte("{broken"), 0644))

	_, err := NewAnnotated(root).Done()
	require.ErrorIs(t, err, annotation.ErrDecode)
}
