package annotation

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toodef/segdata/masks"
)

// encodeBitmapPayload builds the wire encoding of a bitmap mask: an
// alpha-channel PNG, zlib-compressed and base64 wrapped.
func encodeBitmapPayload(t *testing.T, alpha [][]uint8) string {
	t.Helper()
	height, width := len(alpha), len(alpha[0])
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: alpha[y][x]})
		}
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var zBuf bytes.Buffer
	zw := zlib.NewWriter(&zBuf)
	_, err := zw.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return base64.StdEncoding.EncodeToString(zBuf.Bytes())
}

func TestDecodeBitmapObject(t *testing.T) {
	payload := encodeBitmapPayload(t, [][]uint8{
		{0, 255, 0},
		{128, 0, 1},
	})
	obj := &Object{
		ClassTitle: "person",
		Bitmap:     &Bitmap{Data: payload, Origin: [2]int{7, 4}}, // [x, y]
	}

	mask, offset, err := DecodeObject(obj)
	require.NoError(t, err)
	require.NotNil(t, mask)
	require.Equal(t, 2, mask.Height)
	require.Equal(t, 3, mask.Width)

	// Any non-zero alpha counts as foreground.
	assert.Equal(t, []uint8{0, 1, 0, 1, 0, 1}, mask.Pix)
	assert.Equal(t, &masks.Offset{Row: 4, Col: 7}, offset)
}

func TestDecodeBitmapCorruptPayload(t *testing.T) {
	for name, payload := range map[string]string{
		"not base64": "!!! not base64 !!!",
		"not zlib":   base64.StdEncoding.EncodeToString([]byte("plain bytes")),
	} {
		obj := &Object{Bitmap: &Bitmap{Data: payload}}
		_, _, err := DecodeObject(obj)
		require.ErrorIs(t, err, ErrDecode, name)
	}
}

func TestDecodePolygonSquare(t *testing.T) {
	obj := &Object{
		Points: &Points{
			Exterior: [][2]int{{0, 0}, {0, 10}, {10, 10}, {10, 0}},
		},
	}
	mask, offset, err := DecodeObject(obj)
	require.NoError(t, err)
	require.Equal(t, 10, mask.Height)
	require.Equal(t, 10, mask.Width)
	assert.Equal(t, &masks.Offset{Row: 0, Col: 0}, offset)
	assert.Equal(t, 100, mask.Sum(), "the square must be fully filled")
}

func TestDecodePolygonOffsetBoundingBox(t *testing.T) {
	obj := &Object{
		Points: &Points{
			Exterior: [][2]int{{5, 3}, {9, 3}, {9, 7}, {5, 7}},
		},
	}
	mask, offset, err := DecodeObject(obj)
	require.NoError(t, err)
	require.Equal(t, 4, mask.Height)
	require.Equal(t, 4, mask.Width)
	assert.Equal(t, &masks.Offset{Row: 3, Col: 5}, offset)
	assert.Equal(t, 16, mask.Sum())
}

func TestDecodeEmptyObject(t *testing.T) {
	mask, offset, err := DecodeObject(&Object{ClassTitle: "person"})
	require.NoError(t, err)
	assert.Nil(t, mask)
	assert.Nil(t, offset)

	mask, offset, err = DecodeObject(&Object{Points: &Points{}})
	require.NoError(t, err)
	assert.Nil(t, mask)
	assert.Nil(t, offset)
}

func TestParseDocument(t *testing.T) {
	doc, err := Parse([]byte(`{
		"tags": ["not-marked-people"],
		"size": {"height": 600, "width": 800},
		"objects": [
			{"classTitle": "person", "points": {"exterior": [[0, 0], [10, 0], [10, 10]], "interior": []}},
			{"classTitle": "neutral", "bitmap": null, "points": null}
		]
	}`))
	require.NoError(t, err)
	assert.True(t, doc.HasTag("not-marked-people"))
	assert.False(t, doc.HasTag("validated"))
	assert.Equal(t, 600, doc.Size.Height)
	assert.Equal(t, 800, doc.Size.Width)
	require.Len(t, doc.Objects, 2)
	assert.Equal(t, "person", doc.Objects[0].ClassTitle)
	assert.Nil(t, doc.Objects[1].Bitmap)

	_, err = Parse([]byte(`{not json`))
	require.ErrorIs(t, err, ErrDecode)
}
