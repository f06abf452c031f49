package annotation

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"image"
	"image/color"
	"io"

	_ "image/png" // Bitmap payloads are PNG encoded.

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/pkg/errors"

	"github.com/toodef/segdata/masks"
)

// DecodeObject converts one annotated object into a binary mask and its
// placement offset within the frame.
//
// Bitmap objects produce the thresholded alpha channel of the embedded PNG,
// placed at the bitmap origin. Polygon objects produce the filled exterior
// polygon rasterized into its bounding box, placed at the box's minimum
// corner; interior rings are not punched out. An object with neither a bitmap
// nor any points contributes nothing and decodes to (nil, nil, nil).
//
// Corrupt bitmap payloads fail with ErrDecode.
func DecodeObject(obj *Object) (*masks.Mask, *masks.Offset, error) {
	switch {
	case obj.Bitmap != nil:
		return decodeBitmap(obj.Bitmap)
	case obj.Points != nil && len(obj.Points.Exterior)+len(obj.Points.Interior) > 0:
		return decodePolygon(obj.Points)
	}
	return nil, nil, nil
}

func decodeBitmap(bitmap *Bitmap) (*masks.Mask, *masks.Offset, error) {
	compressed, err := base64.StdEncoding.DecodeString(bitmap.Data)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrDecode, "bitmap payload is not valid base64: %v", err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, nil, errors.Wrapf(ErrDecode, "bitmap payload is not zlib compressed: %v", err)
	}
	raw, err := io.ReadAll(zr)
	if closeErr := zr.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, nil, errors.Wrapf(ErrDecode, "failed to inflate bitmap payload: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, errors.Wrapf(ErrDecode, "failed to decode bitmap image: %v", err)
	}

	bounds := img.Bounds()
	mask := masks.NewMask(bounds.Dy(), bounds.Dx())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, alpha := img.At(x, y).RGBA(); alpha > 0 {
				mask.Set(y-bounds.Min.Y, x-bounds.Min.X, 1)
			}
		}
	}
	// Origin is stored as [x, y]; the offset is (row, col).
	return mask, &masks.Offset{Row: bitmap.Origin[1], Col: bitmap.Origin[0]}, nil
}

func decodePolygon(points *Points) (*masks.Mask, *masks.Offset, error) {
	exterior := points.Exterior
	if len(exterior) == 0 {
		return nil, nil, errors.Wrap(ErrDecode, "polygon object without exterior points")
	}

	minX, minY := exterior[0][0], exterior[0][1]
	maxX, maxY := minX, minY
	for _, p := range exterior[1:] {
		minX = min(minX, p[0])
		minY = min(minY, p[1])
		maxX = max(maxX, p[0])
		maxY = max(maxY, p[1])
	}
	height, width := maxY-minY, maxX-minX
	mask := masks.NewMask(height, width)
	if height > 0 && width > 0 {
		fillPolygon(mask, exterior, minX, minY)
	}
	return mask, &masks.Offset{Row: minY, Col: minX}, nil
}

// fillPolygon rasterizes the polygon, shifted by (-minX, -minY), into the
// mask. Pixels with majority coverage are set.
func fillPolygon(mask *masks.Mask, polygon [][2]int, minX, minY int) {
	canvas := image.NewRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetFillColor(color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	gc.MoveTo(float64(polygon[0][0]-minX), float64(polygon[0][1]-minY))
	for _, p := range polygon[1:] {
		gc.LineTo(float64(p[0]-minX), float64(p[1]-minY))
	}
	gc.Close()
	gc.Fill()

	for r := 0; r < mask.Height; r++ {
		for c := 0; c < mask.Width; c++ {
			if canvas.RGBAAt(c, r).A > 0x7F {
				mask.Set(r, c, 1)
			}
		}
	}
}
