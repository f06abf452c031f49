package loader

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/toodef/segdata/dataset"
	"github.com/toodef/segdata/masks"
)

// ExportMasks renders every sample's target channels to grayscale PNG files
// named "<index>_<channel>.png" under dir, creating it if needed. Useful to
// eyeball composed masks or to cache them as a pre-rasterized dataset.
//
// If verbose is set it displays a progress bar.
func ExportMasks(ds dataset.Dataset, dir string, verbose bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create export directory %q", dir)
	}

	var pBar *progressbar.ProgressBar
	if verbose {
		pBar = progressbar.NewOptions(ds.Len(),
			progressbar.OptionSetDescription("Exporting masks"),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("samples"),
		)
	}

	for index := 0; index < ds.Len(); index++ {
		sample, err := ds.At(index)
		if err != nil {
			return errors.WithMessagef(err, "while exporting sample %d", index)
		}
		for channel := 0; channel < sample.Target.Channels; channel++ {
			filePath := path.Join(dir, fmt.Sprintf("%d_%d.png", index, channel))
			if err := writeChannelPNG(filePath, sample.Target, channel); err != nil {
				return err
			}
		}
		if verbose {
			_ = pBar.Add(1)
		}
	}
	if verbose {
		_ = pBar.Close()
	}
	return nil
}

func writeChannelPNG(filePath string, target *masks.Target, channel int) error {
	img := image.NewGray(image.Rect(0, 0, target.Width, target.Height))
	for y := 0; y < target.Height; y++ {
		for x := 0; x < target.Width; x++ {
			v := target.At(y, x, channel) * 255
			if v > 255 {
				v = 255
			} else if v < 0 {
				v = 0
			}
			img.Pix[y*img.Stride+x] = uint8(v)
		}
	}
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	if err = png.Encode(f, img); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to encode %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close %q", filePath)
}
