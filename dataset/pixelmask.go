package dataset

import (
	"image/color"
	"path"
	"sort"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/toodef/segdata/masks"
)

// PixelMask pairs image files with same-named, pre-rasterized mask files from
// a sibling directory. Images without a matching mask file are excluded at
// construction: missing optional ground truth is not an error.
type PixelMask struct {
	entries []pixelMaskEntry
}

type pixelMaskEntry struct {
	dataPath, targetPath string
}

var _ Dataset = &PixelMask{}

// NewPixelMask creates a dataset over the given image file names, ordered
// numerically by the name's integer stem. For each name, the image is
// expected at imagesDir/name and its mask at masksDir/<stem>.png.
func NewPixelMask(imagesDir, masksDir string, names []string) *PixelMask {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Slice(sorted, func(i, j int) bool {
		a, aOk := numericStem(sorted[i])
		b, bOk := numericStem(sorted[j])
		if aOk && bOk {
			return a < b
		}
		if aOk != bOk {
			return aOk // numeric stems order before the rest
		}
		return sorted[i] < sorted[j]
	})

	ds := &PixelMask{}
	for _, name := range sorted {
		maskPath := path.Join(masksDir, stem(name)+".png")
		if !fileExists(maskPath) {
			klog.V(1).Infof("pixel-mask dataset: no mask for %q, skipping", name)
			continue
		}
		ds.entries = append(ds.entries, pixelMaskEntry{
			dataPath:   path.Join(imagesDir, name),
			targetPath: maskPath,
		})
	}
	return ds
}

// Len implements Dataset.
func (ds *PixelMask) Len() int { return len(ds.entries) }

// At implements Dataset. The target is the mask image as a single-channel
// target with pixel values normalized to [0, 1].
func (ds *PixelMask) At(index int) (*Sample, error) {
	if err := checkIndex(index, len(ds.entries)); err != nil {
		return nil, err
	}
	entry := ds.entries[index]
	img, err := loadImage(entry.dataPath)
	if err != nil {
		return nil, err
	}
	maskImg, err := loadImage(entry.targetPath)
	if err != nil {
		return nil, err
	}

	bounds := maskImg.Bounds()
	target := masks.NewTarget(bounds.Dy(), bounds.Dx(), 1)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(maskImg.At(x, y)).(color.Gray)
			target.Set(y-bounds.Min.Y, x-bounds.Min.X, 0, float32(gray.Y)/255)
		}
	}
	return &Sample{Data: img, Target: target}, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

func numericStem(name string) (int, bool) {
	n, err := strconv.Atoi(stem(name))
	return n, err == nil
}
