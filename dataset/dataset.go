// Package dataset provides indexed, read-only segmentation sample collections
// and the wrappers that adapt their targets for training: class-count
// normalization and stochastic augmentation.
//
// Every read is synchronous and independent; datasets keep no per-read state,
// so an external data-loading layer can safely parallelize across indices.
// Samples are built per read and never retained by the library.
package dataset

import (
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"

	"github.com/toodef/segdata/masks"
)

// Sample is one training example: the source image and its mask target.
type Sample struct {
	Data   image.Image
	Target *masks.Target
}

// Dataset is an indexed, length-queryable collection of samples. This is the
// sole contract external training code relies on.
type Dataset interface {
	// Len returns the number of samples.
	Len() int

	// At reads the sample at the given index. Errors are unrecoverable for
	// that sample and must be propagated, never silently substituted.
	At(index int) (*Sample, error)
}

// loadImage reads and decodes one image file.
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", path)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", path)
	}
	return img, nil
}

// fileExists returns true if the file or directory exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return errors.Errorf("index %d out of range for dataset of length %d", index, length)
	}
	return nil
}
