// Package augment provides stochastic sample transforms for training-time
// data augmentation.
//
// Geometric transforms are whole-sample: they keep the image and every target
// channel aligned. Photometric transforms only touch the image. Each
// transform owns the *rand.Rand it is given; create one transform (and one
// generator) per data-loading worker, they are not safe to share.
package augment

import (
	"image"
	"math/rand"

	"github.com/disintegration/imaging"

	"github.com/toodef/segdata/dataset"
)

// HorizontalFlip mirrors the image and target horizontally with the given
// probability.
func HorizontalFlip(rng *rand.Rand, probability float64) dataset.SampleTransform {
	return func(sample *dataset.Sample) (*dataset.Sample, error) {
		if rng.Float64() >= probability {
			return sample, nil
		}
		return &dataset.Sample{
			Data:   imaging.FlipH(sample.Data),
			Target: sample.Target.FlipH(),
		}, nil
	}
}

// VerticalFlip mirrors the image and target vertically with the given
// probability.
func VerticalFlip(rng *rand.Rand, probability float64) dataset.SampleTransform {
	return func(sample *dataset.Sample) (*dataset.Sample, error) {
		if rng.Float64() >= probability {
			return sample, nil
		}
		return &dataset.Sample{
			Data:   imaging.FlipV(sample.Data),
			Target: sample.Target.FlipV(),
		}, nil
	}
}

// RandomRotate90 rotates the image and target counter-clockwise by a random
// multiple of 90° (possibly zero).
func RandomRotate90(rng *rand.Rand) dataset.SampleTransform {
	return func(sample *dataset.Sample) (*dataset.Sample, error) {
		turns := rng.Intn(4)
		img, target := sample.Data, sample.Target
		for i := 0; i < turns; i++ {
			img = imaging.Rotate90(img)
			target = target.Rotate90()
		}
		return &dataset.Sample{Data: img, Target: target}, nil
	}
}

// Resize scales the image and target to a fixed size: the image with Lanczos
// resampling, the target with nearest-neighbor to keep mask values discrete.
// Use it as the last geometric transform so batched samples share one shape.
func Resize(width, height int) dataset.SampleTransform {
	return func(sample *dataset.Sample) (*dataset.Sample, error) {
		return &dataset.Sample{
			Data:   imaging.Resize(sample.Data, width, height, imaging.Lanczos),
			Target: sample.Target.ResizeNearest(height, width),
		}, nil
	}
}

// BrightnessContrast randomly shifts brightness and contrast, each sampled
// uniformly from [-limit, limit] percent.
func BrightnessContrast(rng *rand.Rand, brightnessLimit, contrastLimit float64) dataset.DataTransform {
	return func(img image.Image) (image.Image, error) {
		img = imaging.AdjustBrightness(img, uniform(rng, brightnessLimit))
		img = imaging.AdjustContrast(img, uniform(rng, contrastLimit))
		return img, nil
	}
}

// Gamma applies a random gamma correction sampled uniformly from
// [minGamma, maxGamma].
func Gamma(rng *rand.Rand, minGamma, maxGamma float64) dataset.DataTransform {
	return func(img image.Image) (image.Image, error) {
		gamma := minGamma + rng.Float64()*(maxGamma-minGamma)
		return imaging.AdjustGamma(img, gamma), nil
	}
}

// Blur applies a gaussian blur with a random sigma in (0, maxSigma], with the
// given probability.
func Blur(rng *rand.Rand, maxSigma, probability float64) dataset.DataTransform {
	return func(img image.Image) (image.Image, error) {
		if rng.Float64() >= probability {
			return img, nil
		}
		sigma := rng.Float64() * maxSigma
		if sigma <= 0 {
			return img, nil
		}
		return imaging.Blur(img, sigma), nil
	}
}

// uniform samples from [-limit, limit].
func uniform(rng *rand.Rand, limit float64) float64 {
	return (rng.Float64()*2 - 1) * limit
}
