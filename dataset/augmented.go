package dataset

import (
	"image"

	"github.com/toodef/segdata/masks"
)

// Field identifies one field of a Sample for per-field transforms.
type Field string

const (
	FieldData   Field = "data"
	FieldTarget Field = "target"
)

// DataTransform transforms a sample's image.
type DataTransform func(image.Image) (image.Image, error)

// TargetTransform transforms a sample's mask target.
type TargetTransform func(*masks.Target) (*masks.Target, error)

// SampleTransform transforms a whole sample; geometric augmentations that
// must keep image and target aligned belong here.
type SampleTransform func(*Sample) (*Sample, error)

// Augmented applies configured transforms over the samples of a wrapped
// dataset: first the per-field transforms, then each whole-sample transform
// in registration order. Reads are purely functional; the wrapped dataset's
// samples are never mutated in place.
type Augmented struct {
	ds     Dataset
	fields map[Field]SampleTransform
	whole  []SampleTransform
}

var _ Dataset = &Augmented{}

// NewAugmented wraps a dataset with an (initially empty) transform pipeline.
func NewAugmented(ds Dataset) *Augmented {
	return &Augmented{ds: ds, fields: make(map[Field]SampleTransform)}
}

// AddDataTransform registers the transform for the sample's image field,
// replacing a previously registered one. Returns the Augmented dataset, so
// calls can be cascaded.
func (a *Augmented) AddDataTransform(fn DataTransform) *Augmented {
	a.fields[FieldData] = func(sample *Sample) (*Sample, error) {
		img, err := fn(sample.Data)
		if err != nil {
			return nil, err
		}
		return &Sample{Data: img, Target: sample.Target}, nil
	}
	return a
}

// AddTargetTransform registers the transform for the sample's target field,
// replacing a previously registered one. Returns the Augmented dataset, so
// calls can be cascaded.
func (a *Augmented) AddTargetTransform(fn TargetTransform) *Augmented {
	a.fields[FieldTarget] = func(sample *Sample) (*Sample, error) {
		target, err := fn(sample.Target)
		if err != nil {
			return nil, err
		}
		return &Sample{Data: sample.Data, Target: target}, nil
	}
	return a
}

// AddTransform appends a whole-sample transform, applied after the per-field
// transforms in registration order. Returns the Augmented dataset, so calls
// can be cascaded.
func (a *Augmented) AddTransform(fn SampleTransform) *Augmented {
	a.whole = append(a.whole, fn)
	return a
}

// Len implements Dataset.
func (a *Augmented) Len() int { return a.ds.Len() }

// At implements Dataset.
func (a *Augmented) At(index int) (*Sample, error) {
	sample, err := a.ds.At(index)
	if err != nil {
		return nil, err
	}
	for _, field := range []Field{FieldData, FieldTarget} {
		if fn, found := a.fields[field]; found {
			if sample, err = fn(sample); err != nil {
				return nil, err
			}
		}
	}
	for _, fn := range a.whole {
		if sample, err = fn(sample); err != nil {
			return nil, err
		}
	}
	return sample, nil
}
