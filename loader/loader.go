// Package loader adapts the indexed sample datasets into GoMLX train.Dataset
// batches, and provides an offline mask-export utility for debugging.
package loader

import (
	"image"
	"io"
	"math/rand"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	timage "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"

	"github.com/toodef/segdata/dataset"
	"github.com/toodef/segdata/masks"
)

// Batcher implements train.Dataset over an indexed sample dataset: each Yield
// reads one batch of samples and converts it to an image tensor input
// (shaped [batch, height, width, 3]) and a mask tensor label (shaped
// [batch, height, width, channels]). Samples are released as soon as they are
// converted; they are never retained across Yield calls.
//
// All samples of a batch must have the same image and target shape; resize
// images beforehand (e.g. with an augment transform) if they differ.
type Batcher struct {
	name      string
	ds        dataset.Dataset
	batchSize int
	dtype     dtypes.DType
	infinite  bool
	shuffle   *rand.Rand

	// mu protects the read cursor and the shuffled order.
	mu    sync.Mutex
	pos   int
	order []int
}

var _ train.Dataset = &Batcher{}

// Batches creates a train.Dataset yielding batches of the given size from ds.
// By default it is finite (io.EOF after one pass, with a final partial batch
// if the length is not a multiple), unshuffled, and converts to Float32.
func Batches(name string, ds dataset.Dataset, batchSize int) *Batcher {
	b := &Batcher{name: name, ds: ds, batchSize: batchSize, dtype: dtypes.Float32}
	b.Reset()
	return b
}

// Infinite configures the Batcher to loop forever instead of returning
// io.EOF. It returns the Batcher, so configuration calls can be cascaded.
func (b *Batcher) Infinite(infinite bool) *Batcher {
	b.infinite = infinite
	return b
}

// Shuffle configures the Batcher to visit samples in random order using the
// given generator; with Infinite it samples with replacement. It returns the
// Batcher, so configuration calls can be cascaded.
func (b *Batcher) Shuffle(rng *rand.Rand) *Batcher {
	b.shuffle = rng
	b.Reset()
	return b
}

// WithDType sets the dtype of the yielded tensors. It returns the Batcher, so
// configuration calls can be cascaded.
func (b *Batcher) WithDType(dtype dtypes.DType) *Batcher {
	b.dtype = dtype
	return b
}

// Name implements train.Dataset.
func (b *Batcher) Name() string { return b.name }

// Reset implements train.Dataset: it restarts the read cursor and, when
// shuffling a finite dataset, draws a new visiting order.
func (b *Batcher) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = 0
	if b.shuffle == nil || b.infinite {
		b.order = nil
		return
	}
	if b.order == nil {
		b.order = make([]int, b.ds.Len())
		for i := range b.order {
			b.order[i] = i
		}
	}
	b.shuffle.Shuffle(len(b.order), func(i, j int) {
		b.order[i], b.order[j] = b.order[j], b.order[i]
	})
}

// yieldIndices selects the sample indices of the next batch.
func (b *Batcher) yieldIndices() ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	length := b.ds.Len()
	if length == 0 {
		return nil, io.EOF
	}
	indices := make([]int, 0, b.batchSize)
	for len(indices) < b.batchSize {
		if b.infinite {
			if b.shuffle != nil {
				indices = append(indices, b.shuffle.Intn(length))
			} else {
				indices = append(indices, b.pos%length)
				b.pos++
			}
			continue
		}
		if b.pos >= length {
			break
		}
		if b.order != nil {
			indices = append(indices, b.order[b.pos])
		} else {
			indices = append(indices, b.pos)
		}
		b.pos++
	}
	if len(indices) == 0 {
		return nil, io.EOF
	}
	return indices, nil
}

// Yield implements train.Dataset.
func (b *Batcher) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	indices, err := b.yieldIndices()
	if err != nil {
		return nil, nil, nil, err
	}

	spec = b
	batchImages := make([]image.Image, 0, len(indices))
	batchTargets := make([]*masks.Target, 0, len(indices))
	var imgSize image.Point
	for _, index := range indices {
		sample, err := b.ds.At(index)
		if err != nil {
			return nil, nil, nil, errors.WithMessagef(err, "while reading sample %d of dataset %q", index, b.name)
		}
		size := sample.Data.Bounds().Size()
		if len(batchImages) == 0 {
			imgSize = size
		} else if size != imgSize {
			return nil, nil, nil, errors.Errorf(
				"sample %d image is %v, but the batch started with %v -- batched images must have one size",
				index, size, imgSize)
		}
		batchImages = append(batchImages, sample.Data)
		batchTargets = append(batchTargets, sample.Target)
	}

	labelsTensor, err := masks.StackTargets(b.dtype, batchTargets)
	if err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "while batching targets of dataset %q", b.name)
	}
	inputs = []*tensors.Tensor{timage.ToTensor(b.dtype).Batch(batchImages)}
	labels = []*tensors.Tensor{labelsTensor}
	return
}
