package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/toodef/segdata/annotation"
	"github.com/toodef/segdata/masks"
)

// Tag and class title with special meaning in annotation documents.
const (
	tagNotMarkedPeople = "not-marked-people"
	classNeutral       = "neutral"
)

// AnnotatedBuilder configures an Annotated dataset. Create it with
// NewAnnotated, chain the With*/Include* options and call Done.
type AnnotatedBuilder struct {
	root                  string
	includeUnmarkedPeople bool
	includeNeutralObjects bool
	borderAsClass         bool
	borderThickness       int
}

// NewAnnotated starts the configuration of an annotation-based dataset rooted
// at the given directory. The tree is walked recursively; a `.json` document
// and a `.png`/`.jpg` image sharing the same stem form one item, and items
// missing either half are dropped.
func NewAnnotated(root string) *AnnotatedBuilder {
	return &AnnotatedBuilder{root: root}
}

// IncludeUnmarkedPeople keeps items whose document is tagged
// "not-marked-people". By default they are filtered out at construction.
func (b *AnnotatedBuilder) IncludeUnmarkedPeople() *AnnotatedBuilder {
	b.includeUnmarkedPeople = true
	return b
}

// IncludeNeutralObjects keeps objects with class title "neutral". By default
// they are stripped from each item's object list at construction.
func (b *AnnotatedBuilder) IncludeNeutralObjects() *AnnotatedBuilder {
	b.includeNeutralObjects = true
	return b
}

// WithBorderAsClass enables the synthetic border channel between touching
// instances, grown with a thickness×thickness dilation kernel. A thickness of
// zero selects the default kernel.
func (b *AnnotatedBuilder) WithBorderAsClass(thickness int) *AnnotatedBuilder {
	b.borderAsClass = true
	b.borderThickness = thickness
	return b
}

// Done scans the directory tree, parses and filters the annotation documents
// and returns the dataset. Malformed documents fail construction with
// annotation.ErrDecode.
func (b *AnnotatedBuilder) Done() (*Annotated, error) {
	type pair struct {
		data, target string
	}
	pairs := make(map[string]*pair)
	err := filepath.WalkDir(b.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		name := strings.TrimSuffix(path, filepath.Ext(path))
		p := pairs[name]
		if p == nil {
			p = &pair{}
			pairs[name] = p
		}
		switch filepath.Ext(path) {
		case ".json":
			p.target = path
		case ".png", ".jpg":
			p.data = path
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan annotated dataset at %q", b.root)
	}

	// Deterministic item order regardless of walk/map ordering.
	names := make([]string, 0, len(pairs))
	for name, p := range pairs {
		if p.data == "" || p.target == "" {
			klog.V(1).Infof("annotated dataset: incomplete item %q, skipping", name)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	ds := &Annotated{borderAsClass: b.borderAsClass, borderThickness: b.borderThickness}
	for _, name := range names {
		p := pairs[name]
		raw, err := os.ReadFile(p.target)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read annotation %q", p.target)
		}
		doc, err := annotation.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "annotation %q", p.target)
		}
		if !b.includeUnmarkedPeople && doc.HasTag(tagNotMarkedPeople) {
			klog.V(1).Infof("annotated dataset: %q tagged %s, skipping", p.target, tagNotMarkedPeople)
			continue
		}
		if !b.includeNeutralObjects {
			kept := doc.Objects[:0]
			for _, obj := range doc.Objects {
				if obj.ClassTitle != classNeutral {
					kept = append(kept, obj)
				}
			}
			doc.Objects = kept
		}
		ds.items = append(ds.items, annotatedItem{dataPath: p.data, doc: doc})
	}
	return ds, nil
}

type annotatedItem struct {
	dataPath string
	doc      *annotation.Document
}

// Annotated reads samples from polygon/bitmap annotation documents, decoding
// every object of an item into one composed mask under class 0.
type Annotated struct {
	items           []annotatedItem
	borderAsClass   bool
	borderThickness int
}

var _ Dataset = &Annotated{}

// Len implements Dataset.
func (ds *Annotated) Len() int { return len(ds.items) }

// At implements Dataset. The target has one class channel, plus a border
// channel when border-as-class is enabled.
func (ds *Annotated) At(index int) (*Sample, error) {
	if err := checkIndex(index, len(ds.items)); err != nil {
		return nil, err
	}
	item := ds.items[index]
	img, err := loadImage(item.dataPath)
	if err != nil {
		return nil, err
	}

	composer := masks.NewComposer(item.doc.Size.Height, item.doc.Size.Width)
	if ds.borderAsClass {
		kernel := masks.Kernel{}
		if ds.borderThickness > 0 {
			kernel = masks.SquareKernel(ds.borderThickness)
		}
		if err := composer.EnableBorders([]int{0}, kernel); err != nil {
			return nil, err
		}
	}
	for objIdx, obj := range item.doc.Objects {
		mask, offset, err := annotation.DecodeObject(obj)
		if err != nil {
			return nil, errors.Wrapf(err, "object %d of %q", objIdx, item.dataPath)
		}
		if mask == nil {
			continue
		}
		if err := composer.Add(mask, 0, offset); err != nil {
			return nil, errors.Wrapf(err, "object %d of %q", objIdx, item.dataPath)
		}
	}
	return &Sample{Data: img, Target: composer.Compose()}, nil
}
