// Package annotation models per-image segmentation annotation documents and
// decodes their objects into binary masks.
//
// A document is a JSON file with the image size, free-form tags and a list of
// annotated objects. Each object carries its class title and exactly one mask
// encoding: either a zlib-compressed PNG bitmap with a placement origin, or a
// polygon given as exterior (and optionally interior) point lists.
package annotation

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrDecode indicates corrupt or malformed annotation data: a payload that
// fails to decompress or decode, or a document that fails to parse.
var ErrDecode = errors.New("corrupt annotation data")

// Size is the pixel size of the annotated image frame.
type Size struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// Bitmap is a mask encoded as a base64 string of a zlib-compressed PNG with
// an alpha channel, placed at Origin given as [x, y] frame coordinates.
type Bitmap struct {
	Data   string `json:"data"`
	Origin [2]int `json:"origin"`
}

// Points is a polygon given as point lists in [x, y] frame coordinates.
// Interior rings are accepted but not subtracted from the filled region.
type Points struct {
	Exterior [][2]int `json:"exterior"`
	Interior [][2]int `json:"interior"`
}

// Object is one annotated object. At most one of Bitmap and Points is set.
type Object struct {
	ClassTitle string  `json:"classTitle"`
	Bitmap     *Bitmap `json:"bitmap"`
	Points     *Points `json:"points"`
}

// Document is the per-image annotation document.
type Document struct {
	Tags    []string  `json:"tags"`
	Objects []*Object `json:"objects"`
	Size    Size      `json:"size"`
}

// HasTag reports whether the document carries the given tag.
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Parse unmarshals an annotation document from its JSON encoding.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(ErrDecode, "malformed annotation document: %v", err)
	}
	return doc, nil
}
