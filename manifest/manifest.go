// Package manifest turns the loosely specified manifests of an Origami
// repository into the canonical shape persisted on a Version, and derives
// the read-time properties of a Version from them.
package manifest

import (
	"encoding/json"
	"errors"
)

var ErrNotObject = errors.New("manifest is not a JSON object")

// Document is a decoded JSON object of unknown shape.
type Document = map[string]interface{}

// Names of the manifests kept on a Version.
const (
	About    = "about"
	Bower    = "bower"
	ImageSet = "imageSet"
	Origami  = "origami"
	Package  = "package"
)

// Names lists the manifests of a Bag in serialization order.
var Names = []string{About, Bower, ImageSet, Origami, Package}

// Bag holds every manifest found for one version. Absent manifests are nil.
type Bag struct {
	About    Document `json:"about"`
	Bower    Document `json:"bower"`
	ImageSet Document `json:"imageSet"`
	Origami  Document `json:"origami"`
	Package  Document `json:"package"`
}

// Get returns the manifest called name, or nil.
func (b Bag) Get(name string) Document {
	switch name {
	case About:
		return b.About
	case Bower:
		return b.Bower
	case ImageSet:
		return b.ImageSet
	case Origami:
		return b.Origami
	case Package:
		return b.Package
	}
	return nil
}

// Markdown holds the markdown documents found for one version.
type Markdown struct {
	Readme           *string `json:"readme"`
	DesignGuidelines *string `json:"designguidelines"`
	Migration        *string `json:"migration"`
	// Changelog feeds release announcements and is not published as a
	// resource.
	Changelog *string `json:"changelog"`
}

// Get returns the markdown document called name, or nil.
func (m Markdown) Get(name string) *string {
	switch name {
	case "readme":
		return m.Readme
	case "designguidelines":
		return m.DesignGuidelines
	case "migration":
		return m.Migration
	case "changelog":
		return m.Changelog
	}
	return nil
}

// MarkdownNames lists the markdown documents in serialization order.
var MarkdownNames = []string{"readme", "designguidelines", "migration"}

// Parse decodes a JSON object. Valid JSON that is not an object is rejected.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotObject
	}
	return doc, nil
}

// DeepCopy returns a copy of doc sharing no maps or slices with it.
func DeepCopy(doc Document) Document {
	if doc == nil {
		return nil
	}
	return deepCopyValue(doc).(Document)
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		c := make(map[string]interface{}, len(t))
		for k, val := range t {
			c[k] = deepCopyValue(val)
		}
		return c
	case []interface{}:
		c := make([]interface{}, len(t))
		for i, val := range t {
			c[i] = deepCopyValue(val)
		}
		return c
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func stringField(doc Document, key string) (string, bool) {
	if doc == nil {
		return "", false
	}
	s, ok := doc[key].(string)
	return s, ok
}

func stringsOf(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, t...)
	}
	return out
}
