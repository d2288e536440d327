package preview

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Record keys owned by the pipeline. Extracted tags can never overwrite
// them.
const (
	keyOriginalWidth  = "originalWidth"
	keyOriginalHeight = "originalHeight"
	keyOriginalSize   = "originalSize"
	keyAspectRatio    = "aspectRatio"
	keyDimensions     = "dimensions"
	keyThumbnailSize  = "thumbnailSize"
)

var reservedKeys = map[string]bool{
	keyOriginalWidth:  true,
	keyOriginalHeight: true,
	keyOriginalSize:   true,
	keyAspectRatio:    true,
	keyDimensions:     true,
	keyThumbnailSize:  true,
}

// Record is an ordered string-to-string metadata mapping. Keys marshal to
// JSON in insertion order, so responses stay stable and diffable.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Set inserts or updates a key. New keys append to the order; existing keys
// update in place.
func (r *Record) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// SetTag inserts an extracted tag, refusing keys reserved for the pipeline.
func (r *Record) SetTag(key, value string) {
	if reservedKeys[key] {
		return
	}
	r.Set(key, value)
}

// Get returns the value for key and whether it is present.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len returns the number of keys in the record.
func (r *Record) Len() int {
	return len(r.keys)
}

// Dimensions returns the original image dimensions when the record carries
// them as parseable integers.
func (r *Record) Dimensions() (int, int, bool) {
	w, okW := r.values[keyOriginalWidth]
	h, okH := r.values[keyOriginalHeight]
	if !okW || !okH {
		return 0, 0, false
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return 0, 0, false
	}
	return width, height, true
}

// MarshalJSON writes the record as a JSON object with keys in insertion
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
