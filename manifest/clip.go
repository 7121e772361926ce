package manifest

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// conditionSize is the width of the condition word that precedes every
// blittable value in a frame's data buffer.
const conditionSize = 4

// LoadClip reads a JSON clip file as a binding.
func LoadClip(path string) (*Binding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	b, err := ParseClip(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ParseClip converts a JSON clip description into a binding:
//
//	{
//	  "name": "flicker",
//	  "root": "scene.Entity",
//	  "tracks": [
//	    {"path": "lamp[scene.Light].Intensity"},
//	    {"path": "lamp.Transform.Position", "size": 12},
//	    {"path": "[scene.Model]", "offset": 0}
//	  ]
//	}
//
// Tracks with an explicit offset keep it. The others are packed one after
// another in the data buffer, each taking a condition word plus size bytes
// (4 when size is absent).
func ParseClip(data []byte) (*Binding, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: clip is not valid JSON", ErrInvalidBinding)
	}

	b := &Binding{
		Name: gjson.GetBytes(data, "name").String(),
		Root: gjson.GetBytes(data, "root").String(),
	}

	tracks := gjson.GetBytes(data, "tracks")
	if !tracks.IsArray() {
		return nil, fmt.Errorf("%w: clip %q has no tracks array", ErrInvalidBinding, b.Name)
	}

	next := 0
	var err error
	tracks.ForEach(func(_, track gjson.Result) bool {
		path := track.Get("path")
		if path.Type != gjson.String {
			err = fmt.Errorf("%w: clip %q has a track without a path", ErrInvalidBinding, b.Name)
			return false
		}
		if off := track.Get("offset"); off.Exists() {
			b.Paths = append(b.Paths, PathEntry{Path: path.String(), Offset: int(off.Int())})
			return true
		}
		size := 4
		if s := track.Get("size"); s.Exists() {
			size = int(s.Int())
		}
		b.Paths = append(b.Paths, PathEntry{Path: path.String(), Offset: next})
		next += conditionSize + size
		return true
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}
