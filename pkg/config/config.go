// Package config loads the per-diagram override file.
//
// An override replaces the default cumulative export of one diagram by an
// explicit, ordered list of steps. Each step names its artifact and lists the
// layers that are visible in it. Layers are referenced by display name, or by
// native layer index for files written in the legacy numeric format.
//
// The file is read once at startup and is read-only afterwards. Any malformed
// entry fails the whole load with a CONFIG_LOAD error naming the diagram:
// a half-interpreted override file could silently change every figure.
//
// TOML:
//
//	[[diagrams]]
//	name = "pipeline.drawio"
//
//	  [[diagrams.steps]]
//	  name = "inputs"
//	  layers = ["Sources"]
//
//	  [[diagrams.steps]]
//	  name = "full"
//	  layers = ["Sinks", "Sources"]
//
// YAML and JSON use the same keys. The legacy JSON layout is accepted too:
//
//	{"individual_configs": [{"name": "pipeline.drawio", "order": [[0, 2], [0, 1]]}]}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/matzehuels/drawio-builder/pkg/errors"
)

// Format identifies the encoding of an override file.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// LayerRef points at one layer of a diagram.
type LayerRef struct {
	Name    string // display name, used when ByIndex is false
	Index   int    // native layer index, used when ByIndex is true
	ByIndex bool
}

// String returns the reference as written in the override file.
func (r LayerRef) String() string {
	if r.ByIndex {
		return strconv.Itoa(r.Index)
	}
	return strconv.Quote(r.Name)
}

// Step is one explicit export step.
type Step struct {
	Name   string
	Layers []LayerRef
}

// Diagram is the override entry of one diagram.
type Diagram struct {
	Key   string
	Steps []Step
}

// Overrides maps diagram keys to their override entries.
// The zero value is not usable; use Empty, New or Load.
type Overrides struct {
	path     string
	diagrams map[string]*Diagram
}

// Empty returns an override set without entries.
func Empty() *Overrides {
	return &Overrides{diagrams: map[string]*Diagram{}}
}

// New validates the given entries and builds an override set from them.
// Steps without a name are named after their position.
func New(diagrams ...Diagram) (*Overrides, error) {
	o := Empty()
	for _, d := range diagrams {
		if err := o.add(d); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Load reads the override file at p. An empty path yields Empty().
// The format is chosen by extension: .toml, .yaml, .yml or .json.
func Load(p string) (*Overrides, error) {
	if p == "" {
		return Empty(), nil
	}
	format, err := FormatFor(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "open config file %s", p)
	}
	defer f.Close()

	o, err := Decode(f, format)
	if err != nil {
		return nil, err
	}
	o.path = p
	return o, nil
}

// FormatFor returns the format implied by a file name.
func FormatFor(p string) (Format, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeConfigLoad, "config file %s: unsupported extension (want .toml, .yaml, .yml or .json)", p)
}

// Decode reads an override file in the given format from r.
// Unknown keys are rejected in every format so typos do not go unnoticed.
func Decode(r io.Reader, format Format) (*Overrides, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "read config")
	}

	var raw file
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &raw)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "parse toml config")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.New(errors.ErrCodeConfigLoad, "unknown config keys: %s", strings.Join(keys, ", "))
		}
	case FormatYAML:
		if err := yaml.UnmarshalStrict(data, &raw); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "parse yaml config")
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				break // empty file, same as an empty toml or yaml file
			}
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "parse json config")
		}
		var extra json.RawMessage
		if err := dec.Decode(&extra); err != io.EOF {
			if err == nil {
				return nil, errors.New(errors.ErrCodeConfigLoad, "parse json config: unexpected data after the top-level object")
			}
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "parse json config")
		}
	default:
		return nil, errors.New(errors.ErrCodeConfigLoad, "unsupported config format %q", format)
	}

	diagrams, err := raw.diagrams()
	if err != nil {
		return nil, err
	}
	return New(diagrams...)
}

// Lookup returns the entry for a diagram key. Keys are slash separated paths
// relative to the input directory; when no entry matches the full key, the
// base name is tried, so "fig.drawio" also covers "chapter1/fig.drawio".
func (o *Overrides) Lookup(key string) (*Diagram, bool) {
	if o == nil {
		return nil, false
	}
	if d, ok := o.diagrams[key]; ok {
		return d, true
	}
	d, ok := o.diagrams[path.Base(key)]
	return d, ok
}

// Len returns the number of entries.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.diagrams)
}

// Keys returns the diagram keys in sorted order.
func (o *Overrides) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, len(o.diagrams))
	for k := range o.diagrams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the file the overrides were loaded from, if any.
func (o *Overrides) Path() string {
	if o == nil {
		return ""
	}
	return o.path
}

func (o *Overrides) add(d Diagram) error {
	if err := errors.ValidateDiagramKey(d.Key); err != nil {
		return err
	}
	if _, dup := o.diagrams[d.Key]; dup {
		return errors.New(errors.ErrCodeConfigLoad, "diagram %q: listed more than once", d.Key)
	}
	if len(d.Steps) == 0 {
		return errors.New(errors.ErrCodeConfigLoad, "diagram %q: no steps", d.Key)
	}

	entry := &Diagram{Key: d.Key, Steps: make([]Step, len(d.Steps))}
	names := make(map[string]bool, len(d.Steps))
	for i, s := range d.Steps {
		if s.Name == "" {
			s.Name = strconv.Itoa(i)
		}
		if err := errors.ValidateArtifactName(s.Name); err != nil {
			return errors.Wrap(errors.ErrCodeConfigLoad, err, "diagram %q: step %d", d.Key, i)
		}
		if names[s.Name] {
			return errors.New(errors.ErrCodeConfigLoad, "diagram %q: duplicate step name %q", d.Key, s.Name)
		}
		names[s.Name] = true

		if len(s.Layers) == 0 {
			return errors.New(errors.ErrCodeConfigLoad, "diagram %q: step %q lists no layers", d.Key, s.Name)
		}
		seen := make(map[LayerRef]bool, len(s.Layers))
		for _, ref := range s.Layers {
			if !ref.ByIndex && ref.Name == "" {
				return errors.New(errors.ErrCodeConfigLoad, "diagram %q: step %q has an empty layer name", d.Key, s.Name)
			}
			if ref.ByIndex && ref.Index < 0 {
				return errors.New(errors.ErrCodeConfigLoad, "diagram %q: step %q has negative layer index %d", d.Key, s.Name, ref.Index)
			}
			if seen[ref] {
				return errors.New(errors.ErrCodeConfigLoad, "diagram %q: step %q lists layer %s twice", d.Key, s.Name, ref)
			}
			seen[ref] = true
		}
		entry.Steps[i] = Step{Name: s.Name, Layers: append([]LayerRef(nil), s.Layers...)}
	}
	o.diagrams[d.Key] = entry
	return nil
}

// =============================================================================
// On-disk layout
// =============================================================================

type file struct {
	Diagrams          []fileDiagram   `json:"diagrams" toml:"diagrams" yaml:"diagrams"`
	IndividualConfigs []legacyDiagram `json:"individual_configs" toml:"individual_configs" yaml:"individual_configs"`
}

type fileDiagram struct {
	Name  string     `json:"name" toml:"name" yaml:"name"`
	Steps []fileStep `json:"steps" toml:"steps" yaml:"steps"`
}

type fileStep struct {
	Name   string `json:"name" toml:"name" yaml:"name"`
	Layers []any  `json:"layers" toml:"layers" yaml:"layers"`
}

// legacyDiagram is the legacy numeric format: one list of layer indexes per step.
type legacyDiagram struct {
	Name  string  `json:"name" toml:"name" yaml:"name"`
	Order [][]int `json:"order" toml:"order" yaml:"order"`
}

func (f file) diagrams() ([]Diagram, error) {
	out := make([]Diagram, 0, len(f.Diagrams)+len(f.IndividualConfigs))
	for _, fd := range f.Diagrams {
		d := Diagram{Key: fd.Name, Steps: make([]Step, len(fd.Steps))}
		for i, fs := range fd.Steps {
			refs := make([]LayerRef, len(fs.Layers))
			for j, v := range fs.Layers {
				ref, err := toLayerRef(v)
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "diagram %q: step %d", fd.Name, i)
				}
				refs[j] = ref
			}
			d.Steps[i] = Step{Name: fs.Name, Layers: refs}
		}
		out = append(out, d)
	}
	for _, ld := range f.IndividualConfigs {
		d := Diagram{Key: ld.Name, Steps: make([]Step, len(ld.Order))}
		for i, indexes := range ld.Order {
			refs := make([]LayerRef, len(indexes))
			for j, idx := range indexes {
				refs[j] = LayerRef{Index: idx, ByIndex: true}
			}
			d.Steps[i] = Step{Layers: refs}
		}
		out = append(out, d)
	}
	return out, nil
}

// toLayerRef converts a decoded scalar. Decoders differ in their number
// types: JSON yields float64, TOML int64, YAML int.
func toLayerRef(v any) (LayerRef, error) {
	switch x := v.(type) {
	case string:
		return LayerRef{Name: x}, nil
	case int:
		return LayerRef{Index: x, ByIndex: true}, nil
	case int64:
		return LayerRef{Index: int(x), ByIndex: true}, nil
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt32 || x < math.MinInt32 {
			return LayerRef{}, fmt.Errorf("layer index %v is not an integer", x)
		}
		return LayerRef{Index: int(x), ByIndex: true}, nil
	}
	return LayerRef{}, fmt.Errorf("layer reference %v: want a name or an index", v)
}
