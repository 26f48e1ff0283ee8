package plan

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/drawio-builder/pkg/config"
	"github.com/matzehuels/drawio-builder/pkg/errors"
	"github.com/matzehuels/drawio-builder/pkg/manifest"
)

// Mode tells how a plan was derived.
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeOverride    Mode = "override"
)

// Step is one render request: an artifact name and the layers visible in it.
type Step struct {
	Name   string           `json:"name"`
	Layers []manifest.Layer `json:"layers"`
}

// Indexes returns the native layer indexes in step order.
func (s Step) Indexes() []int {
	out := make([]int, len(s.Layers))
	for i, l := range s.Layers {
		out[i] = l.Index
	}
	return out
}

// IDs returns the stable layer ids in step order.
func (s Step) IDs() []string {
	out := make([]string, len(s.Layers))
	for i, l := range s.Layers {
		out[i] = l.ID
	}
	return out
}

// Names returns the display names in step order.
func (s Step) Names() []string {
	out := make([]string, len(s.Layers))
	for i, l := range s.Layers {
		out[i] = l.String()
	}
	return out
}

// Plan is the ordered list of steps of one diagram.
type Plan struct {
	Mode  Mode   `json:"mode"`
	Steps []Step `json:"steps"`
}

// Len returns the number of steps.
func (p *Plan) Len() int { return len(p.Steps) }

// Build derives the plan of a diagram. A nil override selects the default
// incremental plan.
func Build(m *manifest.Manifest, override *config.Diagram) (*Plan, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInternal, "plan: nil manifest")
	}
	if override != nil {
		return fromOverride(m, override)
	}
	return incremental(m), nil
}

// StepName returns the default artifact name of step i.
func StepName(i int) string {
	return strconv.Itoa(i)
}

func incremental(m *manifest.Manifest) *Plan {
	p := &Plan{Mode: ModeIncremental}

	// A diagram that only has the default layer is exported once, as a whole.
	if len(m.Layers) == 0 && m.Background != nil {
		p.Steps = []Step{{Name: StepName(0), Layers: []manifest.Layer{*m.Background}}}
		return p
	}

	p.Steps = make([]Step, len(m.Layers))
	for i := range m.Layers {
		p.Steps[i] = Step{
			Name:   StepName(i),
			Layers: append([]manifest.Layer(nil), m.Layers[:i+1]...),
		}
	}
	return p
}

func fromOverride(m *manifest.Manifest, d *config.Diagram) (*Plan, error) {
	p := &Plan{Mode: ModeOverride, Steps: make([]Step, 0, len(d.Steps))}
	names := make(map[string]bool, len(d.Steps))

	for _, s := range d.Steps {
		if err := errors.ValidateArtifactName(s.Name); err != nil {
			return nil, err
		}
		if names[s.Name] {
			return nil, errors.New(errors.ErrCodeInvalidArtifact, "duplicate step name %q", s.Name)
		}
		names[s.Name] = true

		step := Step{Name: s.Name, Layers: make([]manifest.Layer, 0, len(s.Layers))}
		seen := make(map[string]bool, len(s.Layers))
		for _, ref := range s.Layers {
			l, err := resolve(m, ref)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", s.Name, err)
			}
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			step.Layers = append(step.Layers, l)
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

func resolve(m *manifest.Manifest, ref config.LayerRef) (manifest.Layer, error) {
	if ref.ByIndex {
		l, ok := m.ByIndex(ref.Index)
		if !ok {
			return manifest.Layer{}, errors.New(errors.ErrCodeUnknownLayer, "layer index %d not found (diagram has %s)", ref.Index, available(m))
		}
		return l, nil
	}

	matches := m.ByName(ref.Name)
	switch len(matches) {
	case 0:
		return manifest.Layer{}, errors.New(errors.ErrCodeUnknownLayer, "layer %q not found (diagram has %s)", ref.Name, available(m))
	case 1:
		return matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, l := range matches {
		ids[i] = l.ID
	}
	return manifest.Layer{}, errors.New(errors.ErrCodeAmbiguousLayer, "layer name %q is used by %d layers (ids %s); rename them", ref.Name, len(matches), strings.Join(ids, ", "))
}

func available(m *manifest.Manifest) string {
	if len(m.Layers) == 0 {
		return "no named layers"
	}
	parts := make([]string, len(m.Layers))
	for i, l := range m.Layers {
		parts[i] = fmt.Sprintf("%d:%q", l.Index, l.Name)
	}
	return strings.Join(parts, ", ")
}

// ArtifactPath returns where the artifact of a step is written:
// <outDir>/<dir of key>/<stem>-<step>.<ext>. key is the slash separated
// diagram path relative to the input directory.
func ArtifactPath(outDir, key, step, ext string) string {
	dir, file := path.Split(key)
	stem := strings.TrimSuffix(file, path.Ext(file))
	name := stem + "-" + step
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return filepath.Join(outDir, filepath.FromSlash(dir), name)
}
