package plan

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/drawio-builder/pkg/config"
	"github.com/matzehuels/drawio-builder/pkg/errors"
	"github.com/matzehuels/drawio-builder/pkg/manifest"
)

// abc is the manifest [A, B, C] behind a renamed background.
func abc() *manifest.Manifest {
	return &manifest.Manifest{Layers: []manifest.Layer{
		{ID: "id-a", Name: "A", Index: 0},
		{ID: "id-b", Name: "B", Index: 1},
		{ID: "id-c", Name: "C", Index: 2},
	}}
}

func layersN(n int) *manifest.Manifest {
	m := &manifest.Manifest{}
	for i := 0; i < n; i++ {
		m.Layers = append(m.Layers, manifest.Layer{ID: fmt.Sprintf("cell-%d", i), Name: fmt.Sprintf("L%d", i), Index: i + 1})
	}
	return m
}

func TestBuildDefaultExample(t *testing.T) {
	p, err := Build(abc(), nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	got := make([][]string, len(p.Steps))
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		got[i] = s.Names()
		names[i] = s.Name
	}
	want := [][]string{{"A"}, {"A", "B"}, {"A", "B", "C"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("visible layers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0", "1", "2"}, names); diff != "" {
		t.Errorf("step names mismatch (-want +got):\n%s", diff)
	}
	if p.Mode != ModeIncremental {
		t.Errorf("Mode = %q, want %q", p.Mode, ModeIncremental)
	}
}

func TestBuildDefaultIsCumulative(t *testing.T) {
	for n := 1; n <= 12; n++ {
		m := layersN(n)
		p, err := Build(m, nil)
		if err != nil {
			t.Fatalf("n=%d: Build() error: %v", n, err)
		}
		if p.Len() != n {
			t.Fatalf("n=%d: Len() = %d", n, p.Len())
		}
		for i, s := range p.Steps {
			if diff := cmp.Diff(m.Layers[:i+1], s.Layers); diff != "" {
				t.Errorf("n=%d step %d mismatch (-want +got):\n%s", n, i, diff)
			}
		}
	}
}

func TestBuildDefaultDoesNotAliasManifest(t *testing.T) {
	m := abc()
	p, _ := Build(m, nil)
	p.Steps[0].Layers[0].Name = "changed"
	if m.Layers[0].Name != "A" {
		t.Error("plan steps must not share backing arrays with the manifest")
	}
}

func TestBuildBackgroundOnly(t *testing.T) {
	bg := manifest.Layer{ID: "1", Index: 0}
	p, err := Build(&manifest.Manifest{Background: &bg}, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	if diff := cmp.Diff([]int{0}, p.Steps[0].Indexes()); diff != "" {
		t.Errorf("Indexes mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOverrideExample(t *testing.T) {
	override := &config.Diagram{Key: "fig.drawio", Steps: []config.Step{
		{Name: "s0", Layers: []config.LayerRef{{Name: "C"}}},
		{Name: "s1", Layers: []config.LayerRef{{Name: "C"}, {Name: "A"}}},
	}}

	p, err := Build(abc(), override)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := &Plan{Mode: ModeOverride, Steps: []Step{
		{Name: "s0", Layers: []manifest.Layer{{ID: "id-c", Name: "C", Index: 2}}},
		{Name: "s1", Layers: []manifest.Layer{{ID: "id-c", Name: "C", Index: 2}, {ID: "id-a", Name: "A", Index: 0}}},
	}}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	for _, s := range p.Steps {
		for _, l := range s.Layers {
			if l.Name == "B" {
				t.Errorf("step %q must not contain B", s.Name)
			}
		}
	}
}

func TestBuildOverrideByIndex(t *testing.T) {
	override := &config.Diagram{Key: "fig.drawio", Steps: []config.Step{
		{Name: "0", Layers: []config.LayerRef{{Index: 1, ByIndex: true}, {Name: "B"}, {Index: 0, ByIndex: true}}},
	}}
	p, err := Build(abc(), override)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if diff := cmp.Diff([]string{"id-b", "id-a"}, p.Steps[0].IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOverrideUnknownLayer(t *testing.T) {
	tests := []struct {
		name string
		ref  config.LayerRef
		code errors.Code
	}{
		{"missing name", config.LayerRef{Name: "D"}, errors.ErrCodeUnknownLayer},
		{"missing index", config.LayerRef{Index: 7, ByIndex: true}, errors.ErrCodeUnknownLayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			override := &config.Diagram{Key: "fig.drawio", Steps: []config.Step{
				{Name: "ok", Layers: []config.LayerRef{{Name: "A"}}},
				{Name: "bad", Layers: []config.LayerRef{tt.ref}},
			}}
			p, err := Build(abc(), override)
			if err == nil {
				t.Fatal("Build() error = nil, want error")
			}
			if p != nil {
				t.Errorf("Build() returned a plan alongside the error: %+v", p)
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), tt.code)
			}
		})
	}
}

func TestBuildOverrideBackgroundIsNotAddressable(t *testing.T) {
	bg := manifest.Layer{ID: "1", Index: 0}
	m := &manifest.Manifest{Background: &bg, Layers: []manifest.Layer{{ID: "a", Name: "A", Index: 1}}}
	override := &config.Diagram{Key: "fig.drawio", Steps: []config.Step{
		{Name: "0", Layers: []config.LayerRef{{Index: 0, ByIndex: true}}},
	}}
	if _, err := Build(m, override); !errors.Is(err, errors.ErrCodeUnknownLayer) {
		t.Errorf("Build() error = %v, want UNKNOWN_LAYER_REFERENCE", err)
	}
}

func TestBuildOverrideAmbiguousName(t *testing.T) {
	m := &manifest.Manifest{Layers: []manifest.Layer{
		{ID: "x1", Name: "Notes", Index: 0},
		{ID: "x2", Name: "Notes", Index: 1},
	}}
	override := &config.Diagram{Key: "fig.drawio", Steps: []config.Step{
		{Name: "0", Layers: []config.LayerRef{{Name: "Notes"}}},
	}}
	_, err := Build(m, override)
	if !errors.Is(err, errors.ErrCodeAmbiguousLayer) {
		t.Fatalf("Build() error = %v, want AMBIGUOUS_LAYER_REFERENCE", err)
	}

	// Index references still address duplicated names unambiguously.
	override.Steps[0].Layers = []config.LayerRef{{Index: 1, ByIndex: true}}
	p, err := Build(m, override)
	if err != nil {
		t.Fatalf("Build() by index error: %v", err)
	}
	if p.Steps[0].Layers[0].ID != "x2" {
		t.Errorf("resolved %q, want x2", p.Steps[0].Layers[0].ID)
	}
}

func TestBuildOverrideRejectsUnsafeNames(t *testing.T) {
	override := &config.Diagram{Key: "fig.drawio", Steps: []config.Step{
		{Name: "../escape", Layers: []config.LayerRef{{Name: "A"}}},
	}}
	if _, err := Build(abc(), override); !errors.Is(err, errors.ErrCodeInvalidArtifact) {
		t.Errorf("Build() error = %v, want INVALID_ARTIFACT_NAME", err)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	override := &config.Diagram{Key: "fig.drawio", Steps: []config.Step{
		{Name: "s1", Layers: []config.LayerRef{{Name: "B"}, {Name: "C"}}},
		{Name: "s0", Layers: []config.LayerRef{{Index: 0, ByIndex: true}}},
	}}

	for _, o := range []*config.Diagram{nil, override} {
		first, err := Build(abc(), o)
		if err != nil {
			t.Fatal(err)
		}
		second, err := Build(abc(), o)
		if err != nil {
			t.Fatal(err)
		}
		a, _ := json.Marshal(first)
		b, _ := json.Marshal(second)
		if string(a) != string(b) {
			t.Errorf("plans differ:\n%s\n%s", a, b)
		}
	}
}

func TestBuildNilManifest(t *testing.T) {
	if _, err := Build(nil, nil); err == nil {
		t.Error("Build(nil) should fail")
	}
}

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		key, step, ext string
		want           string
	}{
		{"fig.drawio", "0", "png", filepath.Join("out", "fig-0.png")},
		{"fig.drawio", "intro", ".svg", filepath.Join("out", "fig-intro.svg")},
		{"ch1/fig.dio", "2", "pdf", filepath.Join("out", "ch1", "fig-2.pdf")},
		{"fig.v2.drawio", "1", "png", filepath.Join("out", "fig.v2-1.png")},
		{"fig.drawio", "0", "", filepath.Join("out", "fig-0")},
	}
	for _, tt := range tests {
		if got := ArtifactPath("out", tt.key, tt.step, tt.ext); got != tt.want {
			t.Errorf("ArtifactPath(%q, %q, %q) = %q, want %q", tt.key, tt.step, tt.ext, got, tt.want)
		}
	}
}
