package manifest

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/drawio-builder/pkg/errors"
)

func TestReadFixture(t *testing.T) {
	m, err := Read(filepath.Join("testdata", "layers.drawio"))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	want := []Layer{
		{ID: "axes", Name: "Axes", Index: 1},
		{ID: "curve", Name: "Curve", Index: 2},
		{ID: "labels", Name: "Labels", Index: 3},
	}
	if diff := cmp.Diff(want, m.Layers); diff != "" {
		t.Errorf("Layers mismatch (-want +got):\n%s", diff)
	}
	if m.Background == nil || m.Background.ID != "1" || m.Background.Index != 0 {
		t.Errorf("Background = %+v, want id 1 at index 0", m.Background)
	}
	if m.Page != "Page-1" {
		t.Errorf("Page = %q, want Page-1", m.Page)
	}
	if m.Source != filepath.Join("testdata", "layers.drawio") {
		t.Errorf("Source = %q", m.Source)
	}
}

func TestParseRenamedBackground(t *testing.T) {
	doc := model(`<mxCell id="0"/><mxCell id="1" value="Base" parent="0"/><mxCell id="2" value="Top" parent="0"/>`)
	m, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.Background != nil {
		t.Errorf("Background = %+v, want nil for renamed default layer", m.Background)
	}
	if diff := cmp.Diff([]string{"Base", "Top"}, m.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
	if m.Layers[0].Index != 0 || m.Layers[1].Index != 1 {
		t.Errorf("indexes = %d,%d, want 0,1", m.Layers[0].Index, m.Layers[1].Index)
	}
}

func TestParseBackgroundOnly(t *testing.T) {
	doc := model(`<mxCell id="0"/><mxCell id="1" parent="0"/><mxCell id="v" value="box" vertex="1" parent="1"/>`)
	m, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	if m.Background == nil {
		t.Fatal("Background = nil, want the default layer")
	}
}

func TestParseBareGraphModel(t *testing.T) {
	doc := `<mxGraphModel><root><mxCell id="0"/><mxCell id="a" value="A" parent="0"/></root></mxGraphModel>`
	m, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff([]string{"A"}, m.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCompressedPage(t *testing.T) {
	inner := `<mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/>` +
		`<mxCell id="a" value="First layer" parent="0"/><mxCell id="b" value="Second &amp; last" parent="0"/></root></mxGraphModel>`
	doc := `<mxfile><diagram name="Compressed" id="c">` + compress(t, inner) + `</diagram></mxfile>`

	m, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff([]string{"First layer", "Second & last"}, m.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
	if m.Page != "Compressed" {
		t.Errorf("Page = %q, want Compressed", m.Page)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not xml", "this is not a diagram"},
		{"wrong root", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`},
		{"no pages", `<mxfile host="x"></mxfile>`},
		{"empty page", `<mxfile><diagram name="p"></diagram></mxfile>`},
		{"bad compressed payload", `<mxfile><diagram name="p">!!!notbase64</diagram></mxfile>`},
		{"no root element", `<mxGraphModel></mxGraphModel>`},
		{"no root cell", `<mxGraphModel><root><mxCell id="a" parent="x"/></root></mxGraphModel>`},
		{"no layers", `<mxGraphModel><root><mxCell id="0"/></root></mxGraphModel>`},
		{"duplicate layer id", model(`<mxCell id="0"/><mxCell id="a" value="A" parent="0"/><mxCell id="a" value="B" parent="0"/>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !errors.Is(err, errors.ErrCodeManifestParse) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeManifestParse)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.drawio")
	_, err := Read(path)
	if !errors.Is(err, errors.ErrCodeManifestParse) {
		t.Fatalf("Read() error = %v, want MANIFEST_PARSE", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q should name the path", err)
	}
}

func TestReadRegeneratesFromCurrentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fig.drawio")
	write := func(body string) {
		if err := os.WriteFile(path, []byte(model(body)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write(`<mxCell id="0"/><mxCell id="a" value="A" parent="0"/>`)
	first, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	write(`<mxCell id="0"/><mxCell id="a" value="A" parent="0"/><mxCell id="b" value="B" parent="0"/>`)
	second, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Len() != 1 || second.Len() != 2 {
		t.Errorf("Len() = %d then %d, want 1 then 2", first.Len(), second.Len())
	}
}

func TestLookups(t *testing.T) {
	m := &Manifest{Layers: []Layer{
		{ID: "a", Name: "Dup", Index: 1},
		{ID: "b", Name: "Dup", Index: 2},
		{ID: "c", Name: "Solo", Index: 3},
	}}

	if got := m.ByName("Dup"); len(got) != 2 {
		t.Errorf("ByName(Dup) = %d layers, want 2", len(got))
	}
	if got := m.ByName("missing"); len(got) != 0 {
		t.Errorf("ByName(missing) = %v, want none", got)
	}
	if l, ok := m.ByIndex(3); !ok || l.ID != "c" {
		t.Errorf("ByIndex(3) = %+v, %v", l, ok)
	}
	if _, ok := m.ByIndex(0); ok {
		t.Error("ByIndex(0) should not resolve")
	}
}

func model(cells string) string {
	return `<mxfile><diagram name="Page-1" id="p"><mxGraphModel><root>` + cells + `</root></mxGraphModel></diagram></mxfile>`
}

func compress(t *testing.T, xmlText string) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(url.PathEscape(xmlText))); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
