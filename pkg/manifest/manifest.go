package manifest

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/matzehuels/drawio-builder/pkg/errors"
)

// Layer is one toggleable layer of a diagram.
type Layer struct {
	// ID is the stable mxCell id. Internal comparisons use it.
	ID string `json:"id"`
	// Name is the display name shown in the editor. Override files match on it.
	Name string `json:"name"`
	// Index is the position among all layer cells of the page, background included.
	Index int `json:"index"`
}

// String returns the display name, falling back to the id.
func (l Layer) String() string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}

// Manifest is the ordered layer list of one diagram page.
type Manifest struct {
	Source     string  // path the manifest was read from, empty for Parse
	Page       string  // name of the page that was read
	Layers     []Layer // exportable layers in native declaration order
	Background *Layer  // un-renamed default layer, if present
}

// Len returns the number of exportable layers.
func (m *Manifest) Len() int { return len(m.Layers) }

// ByName returns all layers with the given display name.
// More than one result means the name is ambiguous.
func (m *Manifest) ByName(name string) []Layer {
	var out []Layer
	for _, l := range m.Layers {
		if l.Name == name {
			out = append(out, l)
		}
	}
	return out
}

// ByIndex returns the exportable layer with the given native index.
func (m *Manifest) ByIndex(index int) (Layer, bool) {
	for _, l := range m.Layers {
		if l.Index == index {
			return l, true
		}
	}
	return Layer{}, false
}

// Names returns the display names of all exportable layers in order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Layers))
	for i, l := range m.Layers {
		names[i] = l.Name
	}
	return names
}

// Read parses the diagram file at path.
// All failures are MANIFEST_PARSE errors naming the path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "read %s", path)
	}
	m, err := parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "%s", path)
	}
	m.Source = path
	return m, nil
}

// Parse reads a diagram from r.
func Parse(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "read diagram")
	}
	m, err := parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "parse diagram")
	}
	return m, nil
}

// =============================================================================
// XML decoding
// =============================================================================

type mxFile struct {
	Pages []page `xml:"diagram"`
}

type page struct {
	Name  string `xml:"name,attr"`
	ID    string `xml:"id,attr"`
	Inner []byte `xml:",innerxml"`
}

// rootChild is a direct child of <root>: either a bare <mxCell> or an
// <object>/<UserObject> wrapper carrying custom properties around one.
type rootChild struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Cell    *struct {
		Attrs []xml.Attr `xml:",any,attr"`
	} `xml:"mxCell"`
}

type cell struct {
	id        string
	parent    string
	hasParent bool
	value     string
}

func parse(data []byte) (*Manifest, error) {
	name, err := rootElement(data)
	if err != nil {
		return nil, err
	}

	var pageName string
	model := data
	switch name {
	case "mxfile":
		var f mxFile
		if err := xml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode mxfile: %w", err)
		}
		if len(f.Pages) == 0 {
			return nil, fmt.Errorf("mxfile has no diagram pages")
		}
		p := f.Pages[0]
		pageName = p.Name
		if model, err = pageModel(p); err != nil {
			return nil, fmt.Errorf("page %q: %w", p.Name, err)
		}
	case "mxGraphModel":
	default:
		return nil, fmt.Errorf("not a draw.io diagram (root element <%s>)", name)
	}

	cells, err := decodeCells(model)
	if err != nil {
		return nil, err
	}
	m, err := fromCells(cells)
	if err != nil {
		return nil, err
	}
	m.Page = pageName
	return m, nil
}

// rootElement returns the local name of the document element.
func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("empty document")
		}
		if err != nil {
			return "", fmt.Errorf("decode xml: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

// pageModel returns the mxGraphModel XML of a page, inflating compressed payloads.
func pageModel(p page) ([]byte, error) {
	inner := bytes.TrimSpace(p.Inner)
	if len(inner) == 0 {
		return nil, fmt.Errorf("page is empty")
	}
	if inner[0] == '<' {
		return inner, nil
	}
	return inflate(string(inner))
}

// inflate decodes the compressed page format: base64, raw deflate, URI encoding.
func inflate(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(payload), ""))
	if err != nil {
		return nil, fmt.Errorf("decode compressed page: %w", err)
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	inflated, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate compressed page: %w", err)
	}
	decoded, err := url.PathUnescape(string(inflated))
	if err != nil {
		return nil, fmt.Errorf("unescape compressed page: %w", err)
	}
	return []byte(decoded), nil
}

// decodeCells walks the children of the first <root> element.
func decodeCells(model []byte) ([]cell, error) {
	dec := xml.NewDecoder(bytes.NewReader(model))
	inRoot := false
	var cells []cell
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode graph model: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !inRoot {
				inRoot = t.Name.Local == "root"
				continue
			}
			var child rootChild
			if err := dec.DecodeElement(&child, &t); err != nil {
				return nil, fmt.Errorf("decode cell: %w", err)
			}
			cells = append(cells, child.cell())
		case xml.EndElement:
			if inRoot && t.Name.Local == "root" {
				return cells, nil
			}
		}
	}
	if !inRoot {
		return nil, fmt.Errorf("graph model has no <root>")
	}
	return cells, nil
}

func (c rootChild) cell() cell {
	var out cell
	if c.XMLName.Local == "mxCell" {
		out.id, _ = attr(c.Attrs, "id")
		out.value, _ = attr(c.Attrs, "value")
		out.parent, out.hasParent = attr(c.Attrs, "parent")
		return out
	}
	// Wrapped cells keep id and label on the wrapper, parent on the inner cell.
	out.id, _ = attr(c.Attrs, "id")
	out.value, _ = attr(c.Attrs, "label")
	if c.Cell != nil {
		out.parent, out.hasParent = attr(c.Cell.Attrs, "parent")
	}
	return out
}

func attr(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// fromCells extracts layers: the cells whose parent is the model root.
func fromCells(cells []cell) (*Manifest, error) {
	rootID := ""
	found := false
	for _, c := range cells {
		if !c.hasParent {
			rootID, found = c.id, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("graph model has no root cell")
	}

	m := &Manifest{}
	seen := make(map[string]bool)
	index := 0
	for _, c := range cells {
		if !c.hasParent || c.parent != rootID {
			continue
		}
		if c.id == "" {
			return nil, fmt.Errorf("layer %d has no id", index)
		}
		if seen[c.id] {
			return nil, fmt.Errorf("duplicate layer id %q", c.id)
		}
		seen[c.id] = true

		l := Layer{ID: c.id, Name: c.value, Index: index}
		index++
		if isBackground(c) {
			if m.Background == nil {
				bg := l
				m.Background = &bg
			}
			continue
		}
		m.Layers = append(m.Layers, l)
	}
	if index == 0 {
		return nil, fmt.Errorf("diagram declares no layers")
	}
	return m, nil
}

// isBackground reports whether a layer cell is the un-renamed default layer.
func isBackground(c cell) bool {
	return strings.TrimSpace(c.value) == ""
}
