package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/drawio-builder/pkg/errors"
)

// Extensions lists the file extensions recognized as diagrams.
var Extensions = []string{".drawio", ".dio"}

// Diagram is one discovered diagram file.
type Diagram struct {
	Path string `json:"path"` // filesystem path as found
	Key  string `json:"key"`  // slash path relative to the input root
	Name string `json:"name"` // file name without extension
}

// String returns the diagram key.
func (d Diagram) String() string { return d.Key }

// IsDiagram reports whether name has a diagram extension.
func IsDiagram(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FromPath describes a single diagram file, keyed by its base name.
func FromPath(path string) Diagram {
	base := filepath.Base(path)
	return Diagram{
		Path: path,
		Key:  base,
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// Discover returns the diagrams in root sorted by key. When root is a file it
// is returned alone. Subdirectories are searched only when recursive is set;
// hidden directories are always skipped.
func Discover(root string, recursive bool) ([]Diagram, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "input %s", root)
	}
	if !info.IsDir() {
		if !IsDiagram(root) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "input %s is not a diagram (want %s)", root, strings.Join(Extensions, ", "))
		}
		return []Diagram{FromPath(root)}, nil
	}

	var diagrams []Diagram
	add := func(path string) error {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		diagrams = append(diagrams, Diagram{
			Path: path,
			Key:  filepath.ToSlash(rel),
			Name: strings.TrimSuffix(base, filepath.Ext(base)),
		})
		return nil
	}

	if recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !IsDiagram(d.Name()) || !isFile(path, d) {
				return nil
			}
			return add(path)
		})
	} else {
		var entries []os.DirEntry
		entries, err = os.ReadDir(root)
		for _, e := range entries {
			if err != nil {
				break
			}
			path := filepath.Join(root, e.Name())
			if IsDiagram(e.Name()) && isFile(path, e) {
				err = add(path)
			}
		}
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "list diagrams in %s", root)
	}

	sort.Slice(diagrams, func(i, j int) bool { return diagrams[i].Key < diagrams[j].Key })
	return diagrams, nil
}

// isFile reports whether the entry is a regular file, following symlinks.
// Dangling links are not files.
func isFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
