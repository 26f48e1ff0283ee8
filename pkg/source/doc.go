// Package source finds the diagrams a build operates on.
//
// [Discover] lists the .drawio and .dio files under an input directory (or
// accepts a single file), assigning each a [Diagram] key: its slash-separated
// path relative to the input root. Keys select override configuration and
// place artifacts in the output tree, so fig.drawio and sub/fig.drawio never
// collide.
package source
