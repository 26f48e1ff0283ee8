// Package render invokes the external draw.io exporter.
//
// # Overview
//
// The build engine treats rendering as an opaque, atomic call: given a
// diagram, the native indexes of the layers to show, and an output path, the
// renderer either produces one image at that path or fails with diagnostic
// text. [Renderer] is that contract; [Drawio] implements it by running the
// draw.io desktop binary in export mode:
//
//	drawio -x -f png -t -s 5 -o out/fig-1.png --layers 0,1 fig.drawio
//
// # Flags
//
// [ParseFlags] splits the user supplied build arguments; with draft enabled
// it rewrites the scale to 1 for faster document builds. The artifact
// extension follows the -f/--format flag ([FormatOf]).
//
// # Locating the binary
//
// [Locate] tries an explicit hint first, then the macOS application bundle,
// then "drawio" and "draw.io" on PATH.
//
// # Errors
//
// A failed run returns an [*Error] carrying the exit code and the captured
// stdout and stderr of the process, which end up in the build's error log.
package render
