package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/drawio-builder/pkg/errors"
	"github.com/matzehuels/drawio-builder/pkg/observability"
)

// DefaultBuildArgs are the export flags used when none are given:
// PNG, transparent background, scale 5.
const DefaultBuildArgs = "-x -f png -t -s 5"

// DefaultFormat is the artifact format when the flags do not name one.
const DefaultFormat = "png"

// macOSBinary is where the draw.io app bundle keeps its executable.
const macOSBinary = "/Applications/draw.io.app/Contents/MacOS/draw.io"

// Request is one export: show Layers of Input and write the image to Output.
type Request struct {
	Input  string
	Output string
	Layers []int
}

// Renderer produces one artifact per request.
type Renderer interface {
	Render(ctx context.Context, req Request) error
}

// Error describes a failed renderer process.
type Error struct {
	Input    string
	Output   string
	Args     []string
	ExitCode int // -1 when the process could not be started or was killed
	Stdout   []byte
	Stderr   []byte
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("drawio export of %s failed", e.Output)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s (exit code %d)", msg, e.ExitCode)
	}
	if line := firstLine(e.Stderr); line != "" {
		return msg + ": " + line
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *Error) Unwrap() error { return e.Err }

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// =============================================================================
// Flags
// =============================================================================

// ParseFlags splits build arguments on whitespace. With draft set, the value
// of -s/--scale is replaced by 1.
func ParseFlags(args string, draft bool) ([]string, error) {
	flags := strings.Fields(args)
	if !draft {
		return flags, nil
	}
	for i, f := range flags {
		if f != "-s" && f != "--scale" {
			continue
		}
		if i+1 >= len(flags) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "build args: scale flag %s has no value", f)
		}
		flags[i+1] = "1"
		break
	}
	return flags, nil
}

// FormatOf returns the export format named by -f/--format, or DefaultFormat.
func FormatOf(flags []string) string {
	for i, f := range flags {
		if (f == "-f" || f == "--format") && i+1 < len(flags) {
			return flags[i+1]
		}
		if v, ok := strings.CutPrefix(f, "--format="); ok && v != "" {
			return v
		}
	}
	return DefaultFormat
}

// =============================================================================
// Drawio
// =============================================================================

// Drawio renders through the draw.io desktop binary.
type Drawio struct {
	Binary string
	Flags  []string
}

// NewDrawio creates a renderer running binary with the given export flags.
// Flags must not contain -o or --layers; both are set per request.
func NewDrawio(binary string, flags []string) *Drawio {
	return &Drawio{Binary: binary, Flags: append([]string(nil), flags...)}
}

// Format returns the artifact format produced by this renderer.
func (d *Drawio) Format() string {
	return FormatOf(d.Flags)
}

// Args returns the command line arguments for req.
func (d *Drawio) Args(req Request) []string {
	args := append([]string(nil), d.Flags...)
	args = append(args, "-o", req.Output, "--layers", joinIndexes(req.Layers), req.Input)
	return args
}

// Render runs one export and waits for it to finish.
func (d *Drawio) Render(ctx context.Context, req Request) error {
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return &Error{Input: req.Input, Output: req.Output, ExitCode: -1, Err: err}
	}

	args := d.Args(req)
	cmd := exec.CommandContext(ctx, d.Binary, args...)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	hooks := observability.Render()
	hooks.OnRenderStart(ctx, d.Binary, args)
	start := time.Now()
	err := cmd.Run()

	code := 0
	if err != nil {
		code = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
	}
	hooks.OnRenderComplete(ctx, d.Binary, code, time.Since(start), err)

	if err != nil {
		return &Error{
			Input:    req.Input,
			Output:   req.Output,
			Args:     args,
			ExitCode: code,
			Stdout:   out.Bytes(),
			Stderr:   errBuf.Bytes(),
			Err:      err,
		}
	}
	return nil
}

func joinIndexes(indexes []int) string {
	parts := make([]string, len(indexes))
	for i, idx := range indexes {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ",")
}

// Locate returns the first usable draw.io binary. A non-empty hint is tried
// before the well-known locations.
func Locate(hint string) (string, error) {
	candidates := []string{macOSBinary, "drawio", "draw.io"}
	if hint != "" {
		candidates = append([]string{hint}, candidates...)
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	if hint != "" {
		return "", errors.New(errors.ErrCodeRendererNotFound, "drawio binary %q not found or not executable", hint)
	}
	return "", errors.New(errors.ErrCodeRendererNotFound, "failed to locate drawio binary; pass its path with --drawio")
}

// Ensure Drawio implements Renderer.
var _ Renderer = (*Drawio)(nil)
