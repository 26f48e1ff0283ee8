// Package pipeline orchestrates layer export builds.
//
// This package implements the complete discover → plan → check → render
// flow that turns a set of diagrams into per-layer images. The CLI only
// wires flags to [Options] and prints the [Report].
//
// # Architecture
//
// For each diagram the pipeline runs four stages:
//
//  1. Manifest: read the layers of the diagram ([manifest.Read])
//  2. Plan: build the export steps, default or override ([plan.Build])
//  3. Freshness: compare every step's artifact with the source ([freshness.Evaluate])
//  4. Render: invoke the renderer once per stale step, in plan order
//
// Stages 1 to 3 are exposed on their own through [Runner.Prepare], which
// backs dry runs.
//
// # Failure isolation
//
// A diagram whose manifest or plan cannot be built is skipped and reported;
// the remaining diagrams still build. A failed step never aborts its
// siblings. Only invalid options and an unwritable output directory fail
// the whole run.
//
// # Concurrency
//
// Diagrams are built by up to [Options.Jobs] workers. Steps of one diagram
// run sequentially. Nothing is shared between workers except the read-only
// override configuration; every step writes its own artifact path.
//
// # Usage
//
//	runner := pipeline.NewRunner(drawio, overrides, logger)
//	report, err := runner.Execute(ctx, diagrams, pipeline.Options{
//	    OutputDir: "out",
//	    Extension: drawio.Format(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if report.Failed() {
//	    report.WriteLog(f)
//	}
package pipeline

import (
	"runtime"
	"strings"

	"github.com/matzehuels/drawio-builder/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultExtension is the artifact extension when none is given.
const DefaultExtension = "png"

// ErrorLogName is the file, inside the output directory, that receives the
// error log of a failed build.
const ErrorLogName = "drawio-builder-errors.log"

// DefaultJobs returns the default number of diagrams built in parallel.
func DefaultJobs() int {
	return runtime.NumCPU()
}

// =============================================================================
// Options
// =============================================================================

// Options configures a build.
type Options struct {
	// OutputDir receives the artifacts, mirroring the input tree.
	OutputDir string

	// Extension of the artifacts, matching the renderer's export format.
	Extension string

	// Force renders every step regardless of freshness.
	Force bool

	// Jobs bounds the number of diagrams built concurrently.
	// Zero or negative means DefaultJobs.
	Jobs int
}

// ValidateAndSetDefaults validates options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if strings.TrimSpace(o.OutputDir) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "output directory is required")
	}
	o.Extension = strings.TrimPrefix(o.Extension, ".")
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if strings.ContainsAny(o.Extension, `/\`) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid artifact extension %q", o.Extension)
	}
	if o.Jobs <= 0 {
		o.Jobs = DefaultJobs()
	}
	return nil
}
