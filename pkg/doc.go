// Package pkg provides the libraries behind drawio-builder.
//
// # Overview
//
// drawio-builder turns layered draw.io diagrams into image sequences: one
// image per export step, each showing a chosen set of layers. The pkg
// directory is organized by stage:
//
//  1. [source] - Discover diagram files and assign them stable keys
//  2. [manifest] - Read the layers of a diagram in declaration order
//  3. [config] - Load per-diagram override files (TOML, YAML, JSON)
//  4. [plan] - Build the export steps, cumulative by default
//  5. [freshness] - Decide which artifacts are older than their diagram
//  6. [render] - Run the draw.io exporter for one step
//  7. [pipeline] - Orchestrate all of the above across many diagrams
//
// Supporting packages: [errors] (coded errors), [observability] (build and
// render hooks) and [buildinfo] (version stamping).
//
// # Architecture
//
// The data flow for one diagram:
//
//	fig.drawio
//	     ↓
//	[manifest] layers: Axes, Curve, Labels
//	     ↓
//	[plan] steps: 0={Axes} 1={Axes,Curve} 2={Axes,Curve,Labels}
//	     ↓
//	[freshness] step 0 fresh, steps 1 and 2 stale
//	     ↓
//	[render] drawio -x -f png -o out/fig-1.png --layers 1,2 fig.drawio
//
// # Quick Start
//
//	diagrams, _ := source.Discover("figures", false)
//	overrides, _ := config.Load("figures/layers.toml")
//	binary, _ := render.Locate("")
//	drawio := render.NewDrawio(binary, []string{"-x", "-f", "png"})
//
//	runner := pipeline.NewRunner(drawio, overrides, logger)
//	report, err := runner.Execute(ctx, diagrams, pipeline.Options{
//	    OutputDir: "out",
//	    Extension: drawio.Format(),
//	})
package pkg
