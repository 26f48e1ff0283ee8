// Package plan decides which layer subsets of a diagram are exported.
//
// # Default plans
//
// Without an override, a diagram with n layers gets n steps. Step i shows
// the first i+1 layers in manifest order and is named after i:
//
//	manifest [Axes, Curve, Labels]
//	step "0": Axes
//	step "1": Axes, Curve
//	step "2": Axes, Curve, Labels
//
// Names only depend on the layer count, so artifact paths are stable across
// runs and freshness checks stay meaningful.
//
// # Override plans
//
// An override lists steps explicitly. Every layer reference is resolved
// against the manifest; a reference that matches nothing fails the plan with
// UNKNOWN_LAYER_REFERENCE, a display name shared by several layers with
// AMBIGUOUS_LAYER_REFERENCE. Resolved steps are kept verbatim: they need not
// be cumulative and may list layers in any order. Listing a later layer in an
// early step is the way to make it render beneath layers added afterwards.
//
// [Build] is deterministic: the same manifest and override always yield the
// same plan, byte for byte once encoded.
package plan
