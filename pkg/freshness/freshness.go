// Package freshness decides whether an exported artifact must be rebuilt.
//
// The check is a plain modification-time comparison at diagram granularity:
// every step of a diagram is compared against the diagram's own timestamp,
// because editing any layer can change every cumulative image that includes
// it. Content is never hashed. Coarse filesystem timestamps or clock skew on
// network mounts can therefore make a changed diagram look fresh; --force on
// the command line is the escape hatch.
package freshness

import (
	"os"
	"time"
)

// Status is the outcome of a freshness check.
type Status int

const (
	Stale Status = iota
	Fresh
)

func (s Status) String() string {
	if s == Fresh {
		return "fresh"
	}
	return "stale"
}

// Reason explains a Status.
type Reason string

const (
	ReasonMissing  Reason = "missing"    // artifact does not exist
	ReasonOutdated Reason = "outdated"   // artifact is older than the source
	ReasonUpToDate Reason = "up-to-date" // artifact is at least as new as the source
	ReasonForced   Reason = "forced"     // rebuild requested regardless of timestamps
)

// Result is the freshness of one artifact.
type Result struct {
	Status   Status
	Reason   Reason
	Exists   bool
	ModTime  time.Time // artifact modification time, zero when missing
	SourceAt time.Time // source modification time used for the comparison
}

// Stale reports whether the artifact must be rebuilt.
func (r Result) Stale() bool { return r.Status == Stale }

// Compare applies the freshness rule: an artifact is fresh iff it exists and
// is not older than the source. Equal timestamps count as fresh.
func Compare(source, artifact time.Time, exists bool) Result {
	r := Result{Exists: exists, SourceAt: source}
	if !exists {
		r.Status, r.Reason = Stale, ReasonMissing
		return r
	}
	r.ModTime = artifact
	if artifact.Before(source) {
		r.Status, r.Reason = Stale, ReasonOutdated
		return r
	}
	r.Status, r.Reason = Fresh, ReasonUpToDate
	return r
}

// Evaluate stats the artifact at path and compares it with the source time.
// A missing artifact is stale; any other stat failure is returned.
func Evaluate(source time.Time, path string) (Result, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Compare(source, time.Time{}, false), nil
	}
	if err != nil {
		return Result{SourceAt: source}, err
	}
	return Compare(source, info.ModTime(), true), nil
}

// Forced returns a stale result that ignores the artifact's timestamp.
func Forced(source time.Time, path string) Result {
	r := Result{Status: Stale, Reason: ReasonForced, SourceAt: source}
	if info, err := os.Stat(path); err == nil {
		r.Exists, r.ModTime = true, info.ModTime()
	}
	return r
}

// SourceTime returns the modification time of a diagram source.
func SourceTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
