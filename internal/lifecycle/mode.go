package lifecycle

import "fmt"

// Mode selects how an update's edits combine with the current graph.
type Mode string

const (
	// ModeReplace makes the edits the entire new graph.
	ModeReplace Mode = "replace"

	// ModeMerge replaces every statement of each subject the edits mention
	// and keeps the rest of the current graph.
	ModeMerge Mode = "merge"
)

// ValidateMode checks if mode is a known update mode. Empty defaults to
// replace.
func ValidateMode(mode Mode) error {
	switch mode {
	case ModeReplace, ModeMerge, "":
		return nil
	default:
		return fmt.Errorf("invalid update mode %q: must be replace or merge", mode)
	}
}

// DanglingPolicy selects what an update does with objects it leaves
// undescribed.
type DanglingPolicy string

const (
	// DanglingReport fails the update with DANGLING_OBJECT.
	DanglingReport DanglingPolicy = "report"

	// DanglingForceClean strips every statement referencing a dangling
	// object.
	DanglingForceClean DanglingPolicy = "force-clean"
)

// ValidateDanglingPolicy checks if p is a known policy. Empty defaults to
// report.
func ValidateDanglingPolicy(p DanglingPolicy) error {
	switch p {
	case DanglingReport, DanglingForceClean, "":
		return nil
	default:
		return fmt.Errorf("invalid dangling policy %q: must be report or force-clean", p)
	}
}
