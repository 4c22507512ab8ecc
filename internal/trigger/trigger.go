// Package trigger decides whether an incoming repository event activates a
// pipeline. Matching is a pure predicate over the event; it is evaluated once,
// before any job graph is built.
package trigger

import "slices"

// EventKind identifies the kind of repository event that may start a run.
type EventKind string

const (
	// Push is a commit landing on a branch.
	Push EventKind = "push"
	// PullRequest is a commit on a branch that targets a protected branch.
	PullRequest EventKind = "pull_request"
)

// Event is a single triggering occurrence delivered by the hosting
// infrastructure: what happened, and on which branch.
type Event struct {
	Kind   EventKind `json:"event"`
	Branch string    `json:"branch"`
}

// Rules is the declarative trigger condition attached to a pipeline: which
// event kinds it reacts to and which branches are allowed.
//
// An empty Events list matches every event kind, and an empty Branches list
// matches every branch. A nil *Rules matches everything, so a manifest
// without a trigger block can still be run directly.
type Rules struct {
	Events   []string
	Branches []string
}

// Match reports whether the event activates a pipeline guarded by these rules.
func (r *Rules) Match(ev Event) bool {
	if r == nil {
		return true
	}
	if len(r.Events) > 0 && !slices.Contains(r.Events, string(ev.Kind)) {
		return false
	}
	if len(r.Branches) > 0 && !slices.Contains(r.Branches, ev.Branch) {
		return false
	}
	return true
}
