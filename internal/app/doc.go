// Package app wires the application together: logger, manifest loading,
// trigger matching, graph construction, and execution. It owns the lifecycle
// of one conveyor process, whether it runs a single event or serves webhooks.
package app
