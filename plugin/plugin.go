// Package plugin holds the attachable modules that ride on the engine's
// event surface: minimap, stats and level-of-detail. Plugins subscribe
// read-only; they never mutate the graph, and the core never depends on
// them.
package plugin

import "tangle/engine"

// Plugin is an independently attachable module with a lifecycle.
type Plugin interface {
	Name() string
	// Attach subscribes the plugin to the engine. Calling Attach on an
	// already-attached plugin is an error.
	Attach(e *engine.Engine) error
	// Detach unsubscribes; safe to call when not attached.
	Detach()
}
