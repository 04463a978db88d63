// Package events defines the forecast related events emitted on the event bus.
//
// Available event types:
//   - ScenarioEvent: one scenario evaluated (or served from cache)
//   - SweepEvent: a duration sweep completed or was cancelled
package events
