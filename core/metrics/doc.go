// Package metrics defines the recorders fed by the forecast engine. Sinks
// like PromSink and InfluxSink record evaluated scenarios, sweep summaries
// and cost curves, and can be combined with NewMultiSink. The factory
// helpers return a MultiSink automatically when multiple sinks are
// configured.
package metrics
