// Package infra holds the technical adapters of the forecast engine:
// metric sinks, the MQTT publisher, logging and crash reporting. They
// depend only on interfaces declared under core.
package infra
