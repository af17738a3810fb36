// Package types defines the data structures shared by Orbit's Manager and
// Agent: the node registry, the component/business template catalogue,
// business and component instances, and the metric records produced by
// telemetry collection.
package types
