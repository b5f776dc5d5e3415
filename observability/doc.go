// Package observability provides a metrics extension that tracks retry
// scheduling, dead-lettering, and operator action rates, plus a gauge
// for the latest health evaluation.
package observability
