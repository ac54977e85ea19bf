// Package metrics exposes console metrics in the Prometheus format.
//
// A *Metrics value is passed to api.New as an observer and to the console
// for refresh and view-tree accounting. The console mounts Handler at
// metrics.path when metrics.enabled is set.
package metrics
