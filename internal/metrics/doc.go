// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Online client sessions and session outcomes
//   - Deliveries by outcome and delivered bytes
//   - Protocol violations seen by the hub and by receivers
//   - HTTP request rates and latencies of the upload front-end
package metrics
