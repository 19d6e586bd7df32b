// Package hub is the HTTP front-end of the file drop hub.
//
// Routes:
//   - GET  /ws       client devices connect and declare their identity
//   - POST /upload   multipart upload routed to one online client
//   - GET  /clients  online identities as JSON
//   - GET  /         HTML dashboard
//   - GET  /health   liveness
//   - GET  /metrics  Prometheus scrape endpoint
package hub
