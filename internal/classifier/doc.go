// Package classifier manages the external frame-classification worker.
//
// The package implements:
//   - Supervisor: lifecycle of a single long-lived worker process
//     (not_started -> starting -> ready -> crashed), spawned lazily and
//     respawned lazily after a crash
//   - Correlator: correlation-id matching of worker responses to pending
//     requests with per-request deadlines
//
// The worker speaks a line-delimited JSON protocol on its standard streams:
// request lines on stdin, response lines on stdout, and a readiness sentinel
// on stderr before the first request may be sent.
package classifier
