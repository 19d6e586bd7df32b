// Package queue provides the growable FIFO used for per-client delivery
// sinks and for the delivery journal input.
//
// A queue has a single exclusion mechanism (mutex + condition variable).
// Producers never block; the consumer blocks in Receive until an item
// arrives or the queue is closed.
package queue
