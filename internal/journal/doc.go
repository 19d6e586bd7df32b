// Package journal writes delivery events to PostgreSQL in batches.
//
// The journal is a delivery.Recorder: the router and sessions hand it
// events without blocking, a consume loop accumulates them, and batches are
// flushed when full or on a timer. Rows are append-only and keyed by
// (delivery_id, outcome), so replays are ignored. File bytes are never
// stored.
package journal
