// Package receiver is the client device side of filedrop.
//
// A Receiver dials the hub, declares its identity, and saves every
// filename/payload frame pair it is sent into a local directory. When the
// connection drops it reconnects with exponential backoff until its
// context ends. The hub never holds files for offline clients, so anything
// sent while the receiver is reconnecting is lost.
package receiver
