// Package delivery defines what travels from the hub to a client device.
//
// A Unit is one file: a filename and its payload. On the wire a Unit is
// exactly two WebSocket frames, a text frame carrying the filename followed
// by a binary frame carrying the payload. Units for one client are queued
// on that client's Sink and written by a single writer, so the two frames
// of one Unit are never separated by frames of another.
//
// Before any delivery a client declares itself with one text frame:
//
//	ID:<identity>
package delivery
