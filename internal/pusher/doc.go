// Package pusher is the operator side of the hub's upload API.
//
// Client uploads files to the hub for one named target and lists online
// clients. Watcher turns a local outbox directory into a drop folder:
// anything written into it is pushed to the configured target.
package pusher
