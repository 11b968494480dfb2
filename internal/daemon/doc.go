// Package daemon ties the scheduler, state store, and notification surface
// together behind a single-instance lock. The IPC server delegates every
// control operation to a Daemon.
package daemon
