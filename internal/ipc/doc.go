// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between store models and lightweight wire representations. The server embeds
// the daemon while the client decorates calls with a dial timeout so CLI
// commands fail fast when the daemon is offline.
package ipc
