// Package transport defines the frame transport used by every telemetry
// stream: a listening endpoint that serves at most one client at a time and
// exchanges length-prefixed, timestamped frames with it.
//
// Key concepts:
// - FrameServer: listens on one address, owns at most one live connection,
//   and reports connect/disconnect transitions to observers
// - State: Idle → Listening → Connected → Listening/Idle
// - Any send or receive failure ends the connection and fires the
//   disconnect observers exactly once
//
// The tcp subpackage provides the implementation used on the wire.
package transport
