// Package audit relays security events from the engine to a [Sink] without
// blocking the request path.
//
// A [Dispatcher] buffers [Event] values and delivers them from one goroutine.
// When the buffer is full it either drops the event and counts it, or blocks
// the caller, depending on its configuration. The engine and flow functions
// decide which events exist; this package only moves them.
//
// Sinks provided here write to a channel, a JSON writer, slog, or nowhere.
// The package does not import authcore.
package audit
