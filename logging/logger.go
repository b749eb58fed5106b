package logging

// Logger is a per-connection protocol logger: TX/RX frames, connect/
// disconnect events, and errors. Unlike the package-level DebugLogger
// singleton, a Logger belongs to one driver instance, so several concurrent
// EipClient/PLC connections each writing through their own Logger don't
// interleave into a shared global file.
//
// A nil *Logger is valid and silently discards everything, so callers can
// leave logging unconfigured without a nil check at every call site.
type Logger struct {
	sink     *FileLogger
	protocol string
}

// NewLogger creates a Logger that appends protocol-tagged lines to path.
func NewLogger(path, protocol string) (*Logger, error) {
	sink, err := NewFileLogger(path)
	if err != nil {
		return nil, err
	}
	return &Logger{sink: sink, protocol: protocol}, nil
}

// TX logs an outbound frame with a hex dump.
func (l *Logger) TX(data []byte) {
	if l == nil {
		return
	}
	l.sink.Log("[%s] TX (%d bytes):\n%s", l.protocol, len(data), hexDump(data))
}

// RX logs an inbound frame with a hex dump.
func (l *Logger) RX(data []byte) {
	if l == nil {
		return
	}
	l.sink.Log("[%s] RX (%d bytes):\n%s", l.protocol, len(data), hexDump(data))
}

// Connect logs a connection event for address. EipClient.Connect calls it
// before dialing, so the entry records the attempt, not its outcome.
func (l *Logger) Connect(address string) {
	if l == nil {
		return
	}
	l.sink.Log("[%s] CONNECT %s", l.protocol, address)
}

// Disconnect logs a disconnection from address.
func (l *Logger) Disconnect(address string) {
	if l == nil {
		return
	}
	l.sink.Log("[%s] DISCONNECT %s", l.protocol, address)
}

// Error logs a protocol-level error. A nil err is a no-op so callers can
// pass the result of a fallible call directly.
func (l *Logger) Error(err error) {
	if l == nil || err == nil {
		return
	}
	l.sink.Log("[%s] ERROR %v", l.protocol, err)
}

// Close releases the underlying file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.sink.Close()
}
