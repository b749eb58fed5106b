package driver

import (
	"fmt"

	"github.com/bdmfab/upycomm/logging"
	"github.com/bdmfab/upycomm/logix"
)

// LogixAdapter wraps logix.Client to implement Driver for ControlLogix,
// CompactLogix, and Micro800 controllers.
type LogixAdapter struct {
	client    *logix.Client
	address   string
	slot      byte
	routePath []byte
	logger    *logging.Logger
}

// NewLogixAdapter creates an adapter targeting address. The connection is
// not established until Connect is called.
func NewLogixAdapter(address string, slot byte, routePath []byte) *LogixAdapter {
	return &LogixAdapter{address: address, slot: slot, routePath: routePath}
}

// SetLogger attaches a per-connection logger used on the next Connect call.
func (a *LogixAdapter) SetLogger(l *logging.Logger) {
	a.logger = l
}

// Connect establishes the EIP session and, where possible, a CIP connection
// (Forward Open) to the controller.
func (a *LogixAdapter) Connect() error {
	opts := []logix.Option{}
	if len(a.routePath) > 0 {
		opts = append(opts, logix.WithRoutePath(a.routePath))
	} else if a.slot > 0 {
		opts = append(opts, logix.WithSlot(a.slot))
	}
	if a.logger != nil {
		opts = append(opts, logix.WithLogger(a.logger))
	}

	client, err := logix.Connect(a.address, opts...)
	if err != nil {
		return fmt.Errorf("logix connect: %w", err)
	}
	a.client = client
	return nil
}

// Close releases the connection.
func (a *LogixAdapter) Close() error {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	return nil
}

// IsConnected returns true if connected to the controller.
func (a *LogixAdapter) IsConnected() bool {
	return a.client != nil && a.client.IsConnected()
}

// Read reads one or more tags by name.
func (a *LogixAdapter) Read(names ...string) ([]*TagValue, error) {
	if a.client == nil {
		return nil, fmt.Errorf("logix: not connected")
	}

	values, err := a.client.Read(names...)
	if err != nil {
		return nil, err
	}

	result := make([]*TagValue, len(values))
	for i, v := range values {
		if v == nil {
			result[i] = &TagValue{Name: names[i], Error: fmt.Errorf("nil response")}
			continue
		}
		result[i] = &TagValue{
			Name:  v.Name,
			Value: v.GoValue(),
			Bytes: v.Bytes,
			Error: v.Error,
		}
	}
	return result, nil
}

// Write writes a value to a tag, converting from a Go native type.
func (a *LogixAdapter) Write(tag string, value interface{}) error {
	if a.client == nil {
		return fmt.Errorf("logix: not connected")
	}
	return a.client.Write(tag, value)
}

// Client returns the underlying logix.Client for operations outside the
// common Driver contract (e.g. WriteAutoDetect, ConnectionMode).
func (a *LogixAdapter) Client() *logix.Client {
	return a.client
}
