package driver

import (
	"fmt"

	"github.com/bdmfab/upycomm/logging"
	"github.com/bdmfab/upycomm/slc"
)

// SlcAdapter wraps slc.Client to implement Driver for SLC 500, PLC-5, and
// MicroLogix processors addressed over PCCC-over-CIP.
type SlcAdapter struct {
	client    *slc.Client
	address   string
	plcType   slc.PLCType
	routePath []byte
	logger    *logging.Logger
}

// NewSlcAdapter creates an adapter targeting address for the given PCCC
// processor family. The connection is not established until Connect is
// called.
func NewSlcAdapter(address string, plcType slc.PLCType, routePath []byte) *SlcAdapter {
	return &SlcAdapter{address: address, plcType: plcType, routePath: routePath}
}

// SetLogger attaches a per-connection logger used on the next Connect call.
func (a *SlcAdapter) SetLogger(l *logging.Logger) {
	a.logger = l
}

// Connect establishes the EIP session used to carry PCCC requests.
func (a *SlcAdapter) Connect() error {
	opts := []slc.Option{}
	if len(a.routePath) > 0 {
		opts = append(opts, slc.WithRoutePath(a.routePath))
	}
	if a.logger != nil {
		opts = append(opts, slc.WithLogger(a.logger))
	}
	switch a.plcType {
	case slc.TypePLC5:
		opts = append(opts, slc.WithPLC5())
	case slc.TypeMicroLogix:
		opts = append(opts, slc.WithMicroLogix())
	}

	client, err := slc.Connect(a.address, opts...)
	if err != nil {
		return fmt.Errorf("slc connect: %w", err)
	}
	a.client = client
	return nil
}

// Close releases the connection.
func (a *SlcAdapter) Close() error {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	return nil
}

// IsConnected returns true if the EIP session is active.
func (a *SlcAdapter) IsConnected() bool {
	return a.client != nil && a.client.IsConnected()
}

// Read reads one or more data table addresses (e.g. "N7:0", "F8:5").
func (a *SlcAdapter) Read(addresses ...string) ([]*TagValue, error) {
	if a.client == nil {
		return nil, fmt.Errorf("slc: not connected")
	}

	values, err := a.client.Read(addresses...)
	if err != nil {
		return nil, err
	}

	result := make([]*TagValue, len(values))
	for i, v := range values {
		if v == nil {
			result[i] = &TagValue{Name: addresses[i], Error: fmt.Errorf("nil response")}
			continue
		}
		result[i] = &TagValue{
			Name:  v.Name,
			Value: v.Value,
			Bytes: v.Bytes,
			Error: v.Error,
		}
	}
	return result, nil
}

// Write writes a value to a data table address.
func (a *SlcAdapter) Write(address string, value interface{}) error {
	if a.client == nil {
		return fmt.Errorf("slc: not connected")
	}
	return a.client.Write(address, value)
}

// Client returns the underlying slc.Client for operations outside the
// common Driver contract (e.g. GetIdentity, ConnectionMode, ReadBit/WriteBit).
func (a *SlcAdapter) Client() *slc.Client {
	return a.client
}
