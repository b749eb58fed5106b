package cip

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"
)

// CIP Connection Manager services
const (
	SvcForwardOpen     byte = 0x54 // Standard Forward Open (16-bit params, ≤511 bytes)
	SvcForwardClose    byte = 0x4E
	SvcUnconnectedSend byte = 0x52

	// Connection Manager class/instance
	ClassConnectionManager byte = 0x06
	InstanceConnManager    byte = 0x01
)

// Connection represents an established CIP connection.
type Connection struct {
	OTConnID     uint32 // Originator -> Target connection ID
	TOConnID     uint32 // Target -> Originator connection ID
	SerialNumber uint16 // Connection serial number (for Forward Close)
	VendorID     uint16 // Originator vendor ID
	OrigSerial   uint32 // Originator serial number

	seq uint32 // Atomic sequence counter (low 16 bits used)
}

// NextSequence returns the next sequence number for connected messaging.
func (c *Connection) NextSequence() uint16 {
	return uint16(atomic.AddUint32(&c.seq, 1))
}

// WrapConnected prefixes a 16-bit sequence number to the CIP payload.
func (c *Connection) WrapConnected(cipPayload []byte) []byte {
	s := c.NextSequence()
	out := make([]byte, 2+len(cipPayload))
	binary.LittleEndian.PutUint16(out[0:2], s)
	copy(out[2:], cipPayload)
	return out
}

// UnwrapConnected extracts the sequence and CIP response payload.
func (c *Connection) UnwrapConnected(raw []byte) (seq uint16, cipPayload []byte, err error) {
	if len(raw) < 2 {
		return 0, nil, fmt.Errorf("connected data too short: %d bytes", len(raw))
	}
	seq = binary.LittleEndian.Uint16(raw[0:2])
	return seq, raw[2:], nil
}

// ForwardOpenConfig contains parameters for establishing a CIP connection.
type ForwardOpenConfig struct {
	// Timing parameters
	OTConnectionTimeout time.Duration // Originator->Target timeout
	TOConnectionTimeout time.Duration // Target->Originator timeout

	// Connection parameters
	OTConnectionSize uint16 // Max packet size O->T (default 504; not encoded, the request sends ForwardOpenConnParams)
	TOConnectionSize uint16 // Max packet size T->O (default 504; not encoded, the request sends ForwardOpenConnParams)

	// Connection path to target (e.g., backplane port 1, slot 0)
	ConnectionPath []byte

	// Vendor/serial for connection tracking
	VendorID         uint16
	OriginatorSerial uint32

	// OTConnectionID is the originator->target connection ID to request.
	// Zero means DefaultOTConnectionID.
	OTConnectionID uint32
}

// Connection serial/vendor/originator-serial triplet and RPI values are
// fixed rather than per-instance: 0x1971/0x1009/0x19711009, with both
// RPIs at 200,000 microseconds and connection parameters 0x43F4.
const (
	ForwardOpenConnectionSerial uint16 = 0x1971
	ForwardOpenVendorID         uint16 = 0x1009
	ForwardOpenOriginatorSerial uint32 = 0x19711009
	ForwardOpenRPI              uint32 = 200000
	ForwardOpenConnParams       uint16 = 0x43F4

	// DefaultOTConnectionID is the originator->target connection ID used
	// unless a caller supplies its own via ForwardOpenConfig.OTConnectionID.
	// Hard-coding it means concurrent drivers against the same PLC can
	// collide; callers that share a PLC across multiple driver instances
	// should set a distinct value per instance.
	DefaultOTConnectionID uint32 = 0xDDCCBBAA
)

// DefaultForwardOpenConfig returns a config with sensible defaults for Logix.
func DefaultForwardOpenConfig() ForwardOpenConfig {
	return ForwardOpenConfig{
		OTConnectionTimeout: 8 * time.Second,
		TOConnectionTimeout: 8 * time.Second,
		OTConnectionSize:    504,
		TOConnectionSize:    504,
		VendorID:            ForwardOpenVendorID,
		OriginatorSerial:    ForwardOpenOriginatorSerial,
		OTConnectionID:      DefaultOTConnectionID,
	}
}

// BuildForwardOpenRequest builds the standard Forward Open (0x54) CIP request
// with 16-bit connection parameters. Returns the request data to be wrapped
// in CPF and sent via SendRRData, along with the connection serial number
// used (needed later to build the matching Forward Close).
func BuildForwardOpenRequest(cfg ForwardOpenConfig) ([]byte, uint16, error) {
	otConnID := cfg.OTConnectionID
	if otConnID == 0 {
		otConnID = DefaultOTConnectionID
	}

	data := make([]byte, 0, 40+len(cfg.ConnectionPath))

	data = append(data, SvcForwardOpen)
	data = append(data, 0x02)
	data = append(data, 0x20, 0x06) // Class segment: Connection Manager
	data = append(data, 0x24, 0x01) // Instance segment: instance 1

	data = append(data, 0x0A) // Priority/tick time
	data = append(data, 0xF9) // Timeout ticks

	data = binary.LittleEndian.AppendUint32(data, otConnID) // O->T connection ID
	data = binary.LittleEndian.AppendUint32(data, 0)        // T->O connection ID, filled in by the target

	data = binary.LittleEndian.AppendUint16(data, ForwardOpenConnectionSerial)
	data = binary.LittleEndian.AppendUint16(data, ForwardOpenVendorID)
	data = binary.LittleEndian.AppendUint32(data, ForwardOpenOriginatorSerial)

	data = binary.LittleEndian.AppendUint32(data, 0) // Timeout multiplier + 3 reserved bytes

	data = binary.LittleEndian.AppendUint32(data, ForwardOpenRPI)
	data = binary.LittleEndian.AppendUint16(data, ForwardOpenConnParams)
	data = binary.LittleEndian.AppendUint32(data, ForwardOpenRPI)
	data = binary.LittleEndian.AppendUint16(data, ForwardOpenConnParams)

	data = append(data, 0xA3) // Transport type/trigger

	pathSizeWords := byte(len(cfg.ConnectionPath) / 2)
	data = append(data, pathSizeWords)
	data = append(data, cfg.ConnectionPath...)

	return data, ForwardOpenConnectionSerial, nil
}

// ForwardOpenResponse contains the parsed response from Forward Open.
type ForwardOpenResponse struct {
	OTConnectionID   uint32
	TOConnectionID   uint32
	ConnectionSerial uint16
	VendorID         uint16
	OriginatorSerial uint32
	OTRPI            uint32
	TORPI            uint32
}

// ParseForwardOpenResponse parses a Forward Open response.
// Input should be the CIP response data (after service/status header).
func ParseForwardOpenResponse(data []byte) (*ForwardOpenResponse, error) {
	if len(data) < 26 {
		return nil, fmt.Errorf("Forward Open response too short: %d bytes", len(data))
	}

	return &ForwardOpenResponse{
		OTConnectionID:   binary.LittleEndian.Uint32(data[0:4]),
		TOConnectionID:   binary.LittleEndian.Uint32(data[4:8]),
		ConnectionSerial: binary.LittleEndian.Uint16(data[8:10]),
		VendorID:         binary.LittleEndian.Uint16(data[10:12]),
		OriginatorSerial: binary.LittleEndian.Uint32(data[12:16]),
		OTRPI:            binary.LittleEndian.Uint32(data[16:20]),
		TORPI:            binary.LittleEndian.Uint32(data[20:24]),
	}, nil
}

// BuildForwardCloseRequest builds a Forward Close (0x4E) CIP request using
// the same connection serial/vendor/originator-serial triplet the matching
// Forward Open used.
func BuildForwardCloseRequest(conn *Connection, connectionPath []byte) ([]byte, error) {
	if conn == nil {
		return nil, fmt.Errorf("ForwardClose: nil connection")
	}

	// Build the path to Connection Manager
	cmPath, _ := EPath().Class(ClassConnectionManager).Instance(InstanceConnManager).Build()

	// Build Forward Close data
	data := make([]byte, 0, 16+len(connectionPath))

	// Priority/Tick time (1 byte)
	data = append(data, 0x0A)

	// Timeout ticks (1 byte)
	data = append(data, 0xF9)

	// Connection Serial Number (2 bytes)
	data = binary.LittleEndian.AppendUint16(data, ForwardOpenConnectionSerial)

	// Originator Vendor ID (2 bytes)
	data = binary.LittleEndian.AppendUint16(data, ForwardOpenVendorID)

	// Originator Serial Number (4 bytes)
	data = binary.LittleEndian.AppendUint32(data, ForwardOpenOriginatorSerial)

	// Connection Path Size (1 byte, in words)
	pathSizeWords := byte(len(connectionPath) / 2)
	if len(connectionPath)%2 != 0 {
		pathSizeWords++
	}
	data = append(data, pathSizeWords)

	// Reserved (1 byte)
	data = append(data, 0x00)

	// Connection Path
	data = append(data, connectionPath...)
	if len(connectionPath)%2 != 0 {
		data = append(data, 0x00)
	}

	// Build the complete CIP request
	reqData := make([]byte, 0, 2+len(cmPath)+len(data))
	reqData = append(reqData, SvcForwardClose)
	reqData = append(reqData, cmPath.WordLen())
	reqData = append(reqData, cmPath...)
	reqData = append(reqData, data...)

	return reqData, nil
}

