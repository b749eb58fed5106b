package eip

import (
	"encoding/binary"
	"fmt"
)

// EipEncap is the 24-byte EtherNet/IP encapsulation header (command, length,
// session handle, status, sender context, options) plus the command-specific
// payload that follows it. Every request and reply on the wire, regardless
// of whether it carries PCCC or CIP underneath, starts with this header.
type EipEncap struct {
	command       uint16
	length        uint16
	sessionHandle uint32
	status        uint32
	context       [8]byte
	options       uint32
	data          []byte
}

// EipCommandData is the interface-handle/timeout wrapper CIP-bearing
// commands (SendRRData, SendUnitData) place ahead of their CPF packet.
type EipCommandData struct {
	interfaceHandle uint32
	timeout         uint16
	packet          []byte
}

// Bytes serializes the header followed by its payload. Callers are
// responsible for keeping length consistent with len(data); ParseEipCommandData
// and the CPF layer do not re-derive it.
func (m *EipEncap) Bytes() []byte {
	buf := []byte{}
	buf = binary.LittleEndian.AppendUint16(buf, m.command)
	buf = binary.LittleEndian.AppendUint16(buf, m.length)
	buf = binary.LittleEndian.AppendUint32(buf, m.sessionHandle)
	buf = binary.LittleEndian.AppendUint32(buf, m.status)
	buf = append(buf, m.context[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, m.options)
	buf = append(buf, m.data...)
	return buf
}

// Bytes serializes the interface handle, timeout, and trailing CPF packet.
func (r *EipCommandData) Bytes() []byte {
	raw := binary.LittleEndian.AppendUint32(nil, r.interfaceHandle)
	raw = binary.LittleEndian.AppendUint16(raw, r.timeout)
	raw = append(raw, r.packet...)
	return raw
}

// ParseEipCommandData decodes the interface-handle/timeout header that
// precedes a CPF packet inside a SendRRData or SendUnitData payload.
func ParseEipCommandData(raw []byte) (*EipCommandData, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("ParseCommandData:  Raw bytes too short: Minimum 8, got %d", len(raw))
	}

	return &EipCommandData{
		interfaceHandle: binary.LittleEndian.Uint32(raw[:4]),
		timeout:         binary.LittleEndian.Uint16(raw[4:6]),
		packet:          raw[6:],
	}, nil
}
