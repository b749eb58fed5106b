package logix

import (
	"encoding/binary"
	"fmt"

	"github.com/bdmfab/upycomm/cip"
	"github.com/bdmfab/upycomm/eip"
	"github.com/bdmfab/upycomm/logging"
)

var verboseLogging bool // Controls detailed read/write logs

// SetVerboseLogging enables or disables detailed per-operation logs.
func SetVerboseLogging(verbose bool) {
	verboseLogging = verbose
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("Logix", format, args...)
}

func debugLogVerbose(format string, args ...interface{}) {
	if verboseLogging {
		logging.DebugLog("Logix", format, args...)
	}
}

// ConnectionSize is the connection size recorded after a successful Forward
// Open. It is copied into the Forward Open config's size fields, which
// cip.BuildForwardOpenRequest does not encode: the request itself carries
// cip.ForwardOpenConnParams (0x43F4, a 500-byte size).
const ConnectionSize = 504

// OpenConnection establishes a CIP connection using Forward Open, moving the
// driver from the SessionOpen state to Connected. Required before any
// connected-messaging operation (ReadTagConnected, Keepalive).
func (p *PLC) OpenConnection() error {
	if p == nil || p.Connection == nil {
		return fmt.Errorf("OpenConnection: nil plc or connection")
	}
	if p.cipConn != nil {
		return fmt.Errorf("OpenConnection: connection already open")
	}

	connPath := p.buildConnectionPath()

	cfg := cip.DefaultForwardOpenConfig()
	cfg.ConnectionPath = connPath
	cfg.OTConnectionSize = ConnectionSize
	cfg.TOConnectionSize = ConnectionSize

	reqData, connSerial, err := cip.BuildForwardOpenRequest(cfg)
	if err != nil {
		return fmt.Errorf("OpenConnection: %w", err)
	}

	// Forward Open is sent unconnected; the connection path inside the
	// request carries the route to the target.
	cpf := &eip.EipCommonPacket{
		Items: []eip.EipCommonPacketItem{
			{TypeId: eip.CpfAddressNullId, Length: 0, Data: nil},
			{TypeId: eip.CpfUnconnectedMessageId, Length: uint16(len(reqData)), Data: reqData},
		},
	}

	resp, err := p.Connection.SendRRData(*cpf)
	if err != nil {
		return fmt.Errorf("OpenConnection: SendRRData failed: %w", err)
	}
	if len(resp.Items) < 2 {
		return fmt.Errorf("OpenConnection: expected 2 CPF items, got %d", len(resp.Items))
	}

	cipResp := resp.Items[1].Data
	if len(cipResp) < 4 {
		return fmt.Errorf("OpenConnection: response too short")
	}

	replyService := cipResp[0]
	status := cipResp[2]
	addlStatusSize := cipResp[3]

	if replyService != (cip.SvcForwardOpen | 0x80) {
		return fmt.Errorf("OpenConnection: unexpected reply service: 0x%02X", replyService)
	}
	if status != 0x00 {
		extStatus := uint16(0)
		if addlStatusSize >= 1 && len(cipResp) >= 6 {
			extStatus = binary.LittleEndian.Uint16(cipResp[4:6])
		}
		return fmt.Errorf("OpenConnection: Forward Open failed - status=0x%02X, extStatus=0x%04X, path=% X",
			status, extStatus, connPath)
	}

	dataStart := 4 + int(addlStatusSize)*2
	if dataStart >= len(cipResp) {
		return fmt.Errorf("OpenConnection: response missing data")
	}

	foResp, err := cip.ParseForwardOpenResponse(cipResp[dataStart:])
	if err != nil {
		return fmt.Errorf("OpenConnection: %w", err)
	}

	p.cipConn = &cip.Connection{
		OTConnID:     foResp.OTConnectionID,
		TOConnID:     foResp.TOConnectionID,
		SerialNumber: connSerial,
		VendorID:     cfg.VendorID,
		OrigSerial:   cfg.OriginatorSerial,
	}
	p.connPath = connPath
	p.connSize = ConnectionSize

	debugLog("OpenConnection: OT=0x%08X TO=0x%08X", foResp.OTConnectionID, foResp.TOConnectionID)
	return nil
}

// CloseConnection tears down the CIP connection using Forward Close.
func (p *PLC) CloseConnection() error {
	if p == nil || p.Connection == nil {
		return nil
	}
	if p.cipConn == nil {
		return nil // Not connected
	}

	reqData, err := cip.BuildForwardCloseRequest(p.cipConn, p.connPath)
	if err != nil {
		p.cipConn = nil
		return fmt.Errorf("CloseConnection: %w", err)
	}

	cpf := &eip.EipCommonPacket{
		Items: []eip.EipCommonPacketItem{
			{TypeId: eip.CpfAddressNullId, Length: 0, Data: nil},
			{TypeId: eip.CpfUnconnectedMessageId, Length: uint16(len(reqData)), Data: reqData},
		},
	}

	// Best-effort close: a failure here shouldn't block tearing down the session.
	_, _ = p.Connection.SendRRData(*cpf)

	p.cipConn = nil
	p.connPath = nil
	p.connSize = 0
	return nil
}

// IsConnected reports whether the CIP connection (if opened) or, failing
// that, the underlying EIP/TCP session, is active.
func (p *PLC) IsConnected() bool {
	if p == nil {
		return false
	}
	if p.cipConn != nil {
		return true
	}
	return p.Connection != nil && p.Connection.IsConnected()
}

// ReadTagConnected reads a tag using connected messaging. Requires an open
// connection (call OpenConnection first).
func (p *PLC) ReadTagConnected(tagName string) (*Tag, error) {
	return p.ReadTagCountConnected(tagName, 1)
}

// ReadTagCountConnected reads multiple elements using connected messaging.
func (p *PLC) ReadTagCountConnected(tagName string, count uint16) (*Tag, error) {
	if p.cipConn == nil {
		return nil, fmt.Errorf("ReadTagConnected: no connection (call OpenConnection first)")
	}

	path, err := cip.EPath().Symbol(tagName).Build()
	if err != nil {
		return nil, fmt.Errorf("ReadTagConnected: %w", err)
	}

	reqData := make([]byte, 0, 2+len(path)+2)
	reqData = append(reqData, SvcReadTag)
	reqData = append(reqData, path.WordLen())
	reqData = append(reqData, path...)
	reqData = binary.LittleEndian.AppendUint16(reqData, count)

	connData := p.cipConn.WrapConnected(reqData)
	cpf := p.buildConnectedCpf(connData)

	resp, err := p.Connection.SendUnitDataTransaction(*cpf)
	if err != nil {
		return nil, fmt.Errorf("ReadTagConnected: %w", err)
	}
	if len(resp.Items) < 2 {
		return nil, fmt.Errorf("ReadTagConnected: expected 2 CPF items")
	}

	_, cipResp, err := p.cipConn.UnwrapConnected(resp.Items[1].Data)
	if err != nil {
		return nil, fmt.Errorf("ReadTagConnected: %w", err)
	}

	tag, _, err := parseReadTagResponseEx(cipResp, tagName)
	if err != nil {
		return nil, fmt.Errorf("ReadTagConnected: %w", err)
	}
	return tag, nil
}

// buildConnectionPath builds the connection path carried inside Forward
// Open: the route to the target CPU followed by the Message Router class
// (0x02) / instance (0x01) segment.
func (p *PLC) buildConnectionPath() []byte {
	path := make([]byte, 0, 6)

	if len(p.RoutePath) > 0 {
		path = append(path, p.RoutePath...)
	} else {
		path = append(path, 0x01, p.Slot) // Backplane port 1, CPU slot
	}

	path = append(path, 0x20, 0x02, 0x24, 0x01)
	return path
}

// Keepalive sends a NOP via connected messaging to keep the Forward Open
// connection alive. Returns nil immediately if not using connected messaging.
func (p *PLC) Keepalive() error {
	if p.cipConn == nil {
		return nil
	}

	reqData := []byte{
		SvcNop,     // Service code 0x17
		0x02,       // Path size (2 words)
		0x20, 0x01, // Class segment: class 1 (Identity)
		0x24, 0x01, // Instance segment: instance 1
	}

	connData := p.cipConn.WrapConnected(reqData)
	cpf := p.buildConnectedCpf(connData)

	resp, err := p.Connection.SendUnitDataTransaction(*cpf)
	if err != nil {
		return fmt.Errorf("Keepalive: %w", err)
	}
	if len(resp.Items) < 2 {
		return fmt.Errorf("Keepalive: expected 2 CPF items, got %d", len(resp.Items))
	}

	_, cipResp, err := p.cipConn.UnwrapConnected(resp.Items[1].Data)
	if err != nil {
		return fmt.Errorf("Keepalive: %w", err)
	}

	if len(cipResp) >= 3 {
		status := cipResp[2]
		if status != 0x00 && status != StatusServiceNotSupport {
			return fmt.Errorf("Keepalive: CIP status 0x%02X", status)
		}
	}
	return nil
}

// buildConnectedCpf builds a CPF packet for connected messaging: a
// Connected Address item carrying the O->T connection ID, plus the
// sequenced Connected Data item.
func (p *PLC) buildConnectedCpf(data []byte) *eip.EipCommonPacket {
	return &eip.EipCommonPacket{
		Items: []eip.EipCommonPacketItem{
			{
				TypeId: eip.CpfAddressConnectionId,
				Length: 4,
				Data:   binary.LittleEndian.AppendUint32(nil, p.cipConn.OTConnID),
			},
			{
				TypeId: eip.CpfConnectedTransportPacketId,
				Length: uint16(len(data)),
				Data:   data,
			},
		},
	}
}
