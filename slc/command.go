package slc

import (
	"encoding/binary"
	"fmt"

	"github.com/bdmfab/upycomm/cip"
	"github.com/bdmfab/upycomm/eip"
)

// requesterIDLen, requesterPort and requesterLink are fixed per the
// Execute PCCC requestor ID block used by every PCCC-over-CIP request:
// length 0x07, port 0x09 (backplane), link 0x10, 4-byte originator
// serial, command byte 0x0F.
const (
	requesterIDLen byte = 0x07
	requesterPort  byte = 0x09
	requesterLink  byte = 0x10
	requesterCmd   byte = 0x0F

	pcccWriteMaskAllBits uint16 = 0xFFFF
)

// wireElement folds a FileAddress's Element/SubElement pair into the single
// element number PCCC addresses on the wire. Timer/Counter/Control files
// pack three words per logical element (word 0 = control/status bits, 1 =
// PRE/LEN, 2 = ACC/POS); plain data files have one word per element and
// never carry a sub-element.
func wireElement(addr *FileAddress) uint16 {
	if !IsComplexType(addr.FileType) {
		return addr.Element
	}
	return addr.Element*3 + addr.SubElement
}

// buildReadRequest builds a PCCC Protected Typed Logical Read command
// (CMD=0x0F, FNC=0xA2) wrapped in CIP Execute PCCC service (0x4B).
func buildReadRequest(addr *FileAddress, tns uint16, vendorID uint16, serialNum uint32) ([]byte, error) {
	return buildReadRequestN(addr, addr.ReadSize(), tns, vendorID, serialNum)
}

// buildReadRequestN builds a PCCC typed logical read with an explicit byte
// count, used for bulk reads of several contiguous elements in one round trip.
func buildReadRequestN(addr *FileAddress, byteCount int, tns uint16, vendorID uint16, serialNum uint32) ([]byte, error) {
	pcccCmd := buildPCCCHeader(CmdTypedCommand, tns, FncProtectedTypedLogicalRead)
	pcccCmd = append(pcccCmd, byte(byteCount))
	pcccCmd = append(pcccCmd, byte(addr.FileNumber))
	pcccCmd = append(pcccCmd, addr.FileType)
	pcccCmd = binary.LittleEndian.AppendUint16(pcccCmd, wireElement(addr))

	return wrapInCipExecutePCCC(pcccCmd, vendorID, serialNum)
}

// buildWriteRequest builds a PCCC Protected Typed Logical Write command
// (CMD=0x0F, FNC=0xAB) wrapped in CIP Execute PCCC service (0x4B).
//
// Writes carry a mask word (0xFFFF, "write all bits") immediately before the
// data word; mask-before-data ordering is mandatory.
func buildWriteRequest(addr *FileAddress, data []byte, tns uint16, vendorID uint16, serialNum uint32) ([]byte, error) {
	pcccCmd := buildPCCCHeader(CmdTypedCommand, tns, FncProtectedTypedLogicalWrite)
	pcccCmd = append(pcccCmd, byte(len(data)+2))
	pcccCmd = append(pcccCmd, byte(addr.FileNumber))
	pcccCmd = append(pcccCmd, addr.FileType)
	pcccCmd = binary.LittleEndian.AppendUint16(pcccCmd, wireElement(addr))
	pcccCmd = binary.LittleEndian.AppendUint16(pcccCmd, pcccWriteMaskAllBits)
	pcccCmd = append(pcccCmd, data...)

	return wrapInCipExecutePCCC(pcccCmd, vendorID, serialNum)
}

// buildPCCCHeader creates the common PCCC command header:
//
//	[CMD:1] [STS:1=0x00] [TNS:2 LE] [FNC:1]
func buildPCCCHeader(cmd byte, tns uint16, fnc byte) []byte {
	header := make([]byte, 0, 5)
	header = append(header, cmd)
	header = append(header, 0x00) // STS = 0 in request
	header = binary.LittleEndian.AppendUint16(header, tns)
	header = append(header, fnc)
	return header
}

// appendCompactValue appends v in the PCCC compact field encoding: one byte
// for values below 0xFF, otherwise 0xFF followed by v as a little-endian u16.
// The typed read/write builders in this file do not use it; they send the
// file number as one byte and the element as a u16.
func appendCompactValue(buf []byte, v uint16) []byte {
	if v < 0xFF {
		return append(buf, byte(v))
	}
	buf = append(buf, 0xFF)
	return binary.LittleEndian.AppendUint16(buf, v)
}

// wrapInCipExecutePCCC wraps a PCCC command in a CIP Execute PCCC request.
//
//	[Service:0x4B] [PathSize] [Path: class 0x67, instance 1]
//	[RequesterIDLen:0x07] [Port:0x09] [Link:0x10] [OriginatorSerial:4 LE] [Cmd:0x0F]
//	[PCCC command bytes...]
func wrapInCipExecutePCCC(pcccPayload []byte, vendorID uint16, serialNum uint32) ([]byte, error) {
	_ = vendorID // vendor ID has no place in the requestor ID block; kept for call-site symmetry with Logix

	path, err := cip.EPath().Class(CipClassPCCC).Instance(1).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build PCCC Object path: %w", err)
	}

	req := make([]byte, 0, 2+len(path)+8+len(pcccPayload))
	req = append(req, CipSvcExecutePCCC)
	req = append(req, path.WordLen())
	req = append(req, path...)

	req = append(req, requesterIDLen, requesterPort, requesterLink)
	req = binary.LittleEndian.AppendUint32(req, serialNum)
	req = append(req, requesterCmd)

	req = append(req, pcccPayload...)

	return req, nil
}

// buildDirectCpf wraps a CIP request in a CPF packet for direct messaging (no routing).
func buildDirectCpf(cipRequest []byte) *eip.EipCommonPacket {
	return &eip.EipCommonPacket{
		Items: []eip.EipCommonPacketItem{
			{TypeId: eip.CpfAddressNullId, Length: 0, Data: nil},
			{TypeId: eip.CpfUnconnectedMessageId, Length: uint16(len(cipRequest)), Data: cipRequest},
		},
	}
}

// buildRoutedCpf wraps a CIP request in a CPF packet with routing via Connection Manager.
func buildRoutedCpf(cipRequest []byte, routePath []byte) *eip.EipCommonPacket {
	ucmm := make([]byte, 0, 4+len(cipRequest)+1+2+len(routePath))
	ucmm = append(ucmm, 0x0A) // Priority/time tick
	ucmm = append(ucmm, 0x05) // Timeout ticks
	ucmm = binary.LittleEndian.AppendUint16(ucmm, uint16(len(cipRequest)))
	ucmm = append(ucmm, cipRequest...)
	if len(cipRequest)%2 != 0 {
		ucmm = append(ucmm, 0x00) // Pad to word boundary
	}
	ucmm = append(ucmm, byte(len(routePath)/2)) // Route path size in words
	ucmm = append(ucmm, 0x00)                   // Reserved
	ucmm = append(ucmm, routePath...)

	cmPath, _ := cip.EPath().Class(0x06).Instance(1).Build()
	fullReq := make([]byte, 0, 2+len(cmPath)+len(ucmm))
	fullReq = append(fullReq, 0x52) // Unconnected_Send service
	fullReq = append(fullReq, cmPath.WordLen())
	fullReq = append(fullReq, cmPath...)
	fullReq = append(fullReq, ucmm...)

	return &eip.EipCommonPacket{
		Items: []eip.EipCommonPacketItem{
			{TypeId: eip.CpfAddressNullId, Length: 0, Data: nil},
			{TypeId: eip.CpfUnconnectedMessageId, Length: uint16(len(fullReq)), Data: fullReq},
		},
	}
}

// parseCipExecutePCCCResponse walks the CIP reply (recursing through any
// Unconnected_Send 0xD2 wrapper) and returns the embedded PCCC response bytes.
func parseCipExecutePCCCResponse(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("CIP response too short: %d bytes", len(data))
	}

	replyService := data[0]
	status := data[2]
	addlStatusSize := data[3]

	if replyService == 0xD2 {
		if status != 0 {
			return nil, fmt.Errorf("CIP Unconnected_Send error: status=0x%02X", status)
		}
		embeddedStart := 4 + int(addlStatusSize)*2
		if embeddedStart >= len(data) {
			return nil, fmt.Errorf("UCMM response has no embedded data")
		}
		return parseCipExecutePCCCResponse(data[embeddedStart:])
	}

	if replyService != CipSvcExecutePCCCReply {
		return nil, fmt.Errorf("unexpected CIP reply service: 0x%02X (expected 0x%02X)", replyService, CipSvcExecutePCCCReply)
	}

	if status != 0 {
		if addlStatusSize >= 1 && len(data) >= 6 {
			extStatus := binary.LittleEndian.Uint16(data[4:6])
			return nil, fmt.Errorf("CIP Execute PCCC error: status=0x%02X, extended=0x%04X", status, extStatus)
		}
		return nil, fmt.Errorf("CIP Execute PCCC error: status=0x%02X", status)
	}

	payloadStart := 4 + int(addlStatusSize)*2
	if payloadStart >= len(data) {
		return nil, fmt.Errorf("CIP response has no PCCC payload")
	}

	// Scan forward for the PCCC reply CMD byte (0x4F) rather than trusting a
	// fixed requester ID length, since the requestor ID block itself (port,
	// link, serial, cmd) is echoed back ahead of the PCCC reply.
	payload := data[payloadStart:]
	for i := 0; i+4 <= len(payload); i++ {
		if payload[i] == CmdTypedReply {
			return payload[i:], nil
		}
	}
	return nil, fmt.Errorf("CIP response has no PCCC reply header")
}

// parsePCCCReadResponse parses the PCCC response to a typed read command.
//
//	[CMD:1=0x4F] [DST:1] [SRC:1] [STS:1] [Data...]           (success)
//	[CMD:1=0x4F] [DST:1] [SRC:1] [STS:1 with 0xF0] [EXT_STS:1]  (error)
func parsePCCCReadResponse(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("PCCC response too short: %d bytes", len(data))
	}

	cmd := data[0]
	sts := data[3]

	if cmd != CmdTypedReply {
		return nil, fmt.Errorf("unexpected PCCC reply command: 0x%02X (expected 0x%02X)", cmd, CmdTypedReply)
	}

	if sts != StsSuccess {
		var extSts byte
		if sts&0xF0 == 0xF0 && len(data) >= 5 {
			extSts = data[4]
		}
		return nil, PCCCStatusError(sts, extSts)
	}

	return data[4:], nil
}

// parsePCCCWriteResponse parses the PCCC response to a typed write command.
// The response has no data payload on success, just the 4-byte header.
func parsePCCCWriteResponse(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("PCCC response too short: %d bytes", len(data))
	}

	cmd := data[0]
	sts := data[3]

	if cmd != CmdTypedReply {
		return fmt.Errorf("unexpected PCCC reply command: 0x%02X (expected 0x%02X)", cmd, CmdTypedReply)
	}

	if sts != StsSuccess {
		var extSts byte
		if sts&0xF0 == 0xF0 && len(data) >= 5 {
			extSts = data[4]
		}
		return PCCCStatusError(sts, extSts)
	}

	return nil
}
