package logix

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bdmfab/upycomm/cip"
	"github.com/bdmfab/upycomm/eip"
)

func TestParseReadTagResponseEx_Success(t *testing.T) {
	data := []byte{SvcReadTag | 0x80, 0x00, StatusSuccess, 0x00, 0xC3, 0x00, 0x2A, 0x00}
	tag, partial, err := parseReadTagResponseEx(data, "N7:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if partial {
		t.Error("expected partial=false for StatusSuccess")
	}
	if tag.DataType != TypeINT {
		t.Errorf("DataType = %04X, want %04X", tag.DataType, TypeINT)
	}
	if !bytes.Equal(tag.Bytes, []byte{0x2A, 0x00}) {
		t.Errorf("Bytes = %X, want 2A00", tag.Bytes)
	}
}

func TestParseReadTagResponseEx_PartialTransfer(t *testing.T) {
	data := []byte{SvcReadTag | 0x80, 0x00, StatusPartialTransfer, 0x00, 0xC4, 0x00, 0x01, 0x00}
	_, partial, err := parseReadTagResponseEx(data, "MyArray")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !partial {
		t.Error("expected partial=true for StatusPartialTransfer")
	}
}

func TestParseReadTagResponseEx_WrongReplyService(t *testing.T) {
	data := []byte{SvcWriteTag | 0x80, 0x00, StatusSuccess, 0x00}
	if _, _, err := parseReadTagResponseEx(data, "N7:0"); err == nil {
		t.Fatal("expected error for mismatched reply service, got nil")
	}
}

func TestUnwrapUCMMResponse(t *testing.T) {
	embedded := []byte{SvcReadTag | 0x80, 0x00, StatusSuccess, 0x00, 0xC3, 0x00, 0x01, 0x00}
	wrapped := append([]byte{0xD2, 0x00, StatusSuccess, 0x00}, embedded...)

	got, err := unwrapUCMMResponse(wrapped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, embedded) {
		t.Errorf("unwrapped = %X, want %X", got, embedded)
	}
}

func TestUnwrapUCMMResponse_ErrorStatus(t *testing.T) {
	wrapped := []byte{0xD2, 0x00, StatusObjectNotExist, 0x00}
	if _, err := unwrapUCMMResponse(wrapped); err == nil {
		t.Fatal("expected error for nonzero UCMM status, got nil")
	}
}

func TestParseMultipleServiceReply(t *testing.T) {
	pathA, _ := cip.EPath().Symbol("Tag1").Build()
	pathB, _ := cip.EPath().Symbol("Tag2").Build()
	body, err := cip.BuildMultipleServiceRequest([]cip.MultiServiceRequest{
		{Service: SvcReadTag, Path: pathA, Data: []byte{0x01, 0x00}},
		{Service: SvcReadTag, Path: pathB, Data: []byte{0x01, 0x00}},
	})
	if err != nil {
		t.Fatalf("unexpected error building request: %v", err)
	}
	_ = body // body shape is exercised via cip's own tests; here we drive a reply.

	reply0 := []byte{SvcReadTag | 0x80, 0x00, StatusSuccess, 0x00, 0xC4, 0x00, 0x07, 0x00, 0x00, 0x00}
	reply1 := []byte{SvcReadTag | 0x80, 0x00, StatusObjectNotExist, 0x00}

	headerSize := 2 + 2*2
	off0 := uint16(headerSize)
	off1 := off0 + uint16(len(reply0))
	msBody := binary.LittleEndian.AppendUint16(nil, 2)
	msBody = binary.LittleEndian.AppendUint16(msBody, off0)
	msBody = binary.LittleEndian.AppendUint16(msBody, off1)
	msBody = append(msBody, reply0...)
	msBody = append(msBody, reply1...)

	mrReply := append([]byte{cip.SvcMultipleServicePacket | 0x80, 0x00, StatusSuccess, 0x00}, msBody...)

	responses, err := parseMultipleServiceReply(mrReply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	if responses[0].Status != StatusSuccess {
		t.Errorf("response 0 status = %02X, want success", responses[0].Status)
	}
	if responses[1].Status != StatusObjectNotExist {
		t.Errorf("response 1 status = %02X, want StatusObjectNotExist", responses[1].Status)
	}
}

func TestParseMultipleServiceReply_OuterError(t *testing.T) {
	mrReply := []byte{cip.SvcMultipleServicePacket | 0x80, 0x00, StatusPathUnknown, 0x00}
	if _, err := parseMultipleServiceReply(mrReply); err == nil {
		t.Fatal("expected error for nonzero outer status, got nil")
	}
}

func TestParseWriteTagResponse_Success(t *testing.T) {
	data := []byte{SvcWriteTag | 0x80, 0x00, StatusSuccess, 0x00}
	if err := parseWriteTagResponse(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseWriteTagResponse_ErrorStatus(t *testing.T) {
	data := []byte{SvcWriteTag | 0x80, 0x00, StatusObjectNotExist, 0x00}
	if err := parseWriteTagResponse(data); err == nil {
		t.Fatal("expected error for nonzero status, got nil")
	}
}

func TestParseWriteTagResponse_WrongReplyService(t *testing.T) {
	data := []byte{SvcReadTag | 0x80, 0x00, StatusSuccess, 0x00}
	if err := parseWriteTagResponse(data); err == nil {
		t.Fatal("expected error for mismatched reply service, got nil")
	}
}

func TestBuildDirectCpf(t *testing.T) {
	req := []byte{SvcReadTag, 0x02, 0x91, 0x02, 'N', '7'}
	cpf := buildDirectCpf(req)
	if len(cpf.Items) != 2 {
		t.Fatalf("got %d CPF items, want 2", len(cpf.Items))
	}
	if cpf.Items[0].TypeId != eip.CpfAddressNullId || cpf.Items[0].Length != 0 {
		t.Errorf("item 0 = %+v, want null address item", cpf.Items[0])
	}
	if cpf.Items[1].TypeId != eip.CpfUnconnectedMessageId {
		t.Errorf("item 1 type = %04X, want CpfUnconnectedMessageId", cpf.Items[1].TypeId)
	}
	if !bytes.Equal(cpf.Items[1].Data, req) {
		t.Errorf("item 1 data = %X, want %X (unmodified passthrough)", cpf.Items[1].Data, req)
	}
}

func TestBuildRoutedCpf_WrapsUnconnectedSend(t *testing.T) {
	req := []byte{SvcReadTag, 0x02, 0x91, 0x02, 'N', '7'}
	routePath := []byte{0x01, 0x00} // backplane port 1, slot 0

	cpf := buildRoutedCpf(req, routePath)
	if len(cpf.Items) != 2 {
		t.Fatalf("got %d CPF items, want 2", len(cpf.Items))
	}

	fullReq := cpf.Items[1].Data
	if fullReq[0] != 0x52 {
		t.Fatalf("service byte = %02X, want 0x52 (Unconnected_Send)", fullReq[0])
	}
	// Connection Manager path is [Class(1 byte form), 0x06, Instance(1 byte form), 0x01] = 4 bytes -> 2 words.
	pathWordLen := fullReq[1]
	cmPath := fullReq[2 : 2+int(pathWordLen)*2]
	if !bytes.Equal(cmPath, []byte{0x20, 0x06, 0x24, 0x01}) {
		t.Errorf("Connection Manager path = %X, want 20 06 24 01", cmPath)
	}

	ucmm := fullReq[2+int(pathWordLen)*2:]
	if ucmm[0] != 0x0A || ucmm[1] != 0x05 {
		t.Errorf("priority/timeout ticks = %02X %02X, want 0A 05", ucmm[0], ucmm[1])
	}
	msgSize := binary.LittleEndian.Uint16(ucmm[2:4])
	if int(msgSize) != len(req) {
		t.Errorf("embedded message size = %d, want %d", msgSize, len(req))
	}
	embedded := ucmm[4 : 4+msgSize]
	if !bytes.Equal(embedded, req) {
		t.Errorf("embedded message = %X, want %X", embedded, req)
	}

	afterMsg := ucmm[4+msgSize:]
	if afterMsg[0] != byte(len(routePath)/2) {
		t.Errorf("route path word count = %d, want %d", afterMsg[0], len(routePath)/2)
	}
	routePathBytes := afterMsg[2:]
	if !bytes.Equal(routePathBytes, routePath) {
		t.Errorf("route path bytes = %X, want %X", routePathBytes, routePath)
	}
}

func TestBuildRoutedCpf_OddLengthRequestIsPadded(t *testing.T) {
	req := []byte{SvcReadTag, 0x02, 0x91, 0x02, 'N'} // odd length, 5 bytes
	routePath := []byte{0x01, 0x00}

	cpf := buildRoutedCpf(req, routePath)
	fullReq := cpf.Items[1].Data
	pathWordLen := fullReq[1]
	ucmm := fullReq[2+int(pathWordLen)*2:]
	msgSize := binary.LittleEndian.Uint16(ucmm[2:4])
	padByte := ucmm[4+msgSize]
	if padByte != 0x00 {
		t.Errorf("expected pad byte 0x00 after odd-length message, got %02X", padByte)
	}
	routePathSizeByte := ucmm[4+msgSize+1]
	if routePathSizeByte != byte(len(routePath)/2) {
		t.Errorf("route path word count = %d, want %d", routePathSizeByte, len(routePath)/2)
	}
}
