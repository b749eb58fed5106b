package cip

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestMultipleServiceRequestResponseRoundTrip(t *testing.T) {
	pathA, _ := EPath().Symbol("N7").Build()
	pathB, _ := EPath().Symbol("F8").Build()

	body, err := BuildMultipleServiceRequest([]MultiServiceRequest{
		{Service: 0x4C, Path: pathA, Data: []byte{0x01, 0x00}},
		{Service: 0x4C, Path: pathB, Data: []byte{0x01, 0x00}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if binary.LittleEndian.Uint16(body[:2]) != 2 {
		t.Fatalf("service count = %d, want 2", binary.LittleEndian.Uint16(body[:2]))
	}

	// Hand-build a matching two-reply response using the same offset scheme
	// BuildMultipleServiceRequest uses, to confirm the parser honors offsets
	// rather than assuming fixed-size replies.
	reply0 := []byte{0xCC, 0x00, 0x00, 0x00, 0xC3, 0x00, 0x2A, 0x00, 0x00, 0x00}
	reply1 := []byte{0xCC, 0x00, 0x00, 0x00, 0xCA, 0x00, 0x00, 0x00, 0x80, 0x3F}

	headerSize := 2 + 2*2
	off0 := uint16(headerSize)
	off1 := off0 + uint16(len(reply0))

	resp := binary.LittleEndian.AppendUint16(nil, 2)
	resp = binary.LittleEndian.AppendUint16(resp, off0)
	resp = binary.LittleEndian.AppendUint16(resp, off1)
	resp = append(resp, reply0...)
	resp = append(resp, reply1...)

	parsed, err := ParseMultipleServiceResponse(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("got %d responses, want 2", len(parsed))
	}
	if parsed[0].Status != 0x00 || !bytes.Equal(parsed[0].Data, []byte{0xC3, 0x00, 0x2A, 0x00, 0x00, 0x00}) {
		t.Errorf("response 0 = %+v", parsed[0])
	}
	if parsed[1].Status != 0x00 || !bytes.Equal(parsed[1].Data, []byte{0xCA, 0x00, 0x00, 0x00, 0x80, 0x3F}) {
		t.Errorf("response 1 = %+v", parsed[1])
	}
}

func TestBuildMultipleServiceRequest_TooMany(t *testing.T) {
	reqs := make([]MultiServiceRequest, 201)
	for i := range reqs {
		reqs[i] = MultiServiceRequest{Service: 0x4C, Path: EPath_t{0x91, 0x01, 'A', 0x00}}
	}
	if _, err := BuildMultipleServiceRequest(reqs); err == nil {
		t.Fatal("expected error for 201 requests, got nil")
	}
}

func TestParseMultipleServiceResponse_Empty(t *testing.T) {
	resp, err := ParseMultipleServiceResponse([]byte{0x00, 0x00})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil for zero services, got %v", resp)
	}
}
