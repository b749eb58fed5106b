package slc

import (
	"bytes"
	"testing"
)

func TestParsePCCCReadResponse(t *testing.T) {
	// [CMD=0x4F][DST=0x00][SRC=0x00][STS=0x00][data...]
	data := []byte{CmdTypedReply, 0x00, 0x00, StsSuccess, 0xFF, 0xFF}
	got, err := parsePCCCReadResponse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte{0xFF, 0xFF}) {
		t.Errorf("got %X, want FFFF", got)
	}
}

// A PCCC error reply must not be silently accepted as success. STS sits at
// index 3 (after CMD, DST, SRC), not index 1 — a reader that checked index 1
// would see the DST byte (always 0x00) and treat every error as success.
func TestParsePCCCReadResponse_ErrorStatus(t *testing.T) {
	data := []byte{CmdTypedReply, 0x00, 0x00, StsIllegalCommand, 0x12, 0x34}
	_, err := parsePCCCReadResponse(data)
	if err == nil {
		t.Fatal("expected error for STS=0x10, got nil")
	}
}

func TestParsePCCCReadResponse_ExtendedStatus(t *testing.T) {
	// STS with the 0xF0 flag carries one extended-status byte immediately
	// after STS, ahead of any data.
	data := []byte{CmdTypedReply, 0x00, 0x00, StsExtStatusFlag | 0x00, ExtStsElementOutOfRange}
	_, err := parsePCCCReadResponse(data)
	if err == nil {
		t.Fatal("expected error for extended status, got nil")
	}
}

func TestParsePCCCWriteResponse(t *testing.T) {
	data := []byte{CmdTypedReply, 0x00, 0x00, StsSuccess}
	if err := parsePCCCWriteResponse(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	errData := []byte{CmdTypedReply, 0x00, 0x00, StsIllegalCommand}
	if err := parsePCCCWriteResponse(errData); err == nil {
		t.Fatal("expected error for STS=0x10, got nil")
	}
}

func TestParseCipExecutePCCCResponse_DirectReply(t *testing.T) {
	pcccReply := []byte{CmdTypedReply, 0x00, 0x00, StsSuccess, 0x2A, 0x00}
	cipReply := append([]byte{CipSvcExecutePCCCReply, 0x00, 0x00, 0x00}, pcccReply...)

	got, err := parseCipExecutePCCCResponse(cipReply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, pcccReply) {
		t.Errorf("got %X, want %X", got, pcccReply)
	}
}

// A routed reply arrives wrapped in a 0xD2 Unconnected_Send response; the
// embedded PCCC reply must be found after skipping status + extended-status
// words, regardless of how many bytes of echoed requestor ID precede 0x4F.
func TestParseCipExecutePCCCResponse_RoutedReply(t *testing.T) {
	pcccReply := []byte{CmdTypedReply, 0x00, 0x00, StsSuccess, 0x01}
	// The embedded part is a full Execute PCCC reply: its own service,
	// reserved, status and ext-status-size bytes, then echoed requestor-ID-ish
	// filler before the CMD byte, matching the scan-forward behavior
	// documented for variable-length echoed headers.
	embedded := append([]byte{CipSvcExecutePCCCReply, 0x00, 0x00, 0x00,
		0x07, 0x09, 0x10, 0x00, 0x00, 0x00, 0x00, 0x0F}, pcccReply...)
	routedReply := append([]byte{0xD2, 0x00, 0x00, 0x00}, embedded...)

	got, err := parseCipExecutePCCCResponse(routedReply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, pcccReply) {
		t.Errorf("got %X, want %X", got, pcccReply)
	}
}

func TestParseCipExecutePCCCResponse_GeneralStatusError(t *testing.T) {
	cipReply := []byte{CipSvcExecutePCCCReply, 0x00, 0x01, 0x00}
	if _, err := parseCipExecutePCCCResponse(cipReply); err == nil {
		t.Fatal("expected error for nonzero general status")
	}
}

func TestWireElement(t *testing.T) {
	cases := []struct {
		name    string
		addr    *FileAddress
		wantNum uint16
	}{
		{"plain data file", &FileAddress{FileType: FileTypeInteger, Element: 5}, 5},
		{"timer full element", &FileAddress{FileType: FileTypeTimer, Element: 2, SubElement: 0}, 6},
		{"timer PRE sub-element", &FileAddress{FileType: FileTypeTimer, Element: 2, SubElement: 1}, 7},
		{"timer ACC sub-element", &FileAddress{FileType: FileTypeTimer, Element: 2, SubElement: 2}, 8},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := wireElement(c.addr); got != c.wantNum {
				t.Errorf("wireElement() = %d, want %d", got, c.wantNum)
			}
		})
	}
}

func TestBuildWriteRequest_MaskPrecedesData(t *testing.T) {
	addr := &FileAddress{FileType: FileTypeInteger, FileNumber: 7, Element: 0}
	data := []byte{0x09, 0x00}

	req, err := buildWriteRequest(addr, data, 1, 0x0001, 0x12345678)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Locate the function-code byte and confirm mask (0xFFFF) appears
	// immediately before the data word in the trailing bytes.
	idx := bytes.IndexByte(req, FncProtectedTypedLogicalWrite)
	if idx < 0 {
		t.Fatalf("write function code not found in request: %X", req)
	}
	// [FNC][ByteCount][FileNumber][FileType][Element:2][Mask:2][Data...]
	tail := req[idx+1:]
	if len(tail) < 8 {
		t.Fatalf("request too short after FNC byte: %X", tail)
	}
	mask := tail[5:7]
	if !bytes.Equal(mask, []byte{0xFF, 0xFF}) {
		t.Errorf("mask word = %X, want FFFF", mask)
	}
	if !bytes.Equal(tail[7:9], data) {
		t.Errorf("data word = %X, want %X", tail[7:9], data)
	}
}

func TestDecodeValue_SignedN7Reinterpretation(t *testing.T) {
	addr := &FileAddress{FileType: FileTypeInteger, BitNumber: -1}
	got := decodeValue(addr, []byte{0xFF, 0xFF})
	v, ok := got.(int16)
	if !ok || v != -1 {
		t.Errorf("decodeValue(0xFFFF) = %v (%T), want int16(-1)", got, got)
	}
}

func TestDecodeValue_BitExtraction(t *testing.T) {
	addr := &FileAddress{FileType: FileTypeBinary, BitNumber: 5}
	// Bit 5 set: 0b0000_0000_0010_0000 = 0x0020
	got := decodeValue(addr, []byte{0x20, 0x00})
	v, ok := got.(bool)
	if !ok || !v {
		t.Errorf("decodeValue bit 5 of 0x0020 = %v, want true", got)
	}
}

func TestNextTNS_MonotonicNoReuse(t *testing.T) {
	p := &PLC{}
	seen := make(map[uint16]bool)
	var prev uint16
	for i := 0; i < 1000; i++ {
		tns := p.nextTNS()
		if i > 0 && tns == prev {
			t.Fatalf("TNS reused: %d == %d at iteration %d", tns, prev, i)
		}
		if seen[tns] {
			t.Fatalf("TNS %d repeated before wrap", tns)
		}
		seen[tns] = true
		prev = tns
	}
}

func TestBuildRoutedCpf_WrapperLayout(t *testing.T) {
	inner := []byte{0x4B, 0x02, 0x20, 0x67, 0x24, 0x01}
	routePath := []byte{0x20, 0x02, 0x24, 0x03}

	cpf := buildRoutedCpf(inner, routePath)
	if len(cpf.Items) != 2 {
		t.Fatalf("expected 2 CPF items, got %d", len(cpf.Items))
	}
	req := cpf.Items[1].Data

	want := []byte{0x52, 0x02, 0x20, 0x06, 0x24, 0x01, 0x0A, 0x05}
	if !bytes.Equal(req[:len(want)], want) {
		t.Errorf("routed request header = %X, want %X", req[:len(want)], want)
	}

	// Route path size (in words) + reserved + route path must be the tail.
	tail := req[len(req)-2-len(routePath):]
	if tail[0] != byte(len(routePath)/2) || tail[1] != 0x00 {
		t.Errorf("route path size/reserved = %X, want [%02X 00]", tail[:2], len(routePath)/2)
	}
	if !bytes.Equal(tail[2:], routePath) {
		t.Errorf("route path tail = %X, want %X", tail[2:], routePath)
	}
}
