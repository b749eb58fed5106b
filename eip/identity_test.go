package eip

import (
	"encoding/binary"
	"net"
	"testing"
)

func buildIdentityItemPayload(t *testing.T) []byte {
	t.Helper()

	item := make([]byte, 0, 40)
	item = binary.LittleEndian.AppendUint16(item, 1) // encapsulation version
	// Socket address: family(2) + port(2, big-endian) + addr(4) + zero(8)
	item = append(item, 0x00, 0x00)
	item = binary.BigEndian.AppendUint16(item, 44818)
	item = append(item, 10, 0, 0, 5)
	item = append(item, make([]byte, 8)...)
	item = binary.LittleEndian.AppendUint16(item, 0x0001) // vendor
	item = binary.LittleEndian.AppendUint16(item, 0x000E) // device type
	item = binary.LittleEndian.AppendUint16(item, 0x0069) // product code
	item = append(item, 27, 11)                           // revision major/minor
	item = binary.LittleEndian.AppendUint16(item, 0)      // status
	item = binary.LittleEndian.AppendUint32(item, 0xCAFEBABE)
	name := "1756-L75"
	item = append(item, byte(len(name)))
	item = append(item, []byte(name)...)
	item = append(item, 0x00) // state

	payload := binary.LittleEndian.AppendUint16(nil, 1) // 1 identity item
	payload = binary.LittleEndian.AppendUint16(payload, 0x000C)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(item)))
	payload = append(payload, item...)
	return payload
}

func TestParseListIdentityPayload(t *testing.T) {
	payload := buildIdentityItemPayload(t)

	idents, err := parseListIdentityPayloadToIdentities(payload, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idents) != 1 {
		t.Fatalf("got %d identities, want 1", len(idents))
	}

	id := idents[0]
	if id.VendorID != 0x0001 || id.ProductCode != 0x0069 {
		t.Errorf("vendor/product = %04X/%04X, want 0001/0069", id.VendorID, id.ProductCode)
	}
	if id.ProductName != "1756-L75" {
		t.Errorf("product name = %q, want 1756-L75", id.ProductName)
	}
	if id.SerialNumber != 0xCAFEBABE {
		t.Errorf("serial = %08X, want CAFEBABE", id.SerialNumber)
	}
	if !id.IP.Equal(net.IPv4(10, 0, 0, 5)) {
		t.Errorf("ip = %v, want 10.0.0.5", id.IP)
	}
	if id.Port != 44818 {
		t.Errorf("port = %d, want 44818", id.Port)
	}
}

// When a reply's embedded socket address is the zero address, the UDP
// source IP (only available on the broadcast discovery path) fills in.
func TestParseListIdentityPayload_FallbackIP(t *testing.T) {
	item := make([]byte, 0, 40)
	item = binary.LittleEndian.AppendUint16(item, 1)
	item = append(item, make([]byte, 16)...) // zero socket address
	item = binary.LittleEndian.AppendUint16(item, 1)
	item = binary.LittleEndian.AppendUint16(item, 1)
	item = binary.LittleEndian.AppendUint16(item, 1)
	item = append(item, 1, 0)
	item = binary.LittleEndian.AppendUint16(item, 0)
	item = binary.LittleEndian.AppendUint32(item, 1)
	item = append(item, 0) // empty name
	item = append(item, 0x03)

	payload := binary.LittleEndian.AppendUint16(nil, 1)
	payload = binary.LittleEndian.AppendUint16(payload, 0x000C)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(item)))
	payload = append(payload, item...)

	fallback := net.IPv4(192, 168, 1, 50)
	idents, err := parseListIdentityPayloadToIdentities(payload, fallback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !idents[0].IP.Equal(fallback) {
		t.Errorf("ip = %v, want fallback %v", idents[0].IP, fallback)
	}
}
