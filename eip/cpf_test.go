package eip

import (
	"bytes"
	"testing"
)

func TestEipCommonPacketRoundTrip(t *testing.T) {
	cpf := EipCommonPacket{
		Items: []EipCommonPacketItem{
			{TypeId: CpfAddressNullId, Length: 0, Data: nil},
			{TypeId: CpfUnconnectedMessageId, Length: 3, Data: []byte{0x4B, 0x02, 0x20}},
		},
	}

	raw := cpf.Bytes()
	parsed, err := ParseEipCommonPacket(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("item count = %d, want 2", len(parsed.Items))
	}
	if parsed.Items[0].TypeId != CpfAddressNullId || parsed.Items[0].Length != 0 {
		t.Errorf("item 0 = %+v, want null address item", parsed.Items[0])
	}
	if parsed.Items[1].TypeId != CpfUnconnectedMessageId {
		t.Errorf("item 1 type = 0x%04X, want 0x%04X", parsed.Items[1].TypeId, CpfUnconnectedMessageId)
	}
	if !bytes.Equal(parsed.Items[1].Data, []byte{0x4B, 0x02, 0x20}) {
		t.Errorf("item 1 data = %X, want 4B0220", parsed.Items[1].Data)
	}
}

func TestParseEipCommonPacket_TruncatedItem(t *testing.T) {
	// item_count says 1 item, but the item header is cut short.
	raw := []byte{0x01, 0x00, 0xB2, 0x00}
	if _, err := ParseEipCommonPacket(raw); err == nil {
		t.Fatal("expected error for truncated item, got nil")
	}
}

func TestParseEipCommonPacket_InsufficientData(t *testing.T) {
	// Header claims 4 bytes of item data but only 1 follows.
	raw := []byte{0x01, 0x00, 0xB2, 0x00, 0x04, 0x00, 0xAA}
	if _, err := ParseEipCommonPacket(raw); err == nil {
		t.Fatal("expected error for insufficient item data, got nil")
	}
}

func TestParseEipCommonPacket_ZeroItems(t *testing.T) {
	raw := []byte{0x00, 0x00}
	parsed, err := ParseEipCommonPacket(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed.Items) != 0 {
		t.Errorf("expected 0 items, got %d", len(parsed.Items))
	}
}
