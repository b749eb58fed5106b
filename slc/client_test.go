package slc

import (
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/bdmfab/upycomm/eip"
)

// mockSlcServer is a minimal PCCC-over-CIP PLC simulator: it understands
// RegisterSession and a single data-table word addressed via Typed Logical
// Read/Write (the only two PCCC commands slc.Client.Write's bit path drives).
// It exists to exercise the read-modify-write bit logic end to end without a
// real processor, the way the bit-idempotence property needs a stateful peer
// to observe across two writes.
type mockSlcServer struct {
	ln      net.Listener
	word    uint16
	session uint32
}

func newMockSlcServer(t *testing.T) *mockSlcServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &mockSlcServer{ln: ln, session: 0xAABBCCDD}
	go s.serve(t)
	return s
}

func (s *mockSlcServer) hostPort() (string, uint16) {
	tcpAddr := s.ln.Addr().(*net.TCPAddr)
	return tcpAddr.IP.String(), uint16(tcpAddr.Port)
}

func (s *mockSlcServer) serve(t *testing.T) {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		header := make([]byte, 24)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		command := binary.LittleEndian.Uint16(header[0:2])
		length := binary.LittleEndian.Uint16(header[2:4])

		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(conn, payload); err != nil {
				return
			}
		}

		switch command {
		case eip.RegisterSession:
			conn.Write(s.encapReply(eip.RegisterSession, []byte{1, 0, 0, 0}))
		case eip.SendRRData:
			cipReq := extractCipRequest(payload)
			cipReply := s.handlePCCC(cipReq)
			cpf := &eip.EipCommonPacket{Items: []eip.EipCommonPacketItem{
				{TypeId: eip.CpfAddressNullId, Length: 0, Data: nil},
				{TypeId: eip.CpfUnconnectedMessageId, Length: uint16(len(cipReply)), Data: cipReply},
			}}
			rrPayload := make([]byte, 0, 6+len(cpf.Bytes()))
			rrPayload = binary.LittleEndian.AppendUint32(rrPayload, 0) // interface handle
			rrPayload = binary.LittleEndian.AppendUint16(rrPayload, 0) // timeout
			rrPayload = append(rrPayload, cpf.Bytes()...)
			conn.Write(s.encapReply(eip.SendRRData, rrPayload))
		case eip.UnRegisterSession:
			return
		default:
			return
		}
	}
}

func (s *mockSlcServer) encapReply(command uint16, data []byte) []byte {
	buf := make([]byte, 0, 24+len(data))
	buf = binary.LittleEndian.AppendUint16(buf, command)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(data)))
	buf = binary.LittleEndian.AppendUint32(buf, s.session)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // status
	buf = append(buf, make([]byte, 8)...)           // context
	buf = binary.LittleEndian.AppendUint32(buf, 0) // options
	buf = append(buf, data...)
	return buf
}

// extractCipRequest pulls the Unconnected Data CPF item's payload out of a
// SendRRData request body (4-byte interface handle + 2-byte timeout + CPF).
func extractCipRequest(rrPayload []byte) []byte {
	if len(rrPayload) < 6 {
		return nil
	}
	cpf, err := eip.ParseEipCommonPacket(rrPayload[6:])
	if err != nil {
		return nil
	}
	for _, item := range cpf.Items {
		if item.TypeId == eip.CpfUnconnectedMessageId {
			return item.Data
		}
	}
	return nil
}

// handlePCCC services a CIP Execute PCCC request against the in-memory word,
// returning the CIP reply bytes. It understands Typed Logical Read (0xA2)
// and Typed Logical Write (0xAB) only.
func (s *mockSlcServer) handlePCCC(cipReq []byte) []byte {
	if len(cipReq) < 14 {
		return []byte{CipSvcExecutePCCCReply, 0x00, 0x08, 0x00} // general status error
	}
	pcccPayload := cipReq[14:]
	fnc := pcccPayload[4]

	var pcccReply []byte
	switch fnc {
	case FncProtectedTypedLogicalRead:
		pcccReply = []byte{CmdTypedReply, 0x00, 0x00, StsSuccess}
		pcccReply = binary.LittleEndian.AppendUint16(pcccReply, s.word)
	case FncProtectedTypedLogicalWrite:
		mask := binary.LittleEndian.Uint16(pcccPayload[10:12])
		data := binary.LittleEndian.Uint16(pcccPayload[12:14])
		s.word = (s.word &^ mask) | (data & mask)
		pcccReply = []byte{CmdTypedReply, 0x00, 0x00, StsSuccess}
	default:
		pcccReply = []byte{CmdTypedReply, 0x00, 0x00, 0xF0, 0x00}
	}

	reply := []byte{CipSvcExecutePCCCReply, 0x00, 0x00, 0x00}
	return append(reply, pcccReply...)
}

// TestWriteBit_RMWIdempotence drives the real Client.Write bit path (read,
// toggle one bit, write back) against a simulated word and checks the
// invariant from the read-modify-write contract: setting a bit that is
// already set leaves every other bit untouched, and clearing it afterward
// clears only that bit.
func TestWriteBit_RMWIdempotence(t *testing.T) {
	server := newMockSlcServer(t)
	defer server.ln.Close()

	host, port := server.hostPort()
	eipClient := eip.NewEipClientWithPort(host, port)
	if err := eipClient.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	client := &Client{plc: &PLC{
		IpAddress:  host,
		Connection: eipClient,
		vendorID:   0x0001,
		serialNum:  0x12345678,
	}}
	defer client.Close()

	server.word = 0x00F0 // bits 4-7 set, everything else clear

	if err := client.Write("B3:0/5", true); err != nil {
		t.Fatalf("first WriteBit: %v", err)
	}
	if server.word != 0x00F0 {
		t.Errorf("setting an already-set bit changed the word: got %04X, want 00F0", server.word)
	}

	if err := client.Write("B3:0/5", true); err != nil {
		t.Fatalf("second WriteBit: %v", err)
	}
	if server.word != 0x00F0 {
		t.Errorf("repeated set is not idempotent: got %04X, want 00F0", server.word)
	}

	if err := client.Write("B3:0/5", false); err != nil {
		t.Fatalf("clearing bit: %v", err)
	}
	if server.word != 0x00D0 {
		t.Errorf("clearing bit 5 should leave 00D0, got %04X", server.word)
	}
}
