package peer

import (
	"bytes"
	"fmt"
)

// ProtocolString is the literal protocol identifier every handshake must
// carry; a mismatch here, unlike an info-hash mismatch, means the remote
// isn't speaking BitTorrent at all.
const ProtocolString = "BitTorrent protocol"

// HandshakeLen is the fixed wire length of a handshake: 1 + 19 + 8 + 20 + 20.
const HandshakeLen = 1 + len(ProtocolString) + 8 + 20 + 20

// extensionByte is the reserved byte carrying the extension-protocol bit.
const extensionByte = 5
const extensionBit = 0x10

// Handshake is the decoded form of the fixed 68-byte peer handshake.
type Handshake struct {
	InfoHash  [20]byte
	PeerID    [20]byte
	Extension bool
}

// EncodeHandshake builds the 68-byte wire form of h.
func EncodeHandshake(h Handshake) []byte {
	buf := make([]byte, HandshakeLen)
	buf[0] = byte(len(ProtocolString))
	copy(buf[1:], ProtocolString)
	if h.Extension {
		buf[1+len(ProtocolString)+extensionByte] |= extensionBit
	}
	copy(buf[1+len(ProtocolString)+8:], h.InfoHash[:])
	copy(buf[1+len(ProtocolString)+8+20:], h.PeerID[:])
	return buf
}

// DecodeHandshake parses exactly HandshakeLen bytes. The protocol string
// must match literally; callers are responsible for separately checking
// the info hash against what they expected (a mismatch there fails the
// session but is not itself a framing error).
func DecodeHandshake(buf []byte) (Handshake, error) {
	if len(buf) != HandshakeLen {
		return Handshake{}, fmt.Errorf("peer: handshake must be %d bytes, got %d", HandshakeLen, len(buf))
	}
	if int(buf[0]) != len(ProtocolString) {
		return Handshake{}, fmt.Errorf("peer: handshake protocol length %d does not match %q", buf[0], ProtocolString)
	}
	protoStart := 1
	protoEnd := protoStart + len(ProtocolString)
	if !bytes.Equal(buf[protoStart:protoEnd], []byte(ProtocolString)) {
		return Handshake{}, fmt.Errorf("peer: handshake protocol string %q does not match %q", buf[protoStart:protoEnd], ProtocolString)
	}

	var h Handshake
	h.Extension = buf[protoEnd+extensionByte]&extensionBit != 0
	copy(h.InfoHash[:], buf[protoEnd+8:protoEnd+8+20])
	copy(h.PeerID[:], buf[protoEnd+8+20:protoEnd+8+40])
	return h, nil
}
