package peer

import (
	"encoding/binary"
	"fmt"
)

// MessageTag identifies a peer-wire message's type, matching the
// standard BitTorrent peer protocol's one-byte tag.
type MessageTag uint8

const (
	Choke         MessageTag = 0
	Unchoke       MessageTag = 1
	Interested    MessageTag = 2
	NotInterested MessageTag = 3
	Have          MessageTag = 4
	BitfieldMsg   MessageTag = 5
	Request       MessageTag = 6
	Piece         MessageTag = 7
	Cancel        MessageTag = 8
	Extended      MessageTag = 20
)

// Message is a decoded peer-wire message. Payload borrows the decode
// buffer; callers that retain it past the next Decode call must copy it.
type Message struct {
	Tag     MessageTag
	Payload []byte
}

// NeedMoreError is returned by Decode when buf does not yet hold a
// complete message; N is how many additional bytes are required before
// trying again. It is distinct from a malformed-message error: the
// caller should simply buffer more input and retry, not fail the
// connection.
type NeedMoreError struct{ N int }

func (e *NeedMoreError) Error() string {
	return fmt.Sprintf("peer: need %d more bytes", e.N)
}

func errMalformedPayload(tag MessageTag, want string, got int) error {
	return fmt.Errorf("peer: message tag %d expects %s, got %d payload bytes", tag, want, got)
}

// Decode parses the first message framed in buf: a big-endian 4-byte
// length prefix (0 meaning keep-alive), followed by a one-byte tag and
// its payload. It returns the message (nil for a keep-alive), the number
// of bytes consumed from buf, and an error that is either a
// *NeedMoreError (buf is an incomplete prefix of a message) or a
// malformed-message error (the tag's fixed-size contract was violated).
func Decode(buf []byte) (*Message, int, error) {
	if len(buf) < 4 {
		return nil, 0, &NeedMoreError{N: 4 - len(buf)}
	}
	length := binary.BigEndian.Uint32(buf[:4])
	if length == 0 {
		return nil, 4, nil
	}

	total := 4 + int(length)
	if len(buf) < total {
		return nil, 0, &NeedMoreError{N: total - len(buf)}
	}

	tag := MessageTag(buf[4])
	payload := buf[5:total]
	if err := validatePayload(tag, payload); err != nil {
		return nil, 0, err
	}
	return &Message{Tag: tag, Payload: payload}, total, nil
}

func validatePayload(tag MessageTag, payload []byte) error {
	switch tag {
	case Choke, Unchoke, Interested, NotInterested:
		if len(payload) != 0 {
			return errMalformedPayload(tag, "an empty payload", len(payload))
		}
	case Have:
		if len(payload) != 4 {
			return errMalformedPayload(tag, "a 4-byte piece index", len(payload))
		}
	case Request, Cancel:
		if len(payload) != 12 {
			return errMalformedPayload(tag, "12 bytes (index, begin, length)", len(payload))
		}
	case Piece:
		if len(payload) < 8 {
			return errMalformedPayload(tag, "at least 8 bytes (index, begin)", len(payload))
		}
	case Extended:
		if len(payload) < 1 {
			return errMalformedPayload(tag, "at least 1 byte (extension id)", len(payload))
		}
	case BitfieldMsg:
		// any length, including zero, is a valid (if empty) bitfield
	default:
		return fmt.Errorf("peer: unknown message tag %d", tag)
	}
	return nil
}

func encode(tag MessageTag, payload []byte) []byte {
	buf := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(1+len(payload)))
	buf[4] = byte(tag)
	copy(buf[5:], payload)
	return buf
}

func EncodeKeepAlive() []byte { return []byte{0, 0, 0, 0} }

func EncodeChoke() []byte         { return encode(Choke, nil) }
func EncodeUnchoke() []byte       { return encode(Unchoke, nil) }
func EncodeInterested() []byte    { return encode(Interested, nil) }
func EncodeNotInterested() []byte { return encode(NotInterested, nil) }

func EncodeHave(index int) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(index))
	return encode(Have, payload)
}

func EncodeBitfield(bits []byte) []byte { return encode(BitfieldMsg, bits) }

func EncodeRequest(index, begin, length int) []byte {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:4], uint32(index))
	binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
	binary.BigEndian.PutUint32(payload[8:12], uint32(length))
	return encode(Request, payload)
}

func EncodePiece(index, begin int, block []byte) []byte {
	payload := make([]byte, 8+len(block))
	binary.BigEndian.PutUint32(payload[0:4], uint32(index))
	binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
	copy(payload[8:], block)
	return encode(Piece, payload)
}

func EncodeCancel(index, begin, length int) []byte {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:4], uint32(index))
	binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
	binary.BigEndian.PutUint32(payload[8:12], uint32(length))
	return encode(Cancel, payload)
}

func EncodeExtended(extensionID byte, payload []byte) []byte {
	body := make([]byte, 1+len(payload))
	body[0] = extensionID
	copy(body[1:], payload)
	return encode(Extended, body)
}

// ParseHave decodes a Have message's payload into a piece index.
func ParseHave(m *Message) (int, error) {
	if m.Tag != Have || len(m.Payload) != 4 {
		return 0, errMalformedPayload(m.Tag, "a 4-byte piece index", len(m.Payload))
	}
	return int(binary.BigEndian.Uint32(m.Payload)), nil
}

// ParsePiece decodes a Piece message's payload into its index, begin
// offset, and block. The returned block aliases m.Payload.
func ParsePiece(m *Message) (index, begin int, block []byte, err error) {
	if m.Tag != Piece || len(m.Payload) < 8 {
		return 0, 0, nil, errMalformedPayload(m.Tag, "at least 8 bytes (index, begin)", len(m.Payload))
	}
	index = int(binary.BigEndian.Uint32(m.Payload[0:4]))
	begin = int(binary.BigEndian.Uint32(m.Payload[4:8]))
	return index, begin, m.Payload[8:], nil
}

// ParseRequest decodes a Request or Cancel message's payload.
func ParseRequest(m *Message) (index, begin, length int, err error) {
	if (m.Tag != Request && m.Tag != Cancel) || len(m.Payload) != 12 {
		return 0, 0, 0, errMalformedPayload(m.Tag, "12 bytes (index, begin, length)", len(m.Payload))
	}
	index = int(binary.BigEndian.Uint32(m.Payload[0:4]))
	begin = int(binary.BigEndian.Uint32(m.Payload[4:8]))
	length = int(binary.BigEndian.Uint32(m.Payload[8:12]))
	return index, begin, length, nil
}
