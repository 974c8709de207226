package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill20(b byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = b
	}
	return a
}

func TestHandshakeRoundTrip(t *testing.T) {
	h := Handshake{InfoHash: fill20(1), PeerID: fill20(2), Extension: true}
	buf := EncodeHandshake(h)
	require.Len(t, buf, HandshakeLen)

	got, err := DecodeHandshake(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHandshakeExtensionBitIsNotSet(t *testing.T) {
	h := Handshake{InfoHash: fill20(1), PeerID: fill20(2)}
	buf := EncodeHandshake(h)
	got, err := DecodeHandshake(buf)
	require.NoError(t, err)
	assert.False(t, got.Extension)
}

func TestHandshakeRejectsWrongLength(t *testing.T) {
	_, err := DecodeHandshake(make([]byte, HandshakeLen-1))
	assert.Error(t, err)
}

func TestHandshakeRejectsWrongProtocolString(t *testing.T) {
	buf := EncodeHandshake(Handshake{InfoHash: fill20(1), PeerID: fill20(2)})
	buf[1] = 'X'
	_, err := DecodeHandshake(buf)
	assert.Error(t, err)
}

func TestHandshakeRejectsWrongProtocolLength(t *testing.T) {
	buf := EncodeHandshake(Handshake{InfoHash: fill20(1), PeerID: fill20(2)})
	buf[0] = 3
	_, err := DecodeHandshake(buf)
	assert.Error(t, err)
}
