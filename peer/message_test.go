package peer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepAlive(t *testing.T) {
	msg, n, err := Decode([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 4, n)
}

func TestDecodeNeedsMoreForLengthPrefix(t *testing.T) {
	_, _, err := Decode([]byte{0, 0})
	require.Error(t, err)
	var needMore *NeedMoreError
	require.ErrorAs(t, err, &needMore)
	assert.Equal(t, 2, needMore.N)
}

func TestDecodeNeedsMoreForBody(t *testing.T) {
	buf := EncodeHave(5)
	_, _, err := Decode(buf[:len(buf)-2])
	require.Error(t, err)
	var needMore *NeedMoreError
	require.ErrorAs(t, err, &needMore)
	assert.Equal(t, 2, needMore.N)
}

func TestDecodeHaveRoundTrip(t *testing.T) {
	buf := EncodeHave(42)
	msg, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	idx, err := ParseHave(msg)
	require.NoError(t, err)
	assert.Equal(t, 42, idx)
}

func TestDecodeMalformedHavePayload(t *testing.T) {
	// A Have message whose declared length doesn't leave a 4-byte payload.
	raw := []byte{0, 0, 0, 3, byte(Have), 0, 0}
	_, _, err := Decode(raw)
	require.Error(t, err)
	var needMore *NeedMoreError
	assert.False(t, errors.As(err, &needMore), "a too-short fixed payload is malformed, not incomplete")
}

func TestDecodeRequestRoundTrip(t *testing.T) {
	buf := EncodeRequest(1, 2, 3)
	msg, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	index, begin, length, err := ParseRequest(msg)
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, 2, begin)
	assert.Equal(t, 3, length)
}

func TestDecodePieceRoundTrip(t *testing.T) {
	block := []byte{0xde, 0xad, 0xbe, 0xef}
	buf := EncodePiece(7, 14, block)
	msg, _, err := Decode(buf)
	require.NoError(t, err)
	index, begin, got, err := ParsePiece(msg)
	require.NoError(t, err)
	assert.Equal(t, 7, index)
	assert.Equal(t, 14, begin)
	assert.Equal(t, block, got)
}

func TestDecodeExtendedRequiresExtensionID(t *testing.T) {
	raw := []byte{0, 0, 0, 1, byte(Extended)}
	msg, n, err := Decode(raw)
	require.Error(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 0, n)
}

func TestDecodeUnknownTagIsMalformed(t *testing.T) {
	raw := []byte{0, 0, 0, 1, 255}
	_, _, err := Decode(raw)
	require.Error(t, err)
}

func TestDecodeTwoMessagesBackToBack(t *testing.T) {
	buf := append(EncodeChoke(), EncodeUnchoke()...)
	msg, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, Choke, msg.Tag)
	msg2, n2, err := Decode(buf[n:])
	require.NoError(t, err)
	assert.Equal(t, Unchoke, msg2.Tag)
	assert.Equal(t, len(buf), n+n2)
}
