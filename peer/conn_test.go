package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnInitialState(t *testing.T) {
	c := NewConn(8)
	assert.True(t, c.Choked)
	assert.True(t, c.PeerChoked)
	assert.False(t, c.Interested)
	assert.False(t, c.PeerInterested)
	assert.Equal(t, 8, c.RemoteBitfield.Len())
}

func TestConnRecvChokeUnchoke(t *testing.T) {
	c := NewConn(4)
	c.RecvUnchoke()
	assert.False(t, c.Choked)
	c.RecvChoke()
	assert.True(t, c.Choked)
}

func TestConnRecvInterestedAutoUnchokes(t *testing.T) {
	c := NewConn(4)
	c.RecvInterested()
	assert.True(t, c.PeerInterested)
	assert.False(t, c.PeerChoked)
	assert.NotEmpty(t, c.SendBuf)

	msg, _, err := Decode(c.SendBuf)
	assert.NoError(t, err)
	assert.Equal(t, Unchoke, msg.Tag)
}

func TestConnRecvInterestedTwiceDoesNotReUnchoke(t *testing.T) {
	c := NewConn(4)
	c.RecvInterested()
	c.SendBuf = nil
	c.RecvInterested()
	assert.Empty(t, c.SendBuf)
}

func TestConnRecvHaveSetsBitfieldBit(t *testing.T) {
	c := NewConn(4)
	c.RecvHave(2)
	assert.True(t, c.RemoteBitfield.Get(2))
	assert.False(t, c.RemoteBitfield.Get(1))
}

func TestConnRecvBitfieldReplacesState(t *testing.T) {
	c := NewConn(8)
	c.RecvBitfield([]byte{0xff})
	assert.True(t, c.RemoteBitfield.IsAllSet())
}

func TestConnSendHelpersQueueBytes(t *testing.T) {
	c := NewConn(4)
	c.SendInterested()
	c.SendHave(1)
	assert.True(t, c.Interested)

	msg1, n1, err := Decode(c.SendBuf)
	assert.NoError(t, err)
	assert.Equal(t, Interested, msg1.Tag)

	msg2, _, err := Decode(c.SendBuf[n1:])
	assert.NoError(t, err)
	assert.Equal(t, Have, msg2.Tag)
}
