package dht

import (
	"testing"

	"github.com/hlessner/kadtorrent/bencode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idOf(b byte) ID { return AllID(b) }

func TestEncodePing(t *testing.T) {
	got := EncodePing(idOf(1), 10)
	want := "d1:ad2:id20:" + string(idOf(1)[:]) + "e1:q4:ping1:t2:\x00\n1:y1:qe"
	assert.Equal(t, want, string(got))
}

func TestEncodeFindNode(t *testing.T) {
	got := EncodeFindNode(idOf(1), idOf(2), 10)
	want := "d1:ad2:id20:" + string(idOf(1)[:]) + "6:target20:" + string(idOf(2)[:]) +
		"e1:q9:find_node1:t2:\x00\n1:y1:qe"
	assert.Equal(t, want, string(got))
}

func TestEncodeGetPeers(t *testing.T) {
	got := EncodeGetPeers(idOf(1), idOf(2), 10)
	want := "d1:ad2:id20:" + string(idOf(1)[:]) + "9:info_hash20:" + string(idOf(2)[:]) +
		"e1:q9:get_peers1:t2:\x00\n1:y1:qe"
	assert.Equal(t, want, string(got))
}

func TestEncodeAnnouncePeer(t *testing.T) {
	got := EncodeAnnouncePeer(idOf(1), idOf(2), false, 5000, []byte{0, 1, 2}, 10)
	want := "d1:ad2:id20:" + string(idOf(1)[:]) +
		"12:implied_porti0e9:info_hash20:" + string(idOf(2)[:]) +
		"4:porti5000e5:token3:\x00\x01\x02e1:q13:announce_peer1:t2:\x00\n1:y1:qe"
	assert.Equal(t, want, string(got))
}

func TestDecodeIncomingPing(t *testing.T) {
	raw := "d1:ad2:id20:" + string(idOf(1)[:]) + "e1:q4:ping1:t2:\x00\n1:y1:qe"
	msg, err := DecodeMsg([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, MsgQuery, msg.Kind)
	assert.Equal(t, QueryPing, msg.Query.Type)
	assert.Equal(t, TxnID(10), msg.Query.TxnID)
	assert.Equal(t, idOf(1), msg.Query.ID)
}

func TestDecodeIncomingAnnouncePeer(t *testing.T) {
	raw := EncodeAnnouncePeer(idOf(1), idOf(2), true, 5000, []byte{0, 1, 2}, 10)
	msg, err := DecodeMsg(raw)
	require.NoError(t, err)
	require.Equal(t, MsgQuery, msg.Kind)
	assert.Equal(t, QueryAnnouncePeer, msg.Query.Type)
	assert.Equal(t, idOf(2), msg.Query.InfoHash)
	assert.True(t, msg.Query.ImpliedPort)
	assert.Equal(t, uint16(5000), msg.Query.Port)
	assert.Equal(t, []byte{0, 1, 2}, msg.Query.Token)
}

func TestDecodeResponseRoundTrip(t *testing.T) {
	raw := encodeReply(10, func(d *bencode.DictEncoder) {
		d.InsertBytes("id", idOf(3)[:])
	})
	msg, err := DecodeMsg(raw)
	require.NoError(t, err)
	require.Equal(t, MsgResponse, msg.Kind)
	assert.Equal(t, TxnID(10), msg.Response.TxnID)
	assert.Equal(t, idOf(3), msg.Response.ID)
}

func TestDecodeUnknownMsgKind(t *testing.T) {
	raw := "d1:t2:\x00\n1:y1:ze"
	_, err := DecodeMsg([]byte(raw))
	assert.Error(t, err)
}

func TestDecodeMissingTxn(t *testing.T) {
	raw := "d1:y1:qe"
	_, err := DecodeMsg([]byte(raw))
	assert.Error(t, err)
}
