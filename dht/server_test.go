package dht

import (
	"net"
	"testing"
	"time"

	"github.com/hlessner/kadtorrent/bencode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestServerIdleByDefault(t *testing.T) {
	now := time.Now()
	s := NewServer(idOf(1), nil, now)
	assert.True(t, s.IsIdle())
	_, ok := s.PollEvent()
	assert.False(t, ok)
}

func TestServerBootstrapWithoutRouterConvergesImmediately(t *testing.T) {
	now := time.Now()
	s := NewServer(idOf(1), nil, now)
	_, started := s.AddRequest(ClientRequest{Kind: ReqBootstrap}, now)
	// With zero routers and an empty table, the lookup has nothing to
	// query: invoked stays 0, so it converges (trivially) immediately.
	assert.False(t, started)
	assert.True(t, s.IsIdle())
}

func TestServerBootstrapSendsFindNodeToRouter(t *testing.T) {
	now := time.Now()
	router := testAddr(6881)
	s := NewServer(idOf(1), []*net.UDPAddr{router}, now)

	taskID, started := s.AddRequest(ClientRequest{Kind: ReqBootstrap}, now)
	require.True(t, started)

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, EventTransmit, ev.Kind)
	assert.Equal(t, router, ev.Addr)
	assert.Equal(t, taskID, ev.TaskID)

	msg, err := DecodeMsg(ev.Data)
	require.NoError(t, err)
	assert.Equal(t, QueryFindNode, msg.Query.Type)
	assert.Equal(t, idOf(1), msg.Query.Target)
}

func TestServerBootstrapCompletesOnResponse(t *testing.T) {
	now := time.Now()
	router := testAddr(6881)
	s := NewServer(idOf(1), []*net.UDPAddr{router}, now)

	_, started := s.AddRequest(ClientRequest{Kind: ReqBootstrap}, now)
	require.True(t, started)
	ev, ok := s.PollEvent()
	require.True(t, ok)

	msg, err := DecodeMsg(ev.Data)
	require.NoError(t, err)

	rawReply := encodeReply(msg.Query.TxnID, func(d *bencode.DictEncoder) {
		d.InsertBytes("id", idOf(2)[:])
	})
	require.NoError(t, s.Receive(rawReply, router, now))

	_, hasBootstrapped := s.PollEvent()
	assert.True(t, hasBootstrapped)
	assert.True(t, s.IsIdle())
}

func TestServerTickTimesOutStalledTransaction(t *testing.T) {
	now := time.Now()
	router := testAddr(6881)
	s := NewServer(idOf(1), []*net.UDPAddr{router}, now)

	_, started := s.AddRequest(ClientRequest{Kind: ReqBootstrap}, now)
	require.True(t, started)
	_, ok := s.PollEvent()
	require.True(t, ok)

	assert.False(t, s.IsIdle())
	s.Tick(now.Add(transactionTimeout + time.Second))
	assert.True(t, s.IsIdle())
}

func TestServerRequireTableRefreshSchedulesBootstrap(t *testing.T) {
	now := time.Now()
	router := testAddr(6881)
	s := NewServer(idOf(1), []*net.UDPAddr{router}, now)

	future := now.Add(bucketRefreshInterval + time.Minute)
	s.Tick(future)

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, EventTransmit, ev.Kind)
}
