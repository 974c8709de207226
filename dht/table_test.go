package dht

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeWithByteSet(idx int) ID {
	var id ID
	id[idx] = 1
	return id
}

func TestRoutingTableFindClosest(t *testing.T) {
	now := time.Now()
	table := NewRoutingTable(ZeroID, nil, now)
	addr := &net.UDPAddr{IP: net.IPv4(0, 0, 0, 0), Port: 100}

	for i := 0; i < 20; i++ {
		added := table.AddContact(ContactRef{ID: nodeWithByteSet(i), Addr: addr}, now)
		require.True(t, added, "adding contact failed at %d", i)
	}

	closest := table.FindClosest(AllID(1), 20)
	require.Len(t, closest, 20)
	for i := 0; i < 20; i++ {
		assert.Equal(t, nodeWithByteSet(i), closest[i].ID, "index %d", i)
	}
}

func TestRoutingTableAddContactRejectsSelf(t *testing.T) {
	now := time.Now()
	root := GenID()
	table := NewRoutingTable(root, nil, now)
	addr := &net.UDPAddr{IP: net.IPv4(1, 2, 3, 4), Port: 100}

	added := table.AddContact(ContactRef{ID: root, Addr: addr}, now)
	assert.False(t, added)
	assert.True(t, table.IsEmpty())
}

func TestRoutingTableAddContactRejectsRouterNodes(t *testing.T) {
	now := time.Now()
	router := &net.UDPAddr{IP: net.IPv4(1, 1, 1, 1), Port: 6881}
	table := NewRoutingTable(ZeroID, []*net.UDPAddr{router}, now)

	added := table.AddContact(ContactRef{ID: GenID(), Addr: router}, now)
	assert.False(t, added)
	assert.True(t, table.IsEmpty())
}

func TestRoutingTableRefillsReplacementCacheBeforeEviction(t *testing.T) {
	now := time.Now()
	table := NewRoutingTable(ZeroID, nil, now)
	addr := &net.UDPAddr{IP: net.IPv4(0, 0, 0, 0), Port: 100}

	// All of these land in bucket 0: id[0] = 0x80 sets the top bit, so
	// XOR with the zero root has no leading zeros. The low byte keeps
	// the IDs distinct.
	mk := func(b byte) ID {
		var id ID
		id[0] = 0x80
		id[19] = b
		return id
	}

	for i := 0; i < BucketMaxLen; i++ {
		added := table.AddContact(ContactRef{ID: mk(byte(i)), Addr: addr}, now)
		require.True(t, added)
	}
	assert.Equal(t, BucketMaxLen, table.Len())
	assert.Equal(t, 0, table.LenExtra())

	// A 9th, never-pinged contact goes into the replacement cache rather
	// than evicting a live (non-failing) contact.
	added := table.AddContact(ContactRef{ID: mk(9), Addr: addr}, now)
	assert.True(t, added)
	assert.Equal(t, BucketMaxLen, table.Len())
	assert.Equal(t, 1, table.LenExtra())
}
