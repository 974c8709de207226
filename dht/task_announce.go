package dht

import (
	"net"
	"time"
)

// AnnounceTask runs a get_peers lookup to completion, then announces
// this node as a peer for the info hash to every alive node the lookup
// visited, using each node's previously stored token.
type AnnounceTask struct {
	peers       *GetPeersTask
	Port        uint16
	announced   map[string]bool
	allAnnounced bool
}

// NewAnnounceTask seeds the underlying get_peers lookup; port is the
// listening port to announce (0 selects implied_port semantics).
func NewAnnounceTask(infoHash ID, port uint16, table *RoutingTable, routers []*net.UDPAddr) *AnnounceTask {
	return &AnnounceTask{
		peers:     NewGetPeersTask(infoHash, table, routers),
		Port:      port,
		announced: make(map[string]bool),
	}
}

func (t *AnnounceTask) AddRequests(id TaskID, rpc *RPCManager, now time.Time) bool {
	if !t.peers.AddRequests(id, rpc, now) {
		return false
	}
	return t.announceAlive(id, rpc, now)
}

// announceAlive sends announce_peer to every alive node that hasn't been
// announced to yet, and reports whether all of them now have.
func (t *AnnounceTask) announceAlive(id TaskID, rpc *RPCManager, now time.Time) bool {
	all := true
	for _, n := range t.peers.base.Nodes {
		if n.Status&NodeAlive == 0 {
			continue
		}
		key := n.Addr.String()
		if t.announced[key] {
			continue
		}
		if rpc.SendAnnouncePeer(id, n, t.peers.InfoHash, t.Port, now) {
			t.announced[key] = true
		} else {
			all = false
		}
	}
	t.allAnnounced = all
	return all
}

func (t *AnnounceTask) SetFailed(addr *net.UDPAddr) { t.peers.SetFailed(addr) }

func (t *AnnounceTask) HandleResponse(req Request, resp Response, addr *net.UDPAddr, table *RoutingTable, rpc *RPCManager, now time.Time) {
	t.peers.HandleResponse(req, resp, addr, table, rpc, now)
}

func (t *AnnounceTask) Done(id TaskID, rpc *RPCManager) bool {
	if !t.peers.Done(id, rpc) {
		return false
	}
	return t.allAnnounced
}
