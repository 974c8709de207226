package dht

import (
	"net"
	"time"
)

// GetPeersTask runs an iterative get_peers lookup for an info hash,
// collecting both the peers the swarm reports and the announce tokens
// handed back by the nodes that answered (used by AnnounceTask).
type GetPeersTask struct {
	base      *BaseTask
	InfoHash  ID
	Peers     map[string]*net.UDPAddr
	converged bool
	reported  bool
}

// NewGetPeersTask seeds a get_peers lookup from the routing table's
// current knowledge of the network.
func NewGetPeersTask(infoHash ID, table *RoutingTable, routers []*net.UDPAddr) *GetPeersTask {
	return &GetPeersTask{
		base:     NewBaseTask(infoHash, table, routers),
		InfoHash: infoHash,
		Peers:    make(map[string]*net.UDPAddr),
	}
}

func (t *GetPeersTask) AddRequests(id TaskID, rpc *RPCManager, now time.Time) bool {
	t.converged = t.base.addRequests(func(n DhtNode) {
		rpc.SendGetPeers(id, n, t.InfoHash, now)
	})
	return t.converged
}

func (t *GetPeersTask) SetFailed(addr *net.UDPAddr) { t.base.setFailed(addr) }

func (t *GetPeersTask) HandleResponse(req Request, resp Response, addr *net.UDPAddr, table *RoutingTable, rpc *RPCManager, now time.Time) {
	table.AddContact(ContactRef{ID: resp.ID, Addr: addr}, now)
	table.HeardFrom(resp.ID, now)

	token, peers, nodes, err := decodeResponsePeers(resp.Body)
	if err != nil {
		return
	}
	if len(token) > 0 {
		rpc.StoreToken(addr, token, now)
	}
	for _, p := range peers {
		t.Peers[p.String()] = p
	}

	t.base.foldNodes(resp.ID, addr, nodes)
	for _, n := range nodes {
		table.AddContact(n, now)
	}
}

func (t *GetPeersTask) Done(id TaskID, rpc *RPCManager) bool {
	if !t.converged {
		return false
	}
	if !t.reported {
		t.reported = true
		peers := make([]*net.UDPAddr, 0, len(t.Peers))
		for _, p := range t.Peers {
			peers = append(peers, p)
		}
		rpc.pushEvent(Event{Kind: EventFoundPeers, Peers: peers, Task: id})
	}
	return true
}
