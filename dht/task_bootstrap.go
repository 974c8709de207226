package dht

import (
	"net"
	"time"
)

// BootstrapTask runs an iterative find_node lookup for our own ID,
// populating the routing table with whatever the network hands back.
type BootstrapTask struct {
	base      *BaseTask
	converged bool
	reported  bool
}

// NewBootstrapTask seeds a bootstrap lookup for ownID, starting from the
// router nodes (a fresh table has nothing closer to offer).
func NewBootstrapTask(ownID ID, table *RoutingTable, routers []*net.UDPAddr) *BootstrapTask {
	return &BootstrapTask{base: NewBaseTask(ownID, table, routers)}
}

func (t *BootstrapTask) AddRequests(id TaskID, rpc *RPCManager, now time.Time) bool {
	t.converged = t.base.addRequests(func(n DhtNode) {
		rpc.SendFindNode(id, n, t.base.Target, now)
	})
	return t.converged
}

func (t *BootstrapTask) SetFailed(addr *net.UDPAddr) { t.base.setFailed(addr) }

func (t *BootstrapTask) HandleResponse(req Request, resp Response, addr *net.UDPAddr, table *RoutingTable, rpc *RPCManager, now time.Time) {
	table.AddContact(ContactRef{ID: resp.ID, Addr: addr}, now)
	table.HeardFrom(resp.ID, now)

	nodes, _ := decodeResponseNodes(resp.Body)
	t.base.foldNodes(resp.ID, addr, nodes)
	for _, n := range nodes {
		table.AddContact(n, now)
	}
}

func (t *BootstrapTask) Done(id TaskID, rpc *RPCManager) bool {
	if !t.converged {
		return false
	}
	if !t.reported {
		t.reported = true
		rpc.pushEvent(Event{Kind: EventBootstrapped, Task: id})
	}
	return true
}
