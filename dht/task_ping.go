package dht

import (
	"net"
	"time"
)

// PingTask is a single-shot liveness check against one node, used both
// for explicit client ping requests and for the routing table's own
// bucket-refresh policy (ping the stalest node before evicting it).
type PingTask struct {
	node     DhtNode
	invoked  bool
	answered bool
	failed   bool
}

// NewPingTask targets a single contact.
func NewPingTask(id ID, addr *net.UDPAddr) *PingTask {
	return &PingTask{node: DhtNode{ID: id, Addr: addr, Status: NodeInitial}}
}

func (t *PingTask) AddRequests(id TaskID, rpc *RPCManager, now time.Time) bool {
	if t.invoked {
		return t.answered || t.failed
	}
	t.invoked = true
	rpc.SendPing(id, t.node, now)
	return false
}

func (t *PingTask) SetFailed(addr *net.UDPAddr) {
	if sameAddr(t.node.Addr, addr) {
		t.failed = true
	}
}

func (t *PingTask) HandleResponse(req Request, resp Response, addr *net.UDPAddr, table *RoutingTable, rpc *RPCManager, now time.Time) {
	if !sameAddr(t.node.Addr, addr) {
		return
	}
	table.AddContact(ContactRef{ID: resp.ID, Addr: addr}, now)
	table.HeardFrom(resp.ID, now)
	t.answered = true
}

func (t *PingTask) Done(id TaskID, rpc *RPCManager) bool {
	return t.answered || t.failed
}
