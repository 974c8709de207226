package dht

import (
	"net"
	"time"
)

// RefreshTask runs a silent find_node lookup toward a synthetic target,
// used only to keep an under-populated bucket's knowledge of the network
// current. Unlike BootstrapTask it reports no event when it converges.
type RefreshTask struct {
	base      *BaseTask
	converged bool
}

// NewRefreshTask seeds a lookup toward target.
func NewRefreshTask(target ID, table *RoutingTable, routers []*net.UDPAddr) *RefreshTask {
	return &RefreshTask{base: NewBaseTask(target, table, routers)}
}

func (t *RefreshTask) AddRequests(id TaskID, rpc *RPCManager, now time.Time) bool {
	t.converged = t.base.addRequests(func(n DhtNode) {
		rpc.SendFindNode(id, n, t.base.Target, now)
	})
	return t.converged
}

func (t *RefreshTask) SetFailed(addr *net.UDPAddr) { t.base.setFailed(addr) }

func (t *RefreshTask) HandleResponse(req Request, resp Response, addr *net.UDPAddr, table *RoutingTable, rpc *RPCManager, now time.Time) {
	table.AddContact(ContactRef{ID: resp.ID, Addr: addr}, now)
	table.HeardFrom(resp.ID, now)

	nodes, _ := decodeResponseNodes(resp.Body)
	t.base.foldNodes(resp.ID, addr, nodes)
	for _, n := range nodes {
		table.AddContact(n, now)
	}
}

func (t *RefreshTask) Done(id TaskID, rpc *RPCManager) bool { return t.converged }
