package dht

import (
	"net"
	"sort"
	"time"
)

// maxTaskNodes bounds how many candidate nodes a single traversal keeps
// around; past this the furthest candidates are dropped rather than
// letting a large network make a lookup grow without bound.
const maxTaskNodes = 100

// taskBranchFactor is the number of nodes queried at once ("alpha" in the
// Kademlia paper).
const taskBranchFactor = 3

// taskTargetAlive is how many alive responses a lookup wants before it
// considers itself converged (Kademlia's 'K').
const taskTargetAlive = BucketMaxLen

// NodeStatus tracks what a single traversal has learned about one
// candidate node, independent of the routing table's own Contact
// bookkeeping.
type NodeStatus uint8

const (
	NodeInitial NodeStatus = 1 << 0
	NodeQueried NodeStatus = 1 << 1
	NodeAlive   NodeStatus = 1 << 2
	NodeFailed  NodeStatus = 1 << 3
	NodeNoID    NodeStatus = 1 << 4
)

// DhtNode is one candidate in a traversal's working set.
type DhtNode struct {
	ID     ID
	Addr   *net.UDPAddr
	Status NodeStatus
}

func newDhtNode(ref ContactRef) DhtNode {
	return DhtNode{ID: ref.ID, Addr: ref.Addr, Status: NodeInitial}
}

// Task is a single in-flight iterative lookup: bootstrap, get_peers,
// announce, or a one-shot ping.
type Task interface {
	// AddRequests sends up to taskBranchFactor queries for any node in
	// this task's working set that hasn't been queried yet, and reports
	// whether the task has converged and should be removed.
	AddRequests(id TaskID, rpc *RPCManager, now time.Time) bool
	// SetFailed marks the node that owns addr as failed after its
	// transaction timed out.
	SetFailed(addr *net.UDPAddr)
	// HandleResponse folds a reply for one of this task's outstanding
	// requests back into its working set.
	HandleResponse(req Request, resp Response, addr *net.UDPAddr, table *RoutingTable, rpc *RPCManager, now time.Time)
	// Done reports whether the task has nothing left to do, pushing any
	// terminal event (FoundPeers, Bootstrapped) it owes the caller.
	Done(id TaskID, rpc *RPCManager) bool
}

// BaseTask implements the iterative-deepening lookup shared by
// bootstrap, get_peers, and announce: keep a working set of the closest
// known nodes, query the nearest unqueried ones, and fold every reply's
// "nodes" field back in until nothing closer is left to ask.
type BaseTask struct {
	Target  ID
	Nodes   []DhtNode
	invoked int
}

// NewBaseTask seeds a lookup from the routing table's closest known
// contacts, falling back to the configured router nodes when the table
// doesn't yet know enough peers to reach the branch factor.
func NewBaseTask(target ID, table *RoutingTable, routers []*net.UDPAddr) *BaseTask {
	bt := &BaseTask{Target: target}
	closest := table.FindClosest(target, taskTargetAlive)
	for _, c := range closest {
		bt.Nodes = append(bt.Nodes, newDhtNode(c.AsRef()))
	}
	if len(bt.Nodes) < taskBranchFactor {
		for _, addr := range routers {
			bt.Nodes = append(bt.Nodes, DhtNode{Addr: addr, Status: NodeInitial | NodeNoID})
		}
	}
	bt.sortByDistance()
	return bt
}

func (bt *BaseTask) sortByDistance() {
	sort.SliceStable(bt.Nodes, func(i, j int) bool {
		return bt.Target.Xor(bt.Nodes[i].ID).Less(bt.Target.Xor(bt.Nodes[j].ID))
	})
}

func (bt *BaseTask) truncate() {
	if len(bt.Nodes) > maxTaskNodes {
		bt.Nodes = bt.Nodes[:maxTaskNodes]
	}
}

// addRequests sends send(node) for up to taskBranchFactor unqueried
// nodes and reports whether the lookup has converged.
func (bt *BaseTask) addRequests(send func(DhtNode)) bool {
	sent := 0
	for i := range bt.Nodes {
		if sent >= taskBranchFactor {
			break
		}
		n := &bt.Nodes[i]
		if n.Status&NodeQueried != 0 {
			continue
		}
		n.Status |= NodeQueried
		bt.invoked++
		send(*n)
		sent++
	}
	return bt.converged()
}

// converged reports whether the lookup has nothing left to gain from
// further rounds: either it already has taskTargetAlive confirmed
// replies, or every node it has ever learned about has been queried and
// none are still in flight.
func (bt *BaseTask) converged() bool {
	if bt.invoked == 0 {
		return true
	}
	pending, alive, unqueried := 0, 0, 0
	for _, n := range bt.Nodes {
		switch {
		case n.Status&(NodeAlive|NodeFailed) != 0:
			if n.Status&NodeAlive != 0 {
				alive++
			}
		case n.Status&NodeQueried != 0:
			pending++
		default:
			unqueried++
		}
	}
	if pending != 0 {
		return false
	}
	return alive >= taskTargetAlive || unqueried == 0
}

func (bt *BaseTask) setFailed(addr *net.UDPAddr) {
	for i := range bt.Nodes {
		if sameAddr(bt.Nodes[i].Addr, addr) {
			bt.Nodes[i].Status |= NodeFailed
			return
		}
	}
}

// foldNodes marks the responder alive (assigning its real ID if it had
// been queried blind) and merges newly learned candidates in, nearest
// first, dropping anything past maxTaskNodes.
func (bt *BaseTask) foldNodes(id ID, addr *net.UDPAddr, discovered []ContactRef) {
	for i := range bt.Nodes {
		if sameAddr(bt.Nodes[i].Addr, addr) {
			bt.Nodes[i].ID = id
			bt.Nodes[i].Status |= NodeAlive
			bt.Nodes[i].Status &^= NodeNoID
			break
		}
	}

	existing := make(map[ID]struct{}, len(bt.Nodes))
	for _, n := range bt.Nodes {
		existing[n.ID] = struct{}{}
	}
	for _, ref := range discovered {
		if _, ok := existing[ref.ID]; ok {
			continue
		}
		existing[ref.ID] = struct{}{}
		bt.Nodes = append(bt.Nodes, newDhtNode(ref))
	}

	bt.sortByDistance()
	bt.truncate()
}
