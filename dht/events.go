package dht

import (
	"net"
	"time"

	"github.com/hlessner/kadtorrent/bencode"
)

// EventKind distinguishes the four things a tick of the Dht can report to
// its caller.
type EventKind int

const (
	EventTransmit EventKind = iota
	EventReply
	EventFoundPeers
	EventBootstrapped
)

// Event is one unit of output work: either a datagram the caller must
// send, or a traversal outcome the caller may want to act on.
type Event struct {
	Kind EventKind

	// Transmit / Reply
	Data []byte
	Addr *net.UDPAddr

	// Transmit only
	TaskID TaskID
	NodeID ID

	// FoundPeers
	Peers []*net.UDPAddr

	// Bootstrapped / FoundPeers carry the owning task.
	Task TaskID
}

// tokenTTL bounds how long an announce token handed out by get_peers
// stays valid for the matching announce_peer.
const tokenTTL = 10 * time.Minute

type issuedToken struct {
	value   []byte
	expires time.Time
}

// RPCManager owns outgoing transaction bookkeeping, the announce-token
// cache, and the event queue the Dht drains every tick.
type RPCManager struct {
	ownID  ID
	nextID TxnID
	txns   *Transactions
	tokens map[string]issuedToken
	events []Event
}

// NewRPCManager returns a manager that will sign outgoing queries with
// ownID.
func NewRPCManager(ownID ID) *RPCManager {
	return &RPCManager{
		ownID:  ownID,
		txns:   NewTransactions(),
		tokens: make(map[string]issuedToken),
	}
}

func (r *RPCManager) pushEvent(e Event) { r.events = append(r.events, e) }

// PopEvent removes and returns the oldest queued event.
func (r *RPCManager) PopEvent() (Event, bool) {
	if len(r.events) == 0 {
		return Event{}, false
	}
	e := r.events[0]
	r.events = r.events[1:]
	return e, true
}

// HasEvents reports whether PopEvent would succeed.
func (r *RPCManager) HasEvents() bool { return len(r.events) > 0 }

func (r *RPCManager) send(taskID TaskID, node DhtNode, data []byte, txn TxnID, now time.Time) {
	r.txns.Insert(now, Request{
		TxnID:  txn,
		Addr:   node.Addr,
		HasID:  node.Status&NodeNoID == 0,
		ID:     node.ID,
		TaskID: taskID,
	})
	r.pushEvent(Event{Kind: EventTransmit, Data: data, Addr: node.Addr, TaskID: taskID, NodeID: node.ID})
}

// SendPing issues a ping query to node on behalf of taskID.
func (r *RPCManager) SendPing(taskID TaskID, node DhtNode, now time.Time) {
	txn := r.nextID.NextID()
	r.send(taskID, node, EncodePing(r.ownID, txn), txn, now)
}

// SendFindNode issues a find_node query toward target.
func (r *RPCManager) SendFindNode(taskID TaskID, node DhtNode, target ID, now time.Time) {
	txn := r.nextID.NextID()
	r.send(taskID, node, EncodeFindNode(r.ownID, target, txn), txn, now)
}

// SendGetPeers issues a get_peers query for infoHash.
func (r *RPCManager) SendGetPeers(taskID TaskID, node DhtNode, infoHash ID, now time.Time) {
	txn := r.nextID.NextID()
	r.send(taskID, node, EncodeGetPeers(r.ownID, infoHash, txn), txn, now)
}

// SendAnnouncePeer issues an announce_peer query using a token previously
// learned from node via get_peers. It reports false if no token is on
// file, in which case the caller should get_peers this node first.
func (r *RPCManager) SendAnnouncePeer(taskID TaskID, node DhtNode, infoHash ID, port uint16, now time.Time) bool {
	token, ok := r.tokenFor(node.Addr, now)
	if !ok {
		return false
	}
	txn := r.nextID.NextID()
	r.send(taskID, node, EncodeAnnouncePeer(r.ownID, infoHash, port == 0, port, token, txn), txn, now)
	return true
}

// StoreToken records a token a peer handed back in a get_peers reply, for
// later use by SendAnnouncePeer.
func (r *RPCManager) StoreToken(addr *net.UDPAddr, token []byte, now time.Time) {
	r.tokens[addr.String()] = issuedToken{value: append([]byte(nil), token...), expires: now.Add(tokenTTL)}
}

func (r *RPCManager) tokenFor(addr *net.UDPAddr, now time.Time) ([]byte, bool) {
	tok, ok := r.tokens[addr.String()]
	if !ok || now.After(tok.expires) {
		return nil, false
	}
	return tok.value, true
}

// HandleResponse resolves an incoming reply against the pending
// transaction table, reporting the original Request (with its task
// association) if the transaction ID was known.
func (r *RPCManager) HandleResponse(txn TxnID) (Request, bool) {
	return r.txns.Remove(txn)
}

// HandleError resolves an incoming error reply the same way a response
// would be.
func (r *RPCManager) HandleError(txn TxnID) (Request, bool) {
	return r.txns.Remove(txn)
}

// TxnsEmpty reports whether there are no outstanding transactions.
func (r *RPCManager) TxnsEmpty() bool { return r.txns.IsEmpty() }

// NextTxnTimeout returns the soonest pending transaction deadline.
func (r *RPCManager) NextTxnTimeout() (time.Time, bool) { return r.txns.NextTimeout() }

// CheckTimeouts drains every expired transaction and returns the list
// for the caller (the Dht orchestrator) to route into each owning task's
// SetFailed; nothing is queued on the event queue.
func (r *RPCManager) CheckTimeouts(now time.Time) []Request {
	return r.txns.CollectExpired(now)
}

// HandleQuery builds and returns the reply datagram for an incoming
// query; the caller queues it as a Reply event. table is only read. A
// get_peers query also updates the token cache as a side effect.
func (r *RPCManager) HandleQuery(q Query, addr *net.UDPAddr, table *RoutingTable, now time.Time) []byte {
	switch q.Type {
	case QueryPing:
		return r.reply(q.TxnID, func(d *bencode.DictEncoder) {
			d.InsertBytes("id", r.ownID[:])
		})

	case QueryFindNode:
		nodes := table.FindClosest(q.Target, BucketMaxLen)
		return r.reply(q.TxnID, func(d *bencode.DictEncoder) {
			d.InsertBytes("id", r.ownID[:])
			d.InsertBytes("nodes", encodeCompactNodes(nodes))
		})

	case QueryGetPeers:
		token := GenID()
		r.tokens[addr.String()] = issuedToken{value: token[:4], expires: now.Add(tokenTTL)}
		nodes := table.FindClosest(q.InfoHash, BucketMaxLen)
		return r.reply(q.TxnID, func(d *bencode.DictEncoder) {
			d.InsertBytes("id", r.ownID[:])
			d.InsertBytes("nodes", encodeCompactNodes(nodes))
			d.InsertBytes("token", token[:4])
		})

	case QueryAnnouncePeer:
		// This node does not yet serve as a peer-storage responder for
		// other swarms; acknowledge with a bare id reply, matching a
		// minimal-but-valid announce_peer response.
		return r.reply(q.TxnID, func(d *bencode.DictEncoder) {
			d.InsertBytes("id", r.ownID[:])
		})

	default:
		return r.reply(q.TxnID, func(d *bencode.DictEncoder) {
			d.InsertBytes("id", r.ownID[:])
		})
	}
}

func (r *RPCManager) reply(txn TxnID, fn func(*bencode.DictEncoder)) []byte {
	return encodeReply(txn, fn)
}

func encodeCompactNodes(nodes []*Contact) []byte {
	buf := make([]byte, 0, len(nodes)*CompactNodeLen)
	for _, n := range nodes {
		buf = n.WriteCompact(buf)
	}
	return buf
}
