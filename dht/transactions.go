package dht

import (
	"net"
	"time"
)

// transactionTimeout is how long an outstanding query waits for a reply
// before CollectExpired reports it as timed out.
const transactionTimeout = 5 * time.Second

// TaskID identifies a running traversal task.
type TaskID int

// Request is the bookkeeping kept for one outstanding query: who it was
// sent to, when it is due, and which task (if any) should be notified.
type Request struct {
	TxnID   TxnID
	Addr    *net.UDPAddr
	Timeout time.Time
	// HasID is false when the reply's sender ID is unknown ahead of
	// time (a fresh contact): in that case the response's own id field
	// substitutes for the placeholder ZeroID used when the query was sent.
	HasID  bool
	ID     ID
	TaskID TaskID
}

// Transactions tracks every query this node has sent and is still
// awaiting a reply for.
type Transactions struct {
	pending map[TxnID]Request
	timeout time.Duration
}

// NewTransactions returns an empty table using the standard 5s timeout.
func NewTransactions() *Transactions {
	return &Transactions{pending: make(map[TxnID]Request), timeout: transactionTimeout}
}

// Insert records a newly sent query.
func (tx *Transactions) Insert(now time.Time, req Request) {
	req.Timeout = now.Add(tx.timeout)
	tx.pending[req.TxnID] = req
}

// Remove pops and returns the pending request for txn, if any.
func (tx *Transactions) Remove(txn TxnID) (Request, bool) {
	req, ok := tx.pending[txn]
	if ok {
		delete(tx.pending, txn)
	}
	return req, ok
}

// IsEmpty reports whether there are no outstanding requests.
func (tx *Transactions) IsEmpty() bool { return len(tx.pending) == 0 }

// NextTimeout returns the soonest deadline among pending requests, or the
// zero time if there are none.
func (tx *Transactions) NextTimeout() (time.Time, bool) {
	var min time.Time
	found := false
	for _, r := range tx.pending {
		if !found || r.Timeout.Before(min) {
			min = r.Timeout
			found = true
		}
	}
	return min, found
}

// CollectExpired removes and returns every request whose deadline has
// passed as of now.
func (tx *Transactions) CollectExpired(now time.Time) []Request {
	var expired []Request
	for id, r := range tx.pending {
		if !now.Before(r.Timeout) {
			expired = append(expired, r)
			delete(tx.pending, id)
		}
	}
	return expired
}
