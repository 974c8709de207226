package dht

import (
	"net"
	"time"

	"github.com/rs/zerolog"
)

// ClientRequestKind distinguishes the lookups a caller can ask the
// server to run.
type ClientRequestKind int

const (
	ReqPing ClientRequestKind = iota
	ReqBootstrap
	ReqGetPeers
	ReqAnnounce
)

// ClientRequest describes one lookup the caller wants started.
type ClientRequest struct {
	Kind     ClientRequestKind
	ID       ID           // Ping
	Addr     *net.UDPAddr // Ping
	InfoHash ID           // GetPeers, Announce
	Port     uint16       // Announce
}

// Server is a sans-I/O Kademlia DHT node: every blocking operation a
// real implementation needs (waiting for replies, scheduling bucket
// refreshes, timing out stalled lookups) is instead surfaced through
// PollEvent/PollTimeout/Tick, leaving socket I/O and timer management to
// the caller.
type Server struct {
	OwnID   ID
	Table   *RoutingTable
	Rpc     *RPCManager
	Routers []*net.UDPAddr
	Logger  zerolog.Logger

	tasks      map[TaskID]Task
	nextTaskID TaskID
}

// NewServer returns an idle server rooted at ownID, with routerNodes
// available as bootstrap-only contacts. Logging is disabled by default;
// set Logger to enable it.
func NewServer(ownID ID, routerNodes []*net.UDPAddr, now time.Time) *Server {
	return &Server{
		OwnID:   ownID,
		Table:   NewRoutingTable(ownID, routerNodes, now),
		Rpc:     NewRPCManager(ownID),
		Routers: routerNodes,
		Logger:  zerolog.Nop(),
		tasks:   make(map[TaskID]Task),
	}
}

// IsIdle reports whether the server has no running lookups and no
// outstanding transactions: nothing would happen even if ticked.
func (s *Server) IsIdle() bool {
	return len(s.tasks) == 0 && s.Rpc.TxnsEmpty()
}

// PollEvent removes and returns the oldest queued event, if any.
func (s *Server) PollEvent() (Event, bool) {
	return s.Rpc.PopEvent()
}

// PollTimeout returns the earliest instant the caller should next call
// Tick at, even with no new datagrams: the sooner of the next
// transaction timeout and the next due bucket refresh.
func (s *Server) PollTimeout() (time.Time, bool) {
	next, ok := s.Rpc.NextTxnTimeout()
	refresh := s.Table.NextTimeout()
	if !ok || refresh.Before(next) {
		next, ok = refresh, true
	}
	return next, ok
}

// Tick drives time forward: expired transactions fail their owning
// tasks, and a due bucket refresh starts a ping or a lookup.
func (s *Server) Tick(now time.Time) {
	expired := s.Rpc.CheckTimeouts(now)
	touched := make(map[TaskID]bool, len(expired))
	for _, req := range expired {
		if req.HasID {
			s.Table.Failed(req.ID)
		}
		if task, ok := s.tasks[req.TaskID]; ok {
			task.SetFailed(req.Addr)
			touched[req.TaskID] = true
		}
	}
	for id := range touched {
		s.drive(id, now)
	}

	if action, ok := s.Table.NextRefresh(now); ok {
		switch {
		case action.Ping:
			s.AddRequest(ClientRequest{Kind: ReqPing, ID: action.ID, Addr: action.Addr}, now)
		case action.Bootstrap:
			s.startTask(NewRefreshTask(action.Target, s.Table, s.Routers), now)
		}
	}
}

// AddRequest starts a new lookup and reports the TaskID it was assigned,
// or false if it converged immediately (e.g. a bootstrap with an empty
// table and no router nodes, which has nothing to query) and was retired
// at once.
func (s *Server) AddRequest(req ClientRequest, now time.Time) (TaskID, bool) {
	var task Task
	switch req.Kind {
	case ReqPing:
		task = NewPingTask(req.ID, req.Addr)
	case ReqBootstrap:
		task = NewBootstrapTask(s.OwnID, s.Table, s.Routers)
	case ReqGetPeers:
		task = NewGetPeersTask(req.InfoHash, s.Table, s.Routers)
	case ReqAnnounce:
		task = NewAnnounceTask(req.InfoHash, req.Port, s.Table, s.Routers)
	default:
		return 0, false
	}
	return s.startTask(task, now)
}

func (s *Server) startTask(task Task, now time.Time) (TaskID, bool) {
	id := s.nextTaskID
	s.nextTaskID++
	s.tasks[id] = task
	s.drive(id, now)
	if _, stillRunning := s.tasks[id]; !stillRunning {
		return id, false
	}
	return id, true
}

// drive asks the named task to send its next batch of queries and
// retires it once it reports Done.
func (s *Server) drive(id TaskID, now time.Time) {
	task, ok := s.tasks[id]
	if !ok {
		return
	}
	task.AddRequests(id, s.Rpc, now)
	if task.Done(id, s.Rpc) {
		delete(s.tasks, id)
	}
}

// SetFailed tells the server a send to addr is known to have failed
// (e.g. the OS reported the destination unreachable) without waiting for
// the transaction timeout.
func (s *Server) SetFailed(addr *net.UDPAddr) {
	for id, task := range s.tasks {
		task.SetFailed(addr)
		if task.Done(id, s.Rpc) {
			delete(s.tasks, id)
		}
	}
}

// Receive processes one inbound datagram: queries are answered inline
// (queuing a Reply event), responses and errors are routed to their
// owning task.
func (s *Server) Receive(buf []byte, addr *net.UDPAddr, now time.Time) error {
	msg, err := DecodeMsg(buf)
	if err != nil {
		s.Logger.Debug().Err(err).Stringer("addr", addr).Msg("dropping malformed krpc datagram")
		return err
	}

	switch msg.Kind {
	case MsgQuery:
		s.Table.AddContact(ContactRef{ID: msg.Query.ID, Addr: addr}, now)
		reply := s.Rpc.HandleQuery(msg.Query, addr, s.Table, now)
		s.Rpc.pushEvent(Event{Kind: EventReply, Data: reply, Addr: addr})

	case MsgResponse:
		req, ok := s.Rpc.HandleResponse(msg.Response.TxnID)
		if !ok {
			s.Logger.Debug().Stringer("addr", addr).Uint16("txn", uint16(msg.Response.TxnID)).
				Msg("dropping response for unknown transaction")
			return nil
		}
		if req.HasID && req.ID != msg.Response.ID {
			s.Logger.Debug().Stringer("addr", addr).Str("expected", req.ID.String()).
				Str("got", msg.Response.ID.String()).Msg("response node id does not match expected contact")
			s.Table.Failed(req.ID)
			if task, ok := s.tasks[req.TaskID]; ok {
				task.SetFailed(addr)
				s.drive(req.TaskID, now)
			}
			return nil
		}
		s.Table.AddContact(ContactRef{ID: msg.Response.ID, Addr: addr}, now)
		if task, ok := s.tasks[req.TaskID]; ok {
			task.HandleResponse(req, msg.Response, addr, s.Table, s.Rpc, now)
			s.drive(req.TaskID, now)
		}

	case MsgError:
		req, ok := s.Rpc.HandleError(msg.Error.TxnID)
		if !ok {
			s.Logger.Debug().Stringer("addr", addr).Uint16("txn", uint16(msg.Error.TxnID)).
				Msg("dropping error for unknown transaction")
			return nil
		}
		if req.HasID {
			s.Table.Failed(req.ID)
		}
		if task, ok := s.tasks[req.TaskID]; ok {
			task.SetFailed(addr)
			s.drive(req.TaskID, now)
		}
	}

	return nil
}
