package dht

// TxnID is the 2-byte big-endian transaction identifier KRPC messages
// are correlated by.
type TxnID uint16

// NextID returns the current ID and advances the counter, wrapping on
// overflow.
func (t *TxnID) NextID() TxnID {
	out := *t
	*t++
	return out
}

// QueryType distinguishes the four KRPC query methods this client speaks.
type QueryType int

const (
	QueryPing QueryType = iota
	QueryFindNode
	QueryGetPeers
	QueryAnnouncePeer
)

// MsgKind distinguishes the three top-level KRPC message shapes.
type MsgKind int

const (
	MsgQuery MsgKind = iota
	MsgResponse
	MsgError
)

// Query is a decoded "q" message.
type Query struct {
	TxnID       TxnID
	ID          ID
	Type        QueryType
	Target      ID
	InfoHash    ID
	ImpliedPort bool
	Port        uint16
	Token       []byte
}

// Response is a decoded "r" message; Body retains the full reply dict so
// callers can pull out method-specific fields (nodes, values, token).
type Response struct {
	TxnID TxnID
	ID    ID
	Body  []byte
}

// ErrorResponse is a decoded "e" message.
type ErrorResponse struct {
	TxnID TxnID
}

// Msg is the decoded form of any incoming KRPC datagram.
type Msg struct {
	Kind     MsgKind
	Query    Query
	Response Response
	Error    ErrorResponse
}
