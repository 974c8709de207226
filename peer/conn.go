package peer

// Conn holds one peer connection's protocol state: what we've decided to
// send, whether the remote is choking/interested in us, and the
// remote's known pieces. It owns no socket; the caller drains SendBuf
// and feeds received bytes through Decode.
type Conn struct {
	SendBuf []byte

	// Choked reports whether the remote peer is choking us.
	Choked bool
	// Interested reports whether we've told the remote we're interested.
	Interested bool
	// PeerChoked reports whether we are choking the remote.
	PeerChoked bool
	// PeerInterested reports whether the remote has told us it's interested.
	PeerInterested bool

	RemoteBitfield Bitfield
}

// NewConn returns a connection in the standard initial state: both sides
// choking, neither interested, and an empty remote bitfield of numPieces
// bits.
func NewConn(numPieces int) *Conn {
	return &Conn{
		Choked:         true,
		PeerChoked:     true,
		RemoteBitfield: NewEmptyBitfield(numPieces),
	}
}

func (c *Conn) queue(data []byte) { c.SendBuf = append(c.SendBuf, data...) }

func (c *Conn) SendChoke() {
	c.PeerChoked = true
	c.queue(EncodeChoke())
}

func (c *Conn) SendUnchoke() {
	c.PeerChoked = false
	c.queue(EncodeUnchoke())
}

func (c *Conn) SendInterested() {
	c.Interested = true
	c.queue(EncodeInterested())
}

func (c *Conn) SendNotInterested() {
	c.Interested = false
	c.queue(EncodeNotInterested())
}

func (c *Conn) SendHave(index int) { c.queue(EncodeHave(index)) }

func (c *Conn) SendBitfield(bits []byte) { c.queue(EncodeBitfield(bits)) }

func (c *Conn) SendRequest(index, begin, length int) {
	c.queue(EncodeRequest(index, begin, length))
}

func (c *Conn) SendPiece(index, begin int, block []byte) {
	c.queue(EncodePiece(index, begin, block))
}

func (c *Conn) SendCancel(index, begin, length int) {
	c.queue(EncodeCancel(index, begin, length))
}

// RecvChoke handles an incoming Choke message.
func (c *Conn) RecvChoke() { c.Choked = true }

// RecvUnchoke handles an incoming Unchoke message.
func (c *Conn) RecvUnchoke() { c.Choked = false }

// RecvInterested handles an incoming Interested message, auto-replying
// with an Unchoke if we were still choking the remote.
func (c *Conn) RecvInterested() {
	c.PeerInterested = true
	if c.PeerChoked {
		c.SendUnchoke()
	}
}

// RecvNotInterested handles an incoming NotInterested message.
func (c *Conn) RecvNotInterested() { c.PeerInterested = false }

// RecvHave marks piece index present in the remote's bitfield.
func (c *Conn) RecvHave(index int) { c.RemoteBitfield.Set(index) }

// RecvBitfield replaces the remote's known pieces wholesale, as sent
// right after a handshake.
func (c *Conn) RecvBitfield(bits []byte) {
	c.RemoteBitfield = NewBitfield(bits, c.RemoteBitfield.Len())
}
