package dht

import "net"

// ContactStatus records what a routing table knows about a contact's
// recent query history.
type ContactStatus uint8

const (
	StatusQueried      ContactStatus = 1 << 0
	StatusInitial      ContactStatus = 1 << 1
	StatusNoID         ContactStatus = 1 << 2
	StatusShortTimeout ContactStatus = 1 << 3
	StatusFailed       ContactStatus = 1 << 4
	StatusIPv6Address  ContactStatus = 1 << 5
	StatusAlive        ContactStatus = 1 << 6
	StatusDone         ContactStatus = 1 << 7
)

// Contact is a single entry in a routing table bucket: a node ID paired
// with the network address it was last seen at, plus liveness bookkeeping.
//
// timeoutCount mirrors the original Option<u8>: pinged tracks whether the
// node has ever been pinged at all (the None case), and timeoutCount
// counts consecutive failures since the last success (the Some(n) case).
type Contact struct {
	ID           ID
	Addr         *net.UDPAddr
	Status       ContactStatus
	pinged       bool
	timeoutCount uint8
}

// NewContact returns a freshly discovered, never-pinged contact.
func NewContact(id ID, addr *net.UDPAddr) Contact {
	return Contact{ID: id, Addr: addr, Status: StatusInitial}
}

// ContactRef is a lightweight, address-identity view of a Contact, used where
// only the ID and address are needed (e.g. before the contact is owned
// by a bucket).
type ContactRef struct {
	ID   ID
	Addr *net.UDPAddr
}

func (c Contact) AsRef() ContactRef { return ContactRef{ID: c.ID, Addr: c.Addr} }

func (r ContactRef) AsOwned() Contact { return NewContact(r.ID, r.Addr) }

func (c *Contact) IsPinged() bool { return c.pinged }

func (c *Contact) SetPinged() {
	if !c.pinged {
		c.pinged = true
		c.timeoutCount = 0
	}
}

// SetConfirmed marks the contact as having answered a query successfully:
// pinged and with zero consecutive failures.
func (c *Contact) SetConfirmed() {
	c.pinged = true
	c.timeoutCount = 0
}

func (c *Contact) TimedOut() {
	if c.pinged && c.timeoutCount < 255 {
		c.timeoutCount++
	}
}

func (c *Contact) FailCount() uint8 {
	if !c.pinged {
		return 0
	}
	return c.timeoutCount
}

func (c *Contact) Failed() bool { return c.FailCount() > 0 }

func (c *Contact) ClearTimeout() {
	if c.pinged {
		c.timeoutCount = 0
	}
}

// IsConfirmed reports whether the contact has been pinged with zero
// consecutive failures since.
func (c *Contact) IsConfirmed() bool { return c.pinged && c.timeoutCount == 0 }

// CompactNodeLen is the byte length of one IPv4 compact node record:
// a 20-byte ID followed by a 4-byte IP and 2-byte big-endian port.
const CompactNodeLen = 26

// CompactNodeV6Len is the byte length of one IPv6 compact node record.
const CompactNodeV6Len = 38

// WriteCompact appends this contact's compact node record (26 or 38
// bytes depending on address family) to buf.
func (c Contact) WriteCompact(buf []byte) []byte {
	buf = append(buf, c.ID[:]...)
	return writeAddr(buf, c.Addr)
}

func writeAddr(buf []byte, addr *net.UDPAddr) []byte {
	if ip4 := addr.IP.To4(); ip4 != nil {
		buf = append(buf, ip4...)
	} else {
		ip16 := addr.IP.To16()
		buf = append(buf, ip16...)
	}
	buf = append(buf, byte(addr.Port>>8), byte(addr.Port))
	return buf
}

// ParseCompactNodes decodes a run of IPv4 compact node records (length
// must be a multiple of CompactNodeLen).
func ParseCompactNodes(buf []byte) ([]ContactRef, error) {
	return parseCompactNodes(buf, CompactNodeLen, false)
}

// ParseCompactNodesV6 decodes a run of IPv6 compact node records (length
// must be a multiple of CompactNodeV6Len).
func ParseCompactNodesV6(buf []byte) ([]ContactRef, error) {
	return parseCompactNodes(buf, CompactNodeV6Len, true)
}

func parseCompactNodes(buf []byte, recLen int, v6 bool) ([]ContactRef, error) {
	if len(buf)%recLen != 0 {
		return nil, errInvalidCompactLen(recLen, len(buf))
	}
	out := make([]ContactRef, 0, len(buf)/recLen)
	for len(buf) >= recLen {
		var id ID
		copy(id[:], buf[:IDLen])

		var ip net.IP
		var port int
		if v6 {
			ip = append(net.IP(nil), buf[IDLen:IDLen+16]...)
			port = int(buf[IDLen+16])<<8 | int(buf[IDLen+17])
		} else {
			ip = append(net.IP(nil), buf[IDLen:IDLen+4]...)
			port = int(buf[IDLen+4])<<8 | int(buf[IDLen+5])
		}

		out = append(out, ContactRef{ID: id, Addr: &net.UDPAddr{IP: ip, Port: port}})
		buf = buf[recLen:]
	}
	return out, nil
}
