package dht

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/hlessner/kadtorrent/bencode"
)

// IDLen is the length in bytes of a Kademlia node ID (160 bits).
const IDLen = 20

// ID is a 160-bit Kademlia node identifier.
type ID [IDLen]byte

// ZeroID is the all-zero ID.
var ZeroID ID

// MaxID is the all-0xff ID, the largest possible ID under the natural
// byte-lexicographic ordering.
var MaxID = AllID(0xff)

// AllID returns an ID with every byte set to b.
func AllID(b byte) ID {
	var id ID
	for i := range id {
		id[i] = b
	}
	return id
}

// GenID returns a cryptographically random ID.
func GenID() ID {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("dht: failed to read random bytes: %v", err))
	}
	return id
}

// IDFromHex decodes a 40-character hex string into an ID.
func IDFromHex(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("dht: invalid hex node ID: %w", err)
	}
	if len(b) != IDLen {
		return id, fmt.Errorf("dht: invalid node ID length: got %d want %d", len(b), IDLen)
	}
	copy(id[:], b)
	return id, nil
}

func (id ID) String() string { return hex.EncodeToString(id[:]) }

func (id ID) IsZero() bool { return id == ZeroID }

// Less reports whether id sorts before other under big-endian byte order.
func (id ID) Less(other ID) bool { return bytes.Compare(id[:], other[:]) < 0 }

// Xor returns id XOR other.
func (id ID) Xor(other ID) ID {
	var out ID
	for i := range out {
		out[i] = id[i] ^ other[i]
	}
	return out
}

// LeadingZeros returns the number of leading zero bits in id.
func (id ID) LeadingZeros() int {
	n := 0
	for _, c := range id {
		if c == 0 {
			n += 8
			continue
		}
		n += leadingZerosByte(c)
		break
	}
	return n
}

func leadingZerosByte(c byte) int {
	n := 0
	for mask := byte(0x80); mask != 0 && c&mask == 0; mask >>= 1 {
		n++
	}
	return n
}

// XorLeadingZeros returns the number of leading zero bits in id XOR other,
// which is the bucket index a contact with id `other` falls into relative
// to a routing table rooted at `id`.
func (id ID) XorLeadingZeros(other ID) int {
	return id.Xor(other).LeadingZeros()
}

// maskLeadingZeros clears the top `zeros` bits of id; NextRefresh uses it
// to build a random refresh target with a given number of leading zeros.
func (id ID) maskLeadingZeros(zeros int) ID {
	if zeros >= IDLen*8 {
		return ZeroID
	}
	out := id
	for i := 0; i < zeros/8; i++ {
		out[i] = 0
	}
	if zeros%8 != 0 {
		idx := zeros / 8
		out[idx] &= 0xff >> uint(zeros%8)
	}
	return out
}

// MarshalBencode encodes id as a bencode byte string, for embedding in
// compact node/peer records and KRPC argument dicts.
func (id ID) MarshalBencode(enc *bencode.Encoder) {
	enc.Bytes(id[:])
}

// IDFromEntry reads an ID out of a bencode byte-string entry.
func IDFromEntry(e bencode.Entry) (ID, bool) {
	var id ID
	b, ok := e.AsBytes()
	if !ok || len(b) != IDLen {
		return id, false
	}
	copy(id[:], b)
	return id, true
}
