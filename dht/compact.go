package dht

import (
	"net"

	"github.com/hlessner/kadtorrent/bencode"
)

// decodeResponseNodes re-parses a response's raw body bytes for its
// "nodes" (and, if present, "nodes6") compact node lists.
func decodeResponseNodes(body []byte) ([]ContactRef, error) {
	p := bencode.NewParser()
	entry, err := p.Parse(body)
	if err != nil {
		return nil, err
	}
	dict, ok := entry.AsDict()
	if !ok {
		return nil, errNotADict
	}

	var out []ContactRef
	if raw, ok := dict.GetBytes("nodes"); ok {
		nodes, err := ParseCompactNodes(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	if raw, ok := dict.GetBytes("nodes6"); ok {
		nodes, err := ParseCompactNodesV6(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// CompactPeerLen is the byte length of one IPv4 compact peer record: a
// 4-byte IP followed by a 2-byte big-endian port (no node ID, unlike a
// compact node record).
const CompactPeerLen = 6

// CompactPeerV6Len is the byte length of one IPv6 compact peer record.
const CompactPeerV6Len = 18

// decodePeer decodes a single compact peer record.
func decodePeer(buf []byte, v6 bool) (*net.UDPAddr, error) {
	recLen := CompactPeerLen
	if v6 {
		recLen = CompactPeerV6Len
	}
	if len(buf) != recLen {
		return nil, errInvalidCompactLen(recLen, len(buf))
	}
	ipLen := recLen - 2
	ip := append(net.IP(nil), buf[:ipLen]...)
	port := int(buf[ipLen])<<8 | int(buf[ipLen+1])
	return &net.UDPAddr{IP: ip, Port: port}, nil
}

// decodePeersFromValues decodes a get_peers response's "values" list,
// where each element is its own compact peer record byte string.
func decodePeersFromValues(values bencode.ListView, v6 bool) []*net.UDPAddr {
	var out []*net.UDPAddr
	it := values.Iter()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		raw, ok := e.AsBytes()
		if !ok {
			continue
		}
		addr, err := decodePeer(raw, v6)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// decodeResponsePeers re-parses a get_peers response body for its token,
// any discovered peers, and any discovered closer nodes.
func decodeResponsePeers(body []byte) (token []byte, peers []*net.UDPAddr, nodes []ContactRef, err error) {
	p := bencode.NewParser()
	entry, perr := p.Parse(body)
	if perr != nil {
		return nil, nil, nil, perr
	}
	dict, ok := entry.AsDict()
	if !ok {
		return nil, nil, nil, errNotADict
	}

	if raw, ok := dict.GetBytes("token"); ok {
		token = append([]byte(nil), raw...)
	}
	if values, ok := dict.GetList("values"); ok {
		peers = append(peers, decodePeersFromValues(values, false)...)
	}
	if values6, ok := dict.GetList("values6"); ok {
		peers = append(peers, decodePeersFromValues(values6, true)...)
	}
	nodes, err = decodeResponseNodes(body)
	return token, peers, nodes, err
}
