package dht

import "github.com/hlessner/kadtorrent/bencode"

func txnBytes(t TxnID) []byte {
	return []byte{byte(t >> 8), byte(t)}
}

func encodeQuery(txn TxnID, q string, args func(*bencode.DictEncoder)) []byte {
	var buf []byte
	enc := bencode.NewEncoder(&buf)
	enc.Dict(func(d *bencode.DictEncoder) {
		d.InsertDict("a", args)
		d.InsertStr("q", q)
		d.InsertBytes("t", txnBytes(txn))
		d.InsertStr("y", "q")
	})
	return buf
}

// EncodePing builds a "ping" query.
func EncodePing(id ID, txn TxnID) []byte {
	return encodeQuery(txn, "ping", func(a *bencode.DictEncoder) {
		a.InsertBytes("id", id[:])
	})
}

// EncodeFindNode builds a "find_node" query.
func EncodeFindNode(id, target ID, txn TxnID) []byte {
	return encodeQuery(txn, "find_node", func(a *bencode.DictEncoder) {
		a.InsertBytes("id", id[:])
		a.InsertBytes("target", target[:])
	})
}

// EncodeGetPeers builds a "get_peers" query.
func EncodeGetPeers(id, infoHash ID, txn TxnID) []byte {
	return encodeQuery(txn, "get_peers", func(a *bencode.DictEncoder) {
		a.InsertBytes("id", id[:])
		a.InsertBytes("info_hash", infoHash[:])
	})
}

// EncodeAnnouncePeer builds an "announce_peer" query. Key insertion order
// inside "a" (id, implied_port, info_hash, port, token) must stay
// alphabetical: the Dict encoder panics on out-of-order keys.
func EncodeAnnouncePeer(id, infoHash ID, impliedPort bool, port uint16, token []byte, txn TxnID) []byte {
	return encodeQuery(txn, "announce_peer", func(a *bencode.DictEncoder) {
		a.InsertBytes("id", id[:])
		if impliedPort {
			a.InsertInt("implied_port", 1)
		} else {
			a.InsertInt("implied_port", 0)
		}
		a.InsertBytes("info_hash", infoHash[:])
		a.InsertInt("port", int64(port))
		a.InsertBytes("token", token)
	})
}

// encodeReply builds an "r" response whose body is filled by fn.
func encodeReply(txn TxnID, fn func(*bencode.DictEncoder)) []byte {
	var buf []byte
	enc := bencode.NewEncoder(&buf)
	enc.Dict(func(d *bencode.DictEncoder) {
		d.InsertDict("r", fn)
		d.InsertBytes("t", txnBytes(txn))
		d.InsertStr("y", "r")
	})
	return buf
}
