package dht

import "github.com/hlessner/kadtorrent/bencode"

func txnFromBytes(b []byte) (TxnID, bool) {
	if len(b) != 2 {
		return 0, false
	}
	return TxnID(b[0])<<8 | TxnID(b[1]), true
}

func idFromDict(d bencode.DictView, key string) (ID, bool) {
	e, ok := d.Get(key)
	if !ok {
		return ID{}, false
	}
	return IDFromEntry(e)
}

// DecodeMsg parses a raw KRPC datagram into its Query/Response/Error form.
func DecodeMsg(buf []byte) (Msg, error) {
	p := bencode.NewParser()
	entry, err := p.Parse(buf)
	if err != nil {
		return Msg{}, err
	}
	dict, ok := entry.AsDict()
	if !ok {
		return Msg{}, errNotADict
	}

	txnRaw, ok := dict.GetBytes("t")
	if !ok {
		return Msg{}, errMissingField("t")
	}
	txn, ok := txnFromBytes(txnRaw)
	if !ok {
		return Msg{}, errMalformedField("t")
	}

	y, ok := dict.GetAsciiStr("y")
	if !ok {
		return Msg{}, errMissingField("y")
	}

	switch y {
	case "q":
		return decodeQuery(dict, txn)
	case "r":
		return decodeResponse(dict, txn)
	case "e":
		return Msg{Kind: MsgError, Error: ErrorResponse{TxnID: txn}}, nil
	default:
		return Msg{}, errUnknownMsgKind(y)
	}
}

func decodeQuery(dict bencode.DictView, txn TxnID) (Msg, error) {
	method, ok := dict.GetAsciiStr("q")
	if !ok {
		return Msg{}, errMissingField("q")
	}
	args, ok := dict.GetDict("a")
	if !ok {
		return Msg{}, errMissingField("a")
	}

	id, ok := idFromDict(args, "id")
	if !ok {
		return Msg{}, errMissingField("a.id")
	}

	q := Query{TxnID: txn, ID: id}

	switch method {
	case "ping":
		q.Type = QueryPing
	case "find_node":
		target, ok := idFromDict(args, "target")
		if !ok {
			return Msg{}, errMissingField("a.target")
		}
		q.Type = QueryFindNode
		q.Target = target
	case "get_peers":
		ih, ok := idFromDict(args, "info_hash")
		if !ok {
			return Msg{}, errMissingField("a.info_hash")
		}
		q.Type = QueryGetPeers
		q.InfoHash = ih
	case "announce_peer":
		ih, ok := idFromDict(args, "info_hash")
		if !ok {
			return Msg{}, errMissingField("a.info_hash")
		}
		port, _ := bencode.GetInt[uint16](args, "port")
		implied, _ := bencode.GetInt[int64](args, "implied_port")
		token, _ := args.GetBytes("token")
		q.Type = QueryAnnouncePeer
		q.InfoHash = ih
		q.Port = port
		q.ImpliedPort = implied != 0
		q.Token = append([]byte(nil), token...)
	default:
		return Msg{}, errUnknownQueryMethod(method)
	}

	return Msg{Kind: MsgQuery, Query: q}, nil
}

func decodeResponse(dict bencode.DictView, txn TxnID) (Msg, error) {
	body, ok := dict.GetDict("r")
	if !ok {
		return Msg{}, errMissingField("r")
	}
	id, ok := idFromDict(body, "id")
	if !ok {
		return Msg{}, errMissingField("r.id")
	}
	return Msg{Kind: MsgResponse, Response: Response{
		TxnID: txn,
		ID:    id,
		Body:  append([]byte(nil), body.RawBytes()...),
	}}, nil
}
