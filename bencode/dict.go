package bencode

// DictView is an Entry known to be a Dict, exposing keyed access to its
// values. Lookup is linear over keys, matching the flat token stream's
// layout — there is no separate index.
type DictView struct {
	entry Entry
}

func (d DictView) RawBytes() []byte { return d.entry.RawBytes() }

func (d DictView) IsEmpty() bool { return d.entry.token().next == 1 }

// Iter returns a fresh iterator over this dict's (key, value) pairs.
func (d DictView) Iter() *DictIter {
	t := d.entry.token()
	return &DictIter{inner: &ListIter{
		buf:    d.entry.buf,
		tokens: d.entry.tokens,
		pos:    d.entry.idx + 1,
		end:    d.entry.idx + int(t.next),
	}}
}

// Get returns the value for key, or ok=false if absent.
func (d DictView) Get(key string) (Entry, bool) {
	it := d.Iter()
	for {
		k, v, ok := it.Next()
		if !ok {
			return Entry{}, false
		}
		if k == key {
			return v, true
		}
	}
}

func (d DictView) GetBytes(key string) ([]byte, bool) {
	e, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	return e.AsBytes()
}

func (d DictView) GetStr(key string) (string, bool) {
	e, ok := d.Get(key)
	if !ok {
		return "", false
	}
	return e.AsStr()
}

func (d DictView) GetAsciiStr(key string) (string, bool) {
	e, ok := d.Get(key)
	if !ok {
		return "", false
	}
	return e.AsAsciiStr()
}

func GetInt[T Integer](d DictView, key string) (T, bool) {
	e, ok := d.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	return AsInt[T](e)
}

func (d DictView) GetList(key string) (ListView, bool) {
	e, ok := d.Get(key)
	if !ok {
		return ListView{}, false
	}
	return e.AsList()
}

func (d DictView) GetDict(key string) (DictView, bool) {
	e, ok := d.Get(key)
	if !ok {
		return DictView{}, false
	}
	return e.AsDict()
}

// DictIter walks a dict two tokens at a time, pairing each key (always a
// ByteStr, validated UTF-8 by the parser) with its value.
type DictIter struct {
	inner *ListIter
}

func (it *DictIter) Next() (key string, value Entry, ok bool) {
	k, ok := it.inner.Next()
	if !ok {
		return "", Entry{}, false
	}
	v, ok := it.inner.Next()
	if !ok {
		return "", Entry{}, false
	}
	// Safety: the parser validates every dict key as UTF-8 before
	// emitting its token, so this conversion never fails.
	return string(k.RawBytes()), v, true
}
