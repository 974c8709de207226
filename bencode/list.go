package bencode

// ListView is an Entry known to be a List, exposing indexed and
// iterator-style access to its elements.
type ListView struct {
	entry Entry
}

func (l ListView) RawBytes() []byte { return l.entry.RawBytes() }

func (l ListView) IsEmpty() bool { return l.entry.token().next == 1 }

// Iter returns a fresh iterator over this list's elements.
func (l ListView) Iter() *ListIter {
	t := l.entry.token()
	return &ListIter{
		buf:    l.entry.buf,
		tokens: l.entry.tokens,
		pos:    l.entry.idx + 1,
		end:    l.entry.idx + int(t.next),
	}
}

// Get returns the i'th element, walking the prefix since random access
// into a flat token stream is inherently linear.
func (l ListView) Get(i int) (Entry, bool) {
	it := l.Iter()
	for n := 0; n < i; n++ {
		if _, ok := it.Next(); !ok {
			return Entry{}, false
		}
	}
	return it.Next()
}

func (l ListView) GetBytes(i int) ([]byte, bool) {
	e, ok := l.Get(i)
	if !ok {
		return nil, false
	}
	return e.AsBytes()
}

func (l ListView) GetStr(i int) (string, bool) {
	e, ok := l.Get(i)
	if !ok {
		return "", false
	}
	return e.AsStr()
}

func (l ListView) GetList(i int) (ListView, bool) {
	e, ok := l.Get(i)
	if !ok {
		return ListView{}, false
	}
	return e.AsList()
}

func (l ListView) GetDict(i int) (DictView, bool) {
	e, ok := l.Get(i)
	if !ok {
		return DictView{}, false
	}
	return e.AsDict()
}

// ListIter walks a list's (or a dict's key/value run's) child tokens one
// sibling at a time, skipping each child's subtree via its next pointer.
type ListIter struct {
	buf    []byte
	tokens []token
	pos    int
	end    int
}

func (it *ListIter) Next() (Entry, bool) {
	if it.pos >= it.end {
		return Entry{}, false
	}
	e := Entry{buf: it.buf, tokens: it.tokens, idx: it.pos}
	it.pos += int(it.tokens[it.pos].next)
	return e, true
}
