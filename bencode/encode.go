package bencode

import (
	"sort"
	"strconv"
)

// debugAssertions gates the unordered Dict builder's key-ordering checks.
// The original Rust implementation this package is ported from only
// runs these checks in debug builds; Go has no direct
// equivalent of cfg(debug_assertions), so this is left on unconditionally
// since the cost is a handful of byte comparisons per key.
const debugAssertions = true

// Marshaler is implemented by types that know how to bencode themselves.
type Marshaler interface {
	MarshalBencode(enc *Encoder)
}

// Encoder is a streaming, buffer-appending bencode builder. Composite
// values (list, dict, exact-length byte strings) are built with a scoped
// child builder: the closing byte (or length check) is emitted
// automatically when the callback passed to List/Dict/OrderedDict/
// BytesExact returns. List and Dict write their closing byte from a
// defer, so it is also written when the callback panics; OrderedDict
// and BytesExact write nothing further after a panic.
type Encoder struct {
	buf *[]byte
}

// NewEncoder returns an Encoder that appends to *buf.
func NewEncoder(buf *[]byte) *Encoder {
	return &Encoder{buf: buf}
}

func (e *Encoder) push(c byte) { *e.buf = append(*e.buf, c) }

func (e *Encoder) extend(b []byte) { *e.buf = append(*e.buf, b...) }

// Int encodes an i<value>e integer.
func (e *Encoder) Int(v int64) {
	e.push('i')
	e.extend(strconv.AppendInt(nil, v, 10))
	e.push('e')
}

// Bytes encodes a <len>:<bytes> byte string.
func (e *Encoder) Bytes(v []byte) {
	e.extend(strconv.AppendInt(nil, int64(len(v)), 10))
	e.push(':')
	e.extend(v)
}

// Str encodes a <len>:<bytes> byte string from a Go string.
func (e *Encoder) Str(v string) { e.Bytes([]byte(v)) }

// Value encodes v via its Marshaler implementation.
func (e *Encoder) Value(v Marshaler) { v.MarshalBencode(e) }

// List opens a list, runs fn against a ListEncoder, then closes it.
func (e *Encoder) List(fn func(*ListEncoder)) {
	e.push('l')
	le := &ListEncoder{enc: Encoder{buf: e.buf}}
	defer e.push('e')
	fn(le)
}

// Dict opens an unordered dict, runs fn against a DictEncoder, then
// closes it. The callback must insert keys in strictly ascending,
// unique order; violations panic (see debugAssertions).
func (e *Encoder) Dict(fn func(*DictEncoder)) {
	e.push('d')
	de := &DictEncoder{enc: Encoder{buf: e.buf}}
	defer e.push('e')
	fn(de)
}

// OrderedDict opens a dict whose entries are buffered by key and flushed
// in sorted order when fn returns; duplicate keys overwrite.
func (e *Encoder) OrderedDict(fn func(*OrderedDictEncoder)) {
	od := &OrderedDictEncoder{values: make(map[string][]byte)}
	fn(od)

	e.push('d')
	keys := make([]string, 0, len(od.values))
	for k := range od.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Str(k)
		e.extend(od.values[k])
	}
	e.push('e')
}

// BytesExact opens a byte string of a fixed, known-in-advance length and
// lets fn append to it piecemeal via BytesExactEncoder.Add. It panics if
// the total written does not equal length when fn returns.
func (e *Encoder) BytesExact(length int, fn func(*BytesExactEncoder)) {
	e.extend(strconv.AppendInt(nil, int64(length), 10))
	e.push(':')
	be := &BytesExactEncoder{enc: Encoder{buf: e.buf}, expected: length}
	fn(be)
	if be.written != be.expected {
		panic("bencode: BytesExact closed with wrong length")
	}
}

// ListEncoder appends elements to an open list.
type ListEncoder struct {
	enc Encoder
}

func (l *ListEncoder) PushInt(v int64)   { l.enc.Int(v) }
func (l *ListEncoder) PushBytes(v []byte) { l.enc.Bytes(v) }
func (l *ListEncoder) PushStr(v string)   { l.enc.Str(v) }
func (l *ListEncoder) Push(v Marshaler)   { l.enc.Value(v) }

func (l *ListEncoder) PushList(fn func(*ListEncoder))               { l.enc.List(fn) }
func (l *ListEncoder) PushDict(fn func(*DictEncoder))                { l.enc.Dict(fn) }
func (l *ListEncoder) PushOrderedDict(fn func(*OrderedDictEncoder)) { l.enc.OrderedDict(fn) }
func (l *ListEncoder) PushBytesExact(length int, fn func(*BytesExactEncoder)) {
	l.enc.BytesExact(length, fn)
}

// DictEncoder appends key/value pairs to an open, unordered dict. Callers
// must insert keys in ascending, unique order.
type DictEncoder struct {
	enc     Encoder
	lastKey []byte
	hasLast bool
}

func (d *DictEncoder) insertKey(key string) {
	if debugAssertions {
		kb := []byte(key)
		if d.hasLast {
			switch {
			case string(kb) < string(d.lastKey):
				panic("bencode: dict keys must be sorted")
			case string(kb) == string(d.lastKey):
				panic("bencode: dict keys must be unique")
			}
		}
		d.lastKey = append(d.lastKey[:0], kb...)
		d.hasLast = true
	}
	d.enc.Str(key)
}

func (d *DictEncoder) Insert(key string, v Marshaler) {
	d.insertKey(key)
	d.enc.Value(v)
}

func (d *DictEncoder) InsertInt(key string, v int64) {
	d.insertKey(key)
	d.enc.Int(v)
}

func (d *DictEncoder) InsertBytes(key string, v []byte) {
	d.insertKey(key)
	d.enc.Bytes(v)
}

func (d *DictEncoder) InsertStr(key, v string) {
	d.insertKey(key)
	d.enc.Str(v)
}

func (d *DictEncoder) InsertList(key string, fn func(*ListEncoder)) {
	d.insertKey(key)
	d.enc.List(fn)
}

func (d *DictEncoder) InsertDict(key string, fn func(*DictEncoder)) {
	d.insertKey(key)
	d.enc.Dict(fn)
}

func (d *DictEncoder) InsertOrderedDict(key string, fn func(*OrderedDictEncoder)) {
	d.insertKey(key)
	d.enc.OrderedDict(fn)
}

func (d *DictEncoder) InsertBytesExact(key string, length int, fn func(*BytesExactEncoder)) {
	d.insertKey(key)
	d.enc.BytesExact(length, fn)
}

// OrderedDictEncoder buffers values by key; Encoder.OrderedDict sorts and
// flushes them once the callback returns.
type OrderedDictEncoder struct {
	values map[string][]byte
}

// bufEncoder returns an Encoder that appends into a scratch buffer seeded
// from this key's current value (so re-inserting a key overwrites rather
// than appends), plus a flush closure that writes the result back into
// the map. Go maps don't allow taking the address of a value directly,
// hence the copy-out/flush-back dance instead of a long-lived *[]byte.
func (o *OrderedDictEncoder) bufEncoder(key string) (*Encoder, func()) {
	b := o.values[key][:0]
	be := &b
	return &Encoder{buf: be}, func() { o.values[key] = *be }
}

func (o *OrderedDictEncoder) Insert(key string, v Marshaler) {
	enc, flush := o.bufEncoder(key)
	enc.Value(v)
	flush()
}

func (o *OrderedDictEncoder) InsertInt(key string, v int64) {
	enc, flush := o.bufEncoder(key)
	enc.Int(v)
	flush()
}

func (o *OrderedDictEncoder) InsertBytes(key string, v []byte) {
	enc, flush := o.bufEncoder(key)
	enc.Bytes(v)
	flush()
}

func (o *OrderedDictEncoder) InsertStr(key, v string) {
	enc, flush := o.bufEncoder(key)
	enc.Str(v)
	flush()
}

func (o *OrderedDictEncoder) InsertList(key string, fn func(*ListEncoder)) {
	enc, flush := o.bufEncoder(key)
	enc.List(fn)
	flush()
}

func (o *OrderedDictEncoder) InsertDict(key string, fn func(*DictEncoder)) {
	enc, flush := o.bufEncoder(key)
	enc.Dict(fn)
	flush()
}

func (o *OrderedDictEncoder) InsertOrderedDict(key string, fn func(*OrderedDictEncoder)) {
	enc, flush := o.bufEncoder(key)
	enc.OrderedDict(fn)
	flush()
}

// BytesExactEncoder accepts writes summing to an exact, previously
// declared length.
type BytesExactEncoder struct {
	enc      Encoder
	expected int
	written  int
}

func (b *BytesExactEncoder) Add(v []byte) {
	b.written += len(v)
	b.enc.extend(v)
}
