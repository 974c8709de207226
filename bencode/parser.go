package bencode

import (
	"math"
	"unicode/utf8"
)

// checkedMulAdd10 computes val*10+digit, reporting overflow instead of
// wrapping, mirroring checked_mul(10).and_then(checked_add(digit)).
func checkedMulAdd10(val, digit int64) (int64, bool) {
	if val > (math.MaxInt64-digit)/10 {
		return 0, false
	}
	return val*10 + digit, true
}

// Parser turns a bencoded byte slice into a flat token stream. It is
// reusable across calls: Parse and ParsePrefix both clear and reuse the
// internal token buffer rather than allocating a fresh one each time.
type Parser struct {
	tokens     []token
	tokenLimit int
	depthLimit int
}

// NewParser returns a Parser with no token or depth ceiling.
func NewParser() *Parser {
	return &Parser{tokenLimit: -1, depthLimit: -1}
}

// NewParserWithCapacity preallocates room for the given number of tokens.
func NewParserWithCapacity(capacity int) *Parser {
	p := NewParser()
	p.tokens = make([]token, 0, capacity)
	return p
}

// SetTokenLimit bounds the number of tokens a single parse may create.
// A negative limit means unbounded.
func (p *Parser) SetTokenLimit(limit int) { p.tokenLimit = limit }

// SetDepthLimit bounds the nesting depth a single parse may reach.
// A negative limit means unbounded.
func (p *Parser) SetDepthLimit(limit int) { p.depthLimit = limit }

// Parse parses buf as a single bencoded value and requires the entire
// slice to be consumed; any trailing byte is an error.
func (p *Parser) Parse(buf []byte) (Entry, error) {
	entry, n, err := p.parsePrefixImpl(buf)
	if err != nil {
		return Entry{}, err
	}
	if n != len(buf) {
		return Entry{}, errInvalid(n, "Extra bytes at the end")
	}
	return entry, nil
}

// ParsePrefix parses one value from the start of buf and returns it along
// with the number of bytes consumed, ignoring any trailing data. Useful
// when bencoded bytes are followed by other content.
func (p *Parser) ParsePrefix(buf []byte) (Entry, int, error) {
	return p.parsePrefixImpl(buf)
}

func (p *Parser) parsePrefixImpl(buf []byte) (Entry, int, error) {
	if len(buf) == 0 {
		return Entry{}, 0, errEOF()
	}

	p.tokens = p.tokens[:0]
	s := &parserState{
		buf:        buf,
		tokens:     &p.tokens,
		tokenLimit: p.tokenLimit,
		depthLimit: p.depthLimit,
	}

	if err := s.parseObject(); err != nil {
		return Entry{}, 0, err
	}

	entry := Entry{buf: buf, tokens: p.tokens, idx: 0}
	return entry, s.pos, nil
}

type parserState struct {
	buf          []byte
	pos          int
	tokens       *[]token
	tokenLimit   int
	depthLimit   int
	currentDepth int
}

func (s *parserState) peekChar() (byte, error) {
	if s.pos >= len(s.buf) {
		return 0, errEOF()
	}
	return s.buf[s.pos], nil
}

func (s *parserState) peekAt(pos int) (byte, error) {
	if pos >= len(s.buf) {
		return 0, errEOF()
	}
	return s.buf[pos], nil
}

func (s *parserState) nextChar() (byte, error) {
	c, err := s.peekChar()
	if err != nil {
		return 0, err
	}
	s.pos++
	return c, nil
}

func (s *parserState) parseObject() error {
	s.currentDepth++
	if s.depthLimit >= 0 && s.currentDepth > s.depthLimit {
		return errDepthLimit(s.depthLimit)
	}

	c, err := s.peekChar()
	if err != nil {
		return err
	}

	switch {
	case c == 'd':
		err = s.parseDict()
	case c == 'l':
		err = s.parseList()
	case c == 'i':
		err = s.parseInt()
	case c >= '0' && c <= '9':
		err = s.parseString(false)
	default:
		err = errUnexpected(s.pos)
	}

	s.currentDepth--
	return err
}

func (s *parserState) parseDict() error {
	t, err := s.createToken(Dict)
	if err != nil {
		return err
	}

	if _, err := s.nextChar(); err != nil { // consume 'd'
		return err
	}

	for {
		c, err := s.peekChar()
		if err != nil {
			return err
		}
		if c == 'e' {
			break
		}
		if err := s.parseString(true); err != nil {
			return err
		}
		if err := s.parseObject(); err != nil {
			return err
		}
	}

	if _, err := s.nextChar(); err != nil { // consume 'e'
		return err
	}

	s.finishToken(t)
	return nil
}

func (s *parserState) parseList() error {
	t, err := s.createToken(List)
	if err != nil {
		return err
	}

	if _, err := s.nextChar(); err != nil { // consume 'l'
		return err
	}

	for {
		c, err := s.peekChar()
		if err != nil {
			return err
		}
		if c == 'e' {
			break
		}
		if err := s.parseObject(); err != nil {
			return err
		}
	}

	if _, err := s.nextChar(); err != nil { // consume 'e'
		return err
	}

	s.finishToken(t)
	return nil
}

func (s *parserState) parseInt() error {
	if _, err := s.nextChar(); err != nil { // consume 'i'
		return err
	}

	t, err := s.createToken(Int)
	if err != nil {
		return err
	}

	c, err := s.peekChar()
	if err != nil {
		return err
	}
	if c == '-' {
		s.pos++
	}

	c, err = s.peekChar()
	if err != nil {
		return err
	}
	if c == 'e' {
		return errUnexpected(s.pos)
	}

	if c == '0' {
		// Leading zero is only valid as the lone digit "0" (i.e. i0e).
		if next, err := s.peekAt(s.pos + 1); err == nil && next != 'e' {
			return errInvalid(s.pos, "leading zero in integer")
		}
	}

	var val int64
	for {
		c, err := s.peekChar()
		if err != nil {
			return err
		}

		switch {
		case c >= '0' && c <= '9':
			digit := int64(c - '0')
			next, ok := checkedMulAdd10(val, digit)
			if !ok {
				return errOverflow(s.pos)
			}
			val = next
			s.pos++
		case c == 'e':
			s.finishToken(t)
			s.pos++
			return nil
		default:
			return errUnexpected(s.pos)
		}
	}
}

func (s *parserState) parseString(validateUTF8 bool) error {
	var length int

	for {
		c, err := s.nextChar()
		if err != nil {
			return err
		}

		switch {
		case c >= '0' && c <= '9':
			digit := int64(c - '0')
			next, ok := checkedMulAdd10(int64(length), digit)
			if !ok {
				return errOverflow(s.pos)
			}
			length = int(next)
		case c == ':':
			goto haveLength
		default:
			return errUnexpected(s.pos)
		}
	}

haveLength:
	if s.pos+length > len(s.buf) {
		return errEOF()
	}

	t, err := s.createToken(ByteStr)
	if err != nil {
		return err
	}
	start := s.pos
	s.pos += length
	s.finishToken(t)

	if validateUTF8 {
		value := s.buf[start:s.pos]
		if !utf8.Valid(value) {
			return errInvalid(start, "Dict key must be a valid UTF-8 string")
		}
	}

	return nil
}

func (s *parserState) createToken(kind TokenKind) (int, error) {
	if s.tokenLimit >= 0 && len(*s.tokens) == s.tokenLimit {
		return 0, errTokenLimit(s.tokenLimit)
	}
	*s.tokens = append(*s.tokens, token{kind: kind, start: uint32(s.pos), next: 1})
	return len(*s.tokens) - 1, nil
}

func (s *parserState) finishToken(idx int) {
	next := len(*s.tokens) - idx
	t := &(*s.tokens)[idx]
	t.end = uint32(s.pos)
	t.next = uint32(next)
}
