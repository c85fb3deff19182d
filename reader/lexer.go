package reader

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// lexer reads PDF objects from a byte slice.
type lexer struct {
	buf []byte
	pos int
	// length resolves an indirect /Length entry of a stream dictionary.
	length func(Object) (int, bool)
}

func newLexer(buf []byte) *lexer {
	return &lexer{buf: buf}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) eof() bool { return l.pos >= len(l.buf) }

// skip advances past whitespace and comments.
func (l *lexer) skip() {
	for l.pos < len(l.buf) {
		switch b := l.buf[l.pos]; {
		case isSpace(b):
			l.pos++
		case b == '%':
			for l.pos < len(l.buf) && l.buf[l.pos] != '\n' && l.buf[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// word reads a run of regular characters (a number or keyword).
func (l *lexer) word() string {
	l.skip()
	start := l.pos
	for l.pos < len(l.buf) && !isSpace(l.buf[l.pos]) && !isDelim(l.buf[l.pos]) {
		l.pos++
	}
	return string(l.buf[start:l.pos])
}

func (l *lexer) hasPrefix(s string) bool {
	return bytes.HasPrefix(l.buf[l.pos:], []byte(s))
}

// object reads the next object. Keywords other than true, false and null
// are returned as errors; content streams use token instead.
func (l *lexer) object() (Object, error) {
	l.skip()
	if l.eof() {
		return nil, io.ErrUnexpectedEOF
	}
	switch b := l.buf[l.pos]; {
	case b == '<' && l.hasPrefix("<<"):
		return l.dict()
	case b == '<':
		return l.hexString()
	case b == '(':
		return l.literal()
	case b == '/':
		return l.name(), nil
	case b == '[':
		return l.array()
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return l.numberOrRef()
	}
	switch w := l.word(); w {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "null":
		return Null{}, nil
	case "":
		return nil, fmt.Errorf("reader: unexpected %q at offset %d", l.buf[l.pos], l.pos)
	default:
		return nil, fmt.Errorf("reader: unexpected keyword %q at offset %d", w, l.pos-len(w))
	}
}

func (l *lexer) name() Name {
	l.pos++ // '/'
	var sb []byte
	for l.pos < len(l.buf) {
		b := l.buf[l.pos]
		if isSpace(b) || isDelim(b) {
			break
		}
		if b == '#' && l.pos+2 < len(l.buf) {
			if hi, lo := unhex(l.buf[l.pos+1]), unhex(l.buf[l.pos+2]); hi >= 0 && lo >= 0 {
				sb = append(sb, byte(hi<<4|lo))
				l.pos += 3
				continue
			}
		}
		sb = append(sb, b)
		l.pos++
	}
	return Name(sb)
}

func (l *lexer) numberOrRef() (Object, error) {
	start := l.pos
	w := l.word()
	n, err := strconv.ParseInt(w, 10, 64)
	if err != nil {
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, fmt.Errorf("reader: invalid number %q at offset %d", w, start)
		}
		return Real(f), nil
	}

	// Look ahead for "G R".
	save := l.pos
	if g, err := strconv.Atoi(l.word()); err == nil && g >= 0 {
		if l.word() == "R" {
			return Ref{Num: int(n), Gen: g}, nil
		}
	}
	l.pos = save
	return Int(n), nil
}

func (l *lexer) literal() (String, error) {
	l.pos++ // '('
	var out []byte
	depth := 1
	for l.pos < len(l.buf) {
		b := l.buf[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
		case '\\':
			if l.eof() {
				return nil, fmt.Errorf("reader: unterminated string escape")
			}
			e := l.buf[l.pos]
			l.pos++
			switch e {
			case 'n':
				b = '\n'
			case 'r':
				b = '\r'
			case 't':
				b = '\t'
			case 'b':
				b = '\b'
			case 'f':
				b = '\f'
			case '\r':
				if !l.eof() && l.buf[l.pos] == '\n' {
					l.pos++
				}
				continue
			case '\n':
				continue
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && !l.eof() && l.buf[l.pos] >= '0' && l.buf[l.pos] <= '7'; i++ {
						v = v*8 + int(l.buf[l.pos]-'0')
						l.pos++
					}
					b = byte(v)
				} else {
					b = e
				}
			}
		}
		out = append(out, b)
	}
	return nil, fmt.Errorf("reader: unterminated literal string")
}

func (l *lexer) hexString() (String, error) {
	l.pos++ // '<'
	var out []byte
	hi := -1
	for l.pos < len(l.buf) {
		b := l.buf[l.pos]
		l.pos++
		if b == '>' {
			if hi >= 0 {
				out = append(out, byte(hi<<4))
			}
			return String(out), nil
		}
		if isSpace(b) {
			continue
		}
		v := unhex(b)
		if v < 0 {
			return nil, fmt.Errorf("reader: invalid hex digit %q", b)
		}
		if hi < 0 {
			hi = v
		} else {
			out = append(out, byte(hi<<4|v))
			hi = -1
		}
	}
	return nil, fmt.Errorf("reader: unterminated hex string")
}

func (l *lexer) array() (Array, error) {
	l.pos++ // '['
	var arr Array
	for {
		l.skip()
		if l.eof() {
			return nil, fmt.Errorf("reader: unterminated array")
		}
		if l.buf[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		o, err := l.object()
		if err != nil {
			return nil, err
		}
		arr = append(arr, o)
	}
}

func (l *lexer) dict() (Dict, error) {
	l.pos += 2 // '<<'
	d := make(Dict)
	for {
		l.skip()
		if l.eof() {
			return nil, fmt.Errorf("reader: unterminated dictionary")
		}
		if l.hasPrefix(">>") {
			l.pos += 2
			return d, nil
		}
		if l.buf[l.pos] != '/' {
			return nil, fmt.Errorf("reader: dictionary key at offset %d is not a name", l.pos)
		}
		key := l.name()
		val, err := l.object()
		if err != nil {
			return nil, fmt.Errorf("reader: value of /%s: %w", key, err)
		}
		d[key] = val
	}
}

// indirect reads "N G obj ... endobj", including stream data.
func (l *lexer) indirect() (Ref, Object, error) {
	num, err1 := strconv.Atoi(l.word())
	gen, err2 := strconv.Atoi(l.word())
	if err1 != nil || err2 != nil || l.word() != "obj" {
		return Ref{}, nil, fmt.Errorf("reader: malformed object header at offset %d", l.pos)
	}
	ref := Ref{Num: num, Gen: gen}

	val, err := l.object()
	if err != nil {
		return ref, nil, fmt.Errorf("reader: object %s: %w", ref, err)
	}

	l.skip()
	if !l.hasPrefix("stream") {
		return ref, val, nil
	}
	dict, ok := val.(Dict)
	if !ok {
		return ref, nil, fmt.Errorf("reader: stream object %s has no dictionary", ref)
	}
	l.pos += len("stream")
	if !l.eof() && l.buf[l.pos] == '\r' {
		l.pos++
	}
	if !l.eof() && l.buf[l.pos] == '\n' {
		l.pos++
	}

	n, ok := l.streamLength(dict)
	if !ok || l.pos+n > len(l.buf) {
		// Fall back to scanning for the end marker.
		end := bytes.Index(l.buf[l.pos:], []byte("endstream"))
		if end < 0 {
			return ref, nil, fmt.Errorf("reader: stream object %s is unterminated", ref)
		}
		n = end
		for n > 0 && (l.buf[l.pos+n-1] == '\n' || l.buf[l.pos+n-1] == '\r') {
			n--
		}
	}
	raw := l.buf[l.pos : l.pos+n]
	l.pos += n
	return ref, Stream{Dict: dict, Raw: raw}, nil
}

func (l *lexer) streamLength(d Dict) (int, bool) {
	switch v := d["Length"].(type) {
	case Int:
		return int(v), v >= 0
	case Ref:
		if l.length != nil {
			return l.length(v)
		}
	}
	return 0, false
}

func unhex(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}
