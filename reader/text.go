package reader

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// maxFormDepth bounds recursion into nested form XObjects.
const maxFormDepth = 8

// ExtractText returns the text shown by the page's content stream,
// including text inside form XObjects it paints. Lines are separated by
// newlines.
//
// Strings shown with composite (Type0) fonts are decoded as UTF-16BE,
// everything else as WinAnsi. ToUnicode CMaps are not consulted.
func (p *Page) ExtractText() (string, error) {
	data, err := p.ContentStream()
	if err != nil {
		return "", err
	}
	x := &extractor{doc: p.doc}
	x.run(data, p.Resources, 0)
	return x.String(), nil
}

type extractor struct {
	doc *Document
	out strings.Builder
}

func (x *extractor) String() string {
	lines := strings.Split(x.out.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func (x *extractor) newline() {
	s := x.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		x.out.WriteByte('\n')
	}
}

func (x *extractor) run(content []byte, res Dict, depth int) {
	l := newLexer(content)
	enc := winAnsi
	var operands []Object
	for {
		tok, op, ok := l.token()
		if !ok {
			return
		}
		if op == "" {
			operands = append(operands, tok)
			continue
		}
		switch op {
		case "BI":
			l.skipInlineImage()
		case "Tf":
			if len(operands) >= 2 {
				if name, ok := operands[len(operands)-2].(Name); ok {
					enc = x.fontEncoding(res, name)
				}
			}
		case "Tj":
			x.show(operands, enc)
		case "'", "\"":
			x.newline()
			x.show(operands, enc)
		case "TJ":
			if len(operands) > 0 {
				arr, _ := operands[len(operands)-1].(Array)
				for _, item := range arr {
					switch v := item.(type) {
					case String:
						x.out.WriteString(decodeString(v, enc))
					case Int, Real:
						if n, _ := Number(v); n < -250 {
							x.out.WriteByte(' ')
						}
					}
				}
			}
		case "Td", "TD":
			if len(operands) >= 2 {
				if ty, _ := Number(operands[len(operands)-1]); ty != 0 {
					x.newline()
				}
			}
		case "T*", "ET":
			x.newline()
		case "Do":
			if len(operands) > 0 && depth < maxFormDepth {
				if name, ok := operands[len(operands)-1].(Name); ok {
					x.form(res, name, depth)
				}
			}
		}
		operands = operands[:0]
	}
}

func (x *extractor) show(operands []Object, enc encoding.Encoding) {
	if len(operands) == 0 {
		return
	}
	if s, ok := operands[len(operands)-1].(String); ok {
		x.out.WriteString(decodeString(s, enc))
	}
}

// form runs the content of the form XObject registered as name.
func (x *extractor) form(res Dict, name Name, depth int) {
	xobjects := x.doc.resolveDict(res["XObject"])
	o, err := x.doc.Resolve(xobjects[name])
	if err != nil {
		return
	}
	s, ok := o.(Stream)
	if !ok || s.Dict.Name("Subtype") != "Form" {
		return
	}
	data, err := s.Decode()
	if err != nil {
		tracer().Debugf("skipping form %s: %v", name, err)
		return
	}
	inner := x.doc.resolveDict(s.Dict["Resources"])
	if inner == nil {
		inner = res
	}
	x.newline()
	x.run(data, inner, depth+1)
	x.newline()
}

var (
	winAnsi encoding.Encoding = charmap.Windows1252
	utf16BE                   = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
)

func (x *extractor) fontEncoding(res Dict, name Name) encoding.Encoding {
	fonts := x.doc.resolveDict(res["Font"])
	font := x.doc.resolveDict(fonts[name])
	if font.Name("Subtype") == "Type0" {
		return utf16BE
	}
	return winAnsi
}

func decodeString(s String, enc encoding.Encoding) string {
	if bytes.HasPrefix(s, []byte{0xFE, 0xFF}) {
		enc, s = utf16BE, s[2:]
	}
	out, err := enc.NewDecoder().Bytes(s)
	if err != nil {
		return string(s)
	}
	return string(out)
}

// token reads the next content stream token. Operators are returned as op
// with a nil object; operands have an empty op. ok is false at the end of
// input or on a token that cannot be parsed.
func (l *lexer) token() (obj Object, op string, ok bool) {
	for {
		l.skip()
		if l.eof() {
			return nil, "", false
		}
		b := l.buf[l.pos]
		switch {
		case b == '<' || b == '(' || b == '/' || b == '[' ||
			b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
			o, err := l.object()
			if err != nil {
				return nil, "", false
			}
			return o, "", true
		case isDelim(b):
			// Stray delimiters such as "]" or "{" carry no text.
			l.pos++
			continue
		}
		switch w := l.word(); w {
		case "true":
			return Bool(true), "", true
		case "false":
			return Bool(false), "", true
		case "null":
			return Null{}, "", true
		default:
			return nil, w, true
		}
	}
}

// skipInlineImage moves past the data of an inline image, up to and
// including its EI operator.
func (l *lexer) skipInlineImage() {
	for !l.eof() {
		i := bytes.Index(l.buf[l.pos:], []byte("EI"))
		if i < 0 {
			l.pos = len(l.buf)
			return
		}
		end := l.pos + i
		l.pos = end + 2
		before := end == 0 || isSpace(l.buf[end-1])
		after := l.pos >= len(l.buf) || isSpace(l.buf[l.pos]) || isDelim(l.buf[l.pos])
		if before && after {
			return
		}
	}
}
