package reader

import (
	"bytes"
	"fmt"
	"strconv"
)

// xrefEntry locates an object either at a file offset or inside an object
// stream.
type xrefEntry struct {
	offset int64
	gen    int
	inUse  bool
	// For compressed objects: the containing object stream and the index
	// within it.
	stream int
	index  int
}

func (e xrefEntry) compressed() bool { return e.stream > 0 }

// findStartXRef returns the offset recorded after the last "startxref".
func findStartXRef(data []byte) (int64, error) {
	tail := data[max(0, len(data)-2048):]
	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("reader: startxref not found")
	}
	l := newLexer(tail[i+len("startxref"):])
	w := l.word()
	off, err := strconv.ParseInt(w, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reader: invalid startxref offset %q", w)
	}
	return off, nil
}

// loadXRef reads the cross-reference section at off and every section
// reachable through /Prev and /XRefStm. Entries read first win, so newer
// updates shadow older ones. It returns the newest trailer.
func (d *Document) loadXRef(off int64) (Dict, error) {
	var newest Dict
	seen := make(map[int64]bool)
	queue := []int64{off}
	for len(queue) > 0 {
		off, queue = queue[0], queue[1:]
		if seen[off] {
			continue
		}
		seen[off] = true
		if off < 0 || off >= int64(len(d.data)) {
			return nil, fmt.Errorf("reader: xref offset %d out of bounds", off)
		}

		var trailer Dict
		var err error
		l := newLexer(d.data[off:])
		if l.word() == "xref" {
			trailer, err = d.readXRefTable(l)
		} else {
			trailer, err = d.readXRefStream(off)
		}
		if err != nil {
			return nil, err
		}
		if newest == nil {
			newest = trailer
		}
		if stm, ok := trailer.Int("XRefStm"); ok {
			queue = append(queue, stm)
		}
		if prev, ok := trailer.Int("Prev"); ok {
			queue = append(queue, prev)
		}
	}
	return newest, nil
}

func (d *Document) add(num int, e xrefEntry) {
	if _, ok := d.xref[num]; !ok {
		d.xref[num] = e
	}
}

func (d *Document) readXRefTable(l *lexer) (Dict, error) {
	for {
		save := l.pos
		w := l.word()
		if w == "trailer" {
			break
		}
		first, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("reader: xref subsection at offset %d: %q", save, w)
		}
		count, err := strconv.Atoi(l.word())
		if err != nil {
			return nil, fmt.Errorf("reader: xref subsection count: %w", err)
		}
		for i := 0; i < count; i++ {
			off, err1 := strconv.ParseInt(l.word(), 10, 64)
			gen, err2 := strconv.Atoi(l.word())
			kind := l.word()
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("reader: malformed xref entry for object %d", first+i)
			}
			d.add(first+i, xrefEntry{offset: off, gen: gen, inUse: kind == "n"})
		}
	}
	o, err := l.object()
	if err != nil {
		return nil, fmt.Errorf("reader: trailer: %w", err)
	}
	trailer, ok := o.(Dict)
	if !ok {
		return nil, fmt.Errorf("reader: trailer is not a dictionary")
	}
	return trailer, nil
}

func (d *Document) readXRefStream(off int64) (Dict, error) {
	l := newLexer(d.data[off:])
	l.length = d.resolveLength
	_, o, err := l.indirect()
	if err != nil {
		return nil, fmt.Errorf("reader: xref stream: %w", err)
	}
	s, ok := o.(Stream)
	if !ok || s.Dict.Name("Type") != "XRef" {
		return nil, fmt.Errorf("reader: no xref table or stream at offset %d", off)
	}
	data, err := s.Decode()
	if err != nil {
		return nil, fmt.Errorf("reader: xref stream: %w", err)
	}

	w := s.Dict.Array("W")
	if len(w) != 3 {
		return nil, fmt.Errorf("reader: xref stream /W must have 3 entries")
	}
	var widths [3]int
	for i := range w {
		n, _ := Number(w[i])
		widths[i] = int(n)
	}
	size := widths[0] + widths[1] + widths[2]
	if size == 0 {
		return nil, fmt.Errorf("reader: xref stream has zero-width entries")
	}

	index := []int{0}
	if n, ok := s.Dict.Int("Size"); ok {
		index = append(index, int(n))
	}
	if arr := s.Dict.Array("Index"); arr != nil {
		index = index[:0]
		for _, v := range arr {
			n, _ := Number(v)
			index = append(index, int(n))
		}
	}

	pos := 0
	field := func(width int, def int64) int64 {
		if width == 0 {
			return def
		}
		var v int64
		for k := 0; k < width; k++ {
			v = v<<8 | int64(data[pos])
			pos++
		}
		return v
	}
	for i := 0; i+1 < len(index); i += 2 {
		for j := 0; j < index[i+1] && pos+size <= len(data); j++ {
			typ := field(widths[0], 1)
			f2 := field(widths[1], 0)
			f3 := field(widths[2], 0)
			num := index[i] + j
			switch typ {
			case 0:
				d.add(num, xrefEntry{gen: int(f3)})
			case 1:
				d.add(num, xrefEntry{offset: f2, gen: int(f3), inUse: true})
			case 2:
				d.add(num, xrefEntry{inUse: true, stream: int(f2), index: int(f3)})
			}
		}
	}
	return s.Dict, nil
}
