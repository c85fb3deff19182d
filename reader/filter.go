package reader

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"
)

// Decode returns the stream data with its filter chain applied.
func (s Stream) Decode() ([]byte, error) {
	var filters []Name
	switch f := s.Dict["Filter"].(type) {
	case nil:
		return s.Raw, nil
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("reader: filter array holds %T", item)
			}
			filters = append(filters, n)
		}
	default:
		return nil, fmt.Errorf("reader: unexpected /Filter %T", f)
	}

	params := decodeParams(s.Dict["DecodeParms"], len(filters))
	data := s.Raw
	for i, name := range filters {
		var err error
		if data, err = applyFilter(name, data, params[i]); err != nil {
			return nil, fmt.Errorf("reader: %s: %w", name, err)
		}
	}
	return data, nil
}

// decodeParams spreads /DecodeParms over the filter chain.
func decodeParams(o Object, n int) []Dict {
	params := make([]Dict, n)
	switch p := o.(type) {
	case Dict:
		if n > 0 {
			params[0] = p
		}
	case Array:
		for i := 0; i < n && i < len(p); i++ {
			params[i], _ = p[i].(Dict)
		}
	}
	return params
}

func applyFilter(name Name, data []byte, params Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		out, err := inflate(data)
		if err != nil {
			return nil, err
		}
		return unpredict(out, params)
	case "ASCIIHexDecode", "AHx":
		return asciiHex(data)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	default:
		return nil, fmt.Errorf("unsupported filter")
	}
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && len(out) == 0 {
		return nil, err
	}
	// Truncated streams are common; keep what could be inflated.
	return out, nil
}

// unpredict reverses PNG row predictors (Predictor >= 10). TIFF predictor 2
// is not supported.
func unpredict(data []byte, params Dict) ([]byte, error) {
	pred, _ := params.Int("Predictor")
	if pred < 10 {
		if pred == 2 {
			return nil, fmt.Errorf("TIFF predictor not supported")
		}
		return data, nil
	}
	colors, bpc, columns := int64(1), int64(8), int64(1)
	if v, ok := params.Int("Colors"); ok {
		colors = v
	}
	if v, ok := params.Int("BitsPerComponent"); ok {
		bpc = v
	}
	if v, ok := params.Int("Columns"); ok {
		columns = v
	}
	bpp := int(max((colors*bpc+7)/8, 1))
	rowLen := int((colors*bpc*columns + 7) / 8)
	if rowLen <= 0 {
		return nil, fmt.Errorf("invalid predictor row length")
	}

	var out []byte
	prev := make([]byte, rowLen)
	for i := 0; i+1+rowLen <= len(data); i += 1 + rowLen {
		typ, row := data[i], append([]byte(nil), data[i+1:i+1+rowLen]...)
		for j := range row {
			var left, up, upLeft byte
			if j >= bpp {
				left = row[j-bpp]
				upLeft = prev[j-bpp]
			}
			up = prev[j]
			switch typ {
			case 0:
			case 1:
				row[j] += left
			case 2:
				row[j] += up
			case 3:
				row[j] += byte((int(left) + int(up)) / 2)
			case 4:
				row[j] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG predictor %d", typ)
			}
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func asciiHex(data []byte) ([]byte, error) {
	var clean []byte
	for _, b := range data {
		if b == '>' {
			break
		}
		if !isSpace(b) {
			clean = append(clean, b)
		}
	}
	if len(clean)%2 != 0 {
		clean = append(clean, '0')
	}
	out := make([]byte, hex.DecodedLen(len(clean)))
	if _, err := hex.Decode(out, clean); err != nil {
		return nil, err
	}
	return out, nil
}

func ascii85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	if end := bytes.Index(data, []byte("~>")); end >= 0 {
		data = data[:end]
	}
	return io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
}
