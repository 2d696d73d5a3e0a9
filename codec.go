package attrstore

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxChunkSize is the default maximum number of runes stored in a single attribute value,
// not counting the order marker.
const MaxChunkSize = 500

const (
	markerPrefix = "[Sort"
	markerSuffix = "]"
)

// Attribute is one name/value pair of a store item. Names may repeat within an item.
// Replace marks the authoritative attribute: when a store receives an attribute with
// Replace set, it discards every value previously stored under that name.
type Attribute struct {
	Name    string
	Value   string
	Replace bool
}

// Codec splits scalar values into ordered chunks and reassembles them.
type Codec struct {
	ChunkSize int // Maximum runes per chunk. Default is MaxChunkSize.
}

// DefaultCodec chunks values at MaxChunkSize.
var DefaultCodec = Codec{ChunkSize: MaxChunkSize}

func (c Codec) chunkSize() int {
	if c.ChunkSize <= 0 {
		return MaxChunkSize
	}
	return c.ChunkSize
}

// Encode splits raw into one or more attributes named name. A value that fits in one
// chunk is stored verbatim. Longer values are split into chunks prefixed with an order
// marker ("[Sort0]", "[Sort1]", ...). Only the first attribute is authoritative.
func (c Codec) Encode(name, raw string) []Attribute {
	chunks := splitRunes(raw, c.chunkSize())

	// a lone chunk that already looks marked is marked again so it decodes verbatim
	if len(chunks) == 1 {
		if _, _, marked := parseMarker(chunks[0]); !marked {
			return []Attribute{{Name: name, Value: chunks[0], Replace: true}}
		}
	}

	attrs := make([]Attribute, len(chunks))
	for i, chunk := range chunks {
		attrs[i] = Attribute{
			Name:    name,
			Value:   marker(i) + chunk,
			Replace: i == 0,
		}
	}
	return attrs
}

// Decode reassembles the values stored under name. A single unmarked value is returned
// as is. Otherwise every value must carry a marker and the markers must form the
// sequence 0..n-1; chunks are joined in numeric marker order.
func (c Codec) Decode(name string, values []string) (string, error) {
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		index, rest, marked := parseMarker(values[0])
		if !marked {
			return values[0], nil
		}
		if index != 0 {
			return "", chunkError(name, values[0], "chunk %d of 1", index)
		}
		return rest, nil
	}

	chunks := make([]string, len(values))
	seen := make([]bool, len(values))
	size := 0

	for _, v := range values {
		index, rest, marked := parseMarker(v)
		switch {
		case !marked:
			return "", chunkError(name, v, "unmarked value among %d chunks", len(values))
		case index >= len(values):
			return "", chunkError(name, v, "chunk %d of %d", index, len(values))
		case seen[index]:
			return "", chunkError(name, v, "duplicate chunk %d", index)
		}
		seen[index] = true
		chunks[index] = rest
		size += len(rest)
	}

	var sb strings.Builder
	sb.Grow(size)
	for _, chunk := range chunks {
		sb.WriteString(chunk)
	}
	return sb.String(), nil
}

// Encode splits raw with the DefaultCodec.
func Encode(name, raw string) []Attribute {
	return DefaultCodec.Encode(name, raw)
}

// Decode reassembles values with the DefaultCodec.
func Decode(name string, values []string) (string, error) {
	return DefaultCodec.Decode(name, values)
}

func chunkError(name, value, format string, args ...any) error {
	return &ConversionError{
		Field: name,
		Value: value,
		Err:   fmt.Errorf("%w: "+format, append([]any{ErrChunkOrder}, args...)...),
	}
}

func marker(index int) string {
	return markerPrefix + strconv.Itoa(index) + markerSuffix
}

// parseMarker splits a leading order marker from v.
func parseMarker(v string) (index int, rest string, ok bool) {
	tail, found := strings.CutPrefix(v, markerPrefix)
	if !found {
		return 0, v, false
	}

	digits, rest, found := strings.Cut(tail, markerSuffix)
	if !found || digits == "" {
		return 0, v, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, v, false
		}
	}

	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, v, false
	}
	return index, rest, true
}

// splitRunes splits s into chunks of at most size runes. The empty string yields one
// empty chunk.
func splitRunes(s string, size int) []string {
	if utf8.RuneCountInString(s) <= size {
		return []string{s}
	}

	chunks := make([]string, 0, utf8.RuneCountInString(s)/size+1)
	for len(s) > 0 {
		i, n := 0, 0
		for i < len(s) && n < size {
			_, width := utf8.DecodeRuneInString(s[i:])
			i += width
			n++
		}
		chunks = append(chunks, s[:i])
		s = s[i:]
	}
	return chunks
}
