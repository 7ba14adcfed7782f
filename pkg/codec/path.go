package codec

import (
	"strconv"
	"strings"
)

// PathSegment is one step of a Path: an object key or a list index.
type PathSegment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySegment builds a key segment.
func KeySegment(key string) PathSegment { return PathSegment{Key: key} }

// IndexSegment builds an index segment.
func IndexSegment(i int) PathSegment { return PathSegment{Index: i, IsIndex: true} }

func (s PathSegment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path is the trail of keys and indices leading to the value being decoded.
// Appending never mutates the receiver, so sibling branches cannot share state.
type Path []PathSegment

// AppendKey returns a copy of p extended with key.
func (p Path) AppendKey(key string) Path { return p.append(KeySegment(key)) }

// AppendIndex returns a copy of p extended with i.
func (p Path) AppendIndex(i int) Path { return p.append(IndexSegment(i)) }

func (p Path) append(s PathSegment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// String renders the path as "items[2].name". The root path renders empty.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if !s.IsIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}
