package codec

import (
	"strings"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// ErrorKind categorizes a decode failure.
type ErrorKind string

const (
	KindKeyNotFound   ErrorKind = "key_not_found"
	KindValueNotFound ErrorKind = "value_not_found"
	KindTypeMismatch  ErrorKind = "type_mismatch"
	KindDataCorrupted ErrorKind = "data_corrupted"
)

// Sentinels for errors.Is; matching compares Kind only.
var (
	ErrKeyNotFound   = &DecodeError{Kind: KindKeyNotFound}
	ErrValueNotFound = &DecodeError{Kind: KindValueNotFound}
	ErrTypeMismatch  = &DecodeError{Kind: KindTypeMismatch}
	ErrDataCorrupted = &DecodeError{Kind: KindDataCorrupted}
)

// DecodeError is the structured error raised by containers. Any DecodeError
// aborts the decode of the whole message.
type DecodeError struct {
	Kind     ErrorKind
	Path     Path
	Key      string         // missing key, for KindKeyNotFound
	Expected string         // requested target type
	Actual   dynvalue.Value // offending value, for KindTypeMismatch
	Detail   string
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(e.Path.String())
	}
	switch e.Kind {
	case KindKeyNotFound:
		b.WriteString(": no value for key ")
		b.WriteString(quote(e.Key))
	case KindValueNotFound:
		b.WriteString(": expected ")
		b.WriteString(e.Expected)
		b.WriteString(", got null")
	case KindTypeMismatch:
		b.WriteString(": expected ")
		b.WriteString(e.Expected)
		b.WriteString(", got ")
		b.WriteString(e.Actual.Kind().String())
		b.WriteByte(' ')
		b.WriteString(truncate(e.Actual.String(), 64))
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteByte(')')
	}
	return b.String()
}

// Is reports whether target is a DecodeError of the same kind.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == e.Kind
}

func keyNotFound(path Path, key string) error {
	return &DecodeError{Kind: KindKeyNotFound, Path: path, Key: key}
}

func valueNotFound(path Path, expected string) error {
	return &DecodeError{Kind: KindValueNotFound, Path: path, Expected: expected}
}

func typeMismatch(path Path, expected string, actual dynvalue.Value) error {
	return &DecodeError{Kind: KindTypeMismatch, Path: path, Expected: expected, Actual: actual}
}

func typeMismatchDetail(path Path, expected string, actual dynvalue.Value, detail string) error {
	return &DecodeError{Kind: KindTypeMismatch, Path: path, Expected: expected, Actual: actual, Detail: detail}
}

func dataCorrupted(path Path, detail string) error {
	return &DecodeError{Kind: KindDataCorrupted, Path: path, Detail: detail}
}

func quote(s string) string { return `"` + s + `"` }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
