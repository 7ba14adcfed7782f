package codec

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const stubLogPrefix = "codec:stub"

// Stub defaults. The generated call is <Channel>.<bridge>.<PostMethod>(payload).
const (
	DefaultChannel     = "window.bridge"
	DefaultPostMethod  = "post"
	DefaultErrorBridge = "error"
)

// StubOptions configures the script side of generated stubs.
type StubOptions struct {
	// Channel is the script expression holding one poster per bridge.
	Channel string
	// PostMethod is the method each poster exposes.
	PostMethod string
	// ErrorBridge receives "<name> argument error" on arity mismatch.
	ErrorBridge string
}

// DefaultStubOptions returns the options used when none are configured.
func DefaultStubOptions() StubOptions {
	return StubOptions{
		Channel:     DefaultChannel,
		PostMethod:  DefaultPostMethod,
		ErrorBridge: DefaultErrorBridge,
	}
}

func (o StubOptions) withDefaults() StubOptions {
	if o.Channel == "" {
		o.Channel = DefaultChannel
	}
	if o.PostMethod == "" {
		o.PostMethod = DefaultPostMethod
	}
	if o.ErrorBridge == "" {
		o.ErrorBridge = DefaultErrorBridge
	}
	return o
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var reservedWords = map[string]struct{}{
	"break": {}, "case": {}, "catch": {}, "class": {}, "const": {}, "continue": {},
	"debugger": {}, "default": {}, "delete": {}, "do": {}, "else": {}, "enum": {},
	"export": {}, "extends": {}, "false": {}, "finally": {}, "for": {}, "function": {},
	"if": {}, "import": {}, "in": {}, "instanceof": {}, "new": {}, "null": {},
	"return": {}, "super": {}, "switch": {}, "this": {}, "throw": {}, "true": {},
	"try": {}, "typeof": {}, "var": {}, "void": {}, "while": {}, "with": {},
	"let": {}, "static": {}, "yield": {}, "await": {}, "arguments": {}, "eval": {},
}

// IsIdentifier reports whether name can be used as a script function name.
func IsIdentifier(name string) bool {
	if !identifierRegex.MatchString(name) {
		return false
	}
	_, reserved := reservedWords[name]
	return !reserved
}

// GenerateStub returns the script function for bridge name. The stub checks
// the argument count against the shape's arity, forwards arguments[0] for
// scalar and list shapes, and forwards an object keyed by the recorded field
// names, in order, for field shapes. A count mismatch posts
// "<name> argument error" to the error bridge instead.
func GenerateStub(name string, shape Shape, opts StubOptions) (string, error) {
	if !IsIdentifier(name) {
		return "", fmt.Errorf("%s - bridge name %q is not a script identifier", stubLogPrefix, name)
	}
	o := opts.withDefaults()

	var b strings.Builder
	b.WriteString("function ")
	b.WriteString(name)
	b.WriteString("() { if (arguments.length == ")
	b.WriteString(strconv.Itoa(shape.Arity()))
	b.WriteString(") { ")
	writePoster(&b, o, name)
	b.WriteByte('(')
	writePayload(&b, shape)
	b.WriteString(") } else { ")
	writePoster(&b, o, o.ErrorBridge)
	b.WriteByte('(')
	writeScriptString(&b, name+" argument error")
	b.WriteString(") } }")
	return b.String(), nil
}

func writePoster(b *strings.Builder, o StubOptions, bridge string) {
	b.WriteString(o.Channel)
	b.WriteByte('.')
	b.WriteString(bridge)
	b.WriteByte('.')
	b.WriteString(o.PostMethod)
}

const protoKey = "__proto__"

func writePayload(b *strings.Builder, shape Shape) {
	if shape.Kind != ShapeFields {
		b.WriteString("arguments[0]")
		return
	}
	b.WriteByte('{')
	for i, field := range shape.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		switch {
		case field == protoKey:
			// A literal __proto__ key, quoted or not, sets the prototype.
			b.WriteByte('[')
			writeScriptString(b, field)
			b.WriteByte(']')
		case identifierRegex.MatchString(field):
			b.WriteString(field)
		default:
			writeScriptString(b, field)
		}
		b.WriteString(": arguments[")
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(']')
	}
	b.WriteByte('}')
}

// writeScriptString writes s as a script string literal. JSON string
// literals are valid script literals.
func writeScriptString(b *strings.Builder, s string) {
	data, _ := json.Marshal(s)
	b.Write(data)
}
