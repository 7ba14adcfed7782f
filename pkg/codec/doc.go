// Package codec marshals script-bridge payloads into typed Go values.
//
// A marshallable type implements Decodable by issuing container requests to the
// Decoder it is handed: a keyed container for named fields, an unkeyed container
// for lists, or a single-value container for scalars. NewDecoder walks a
// dynvalue.Value and applies the coercion table; the ShapeRecorder answers the
// same requests with zero values while recording which container kind and which
// keys were asked for. The recorded Shape drives GenerateStub, which produces
// the script-side call stub for a bridge.
//
// Keyed requests over a value that is not an object fall back to a permissive
// container where every key resolves to the whole value. List-typed parameters
// are opaque to shape discovery: only the fact that a list was requested is
// recorded.
package codec
