// Package dynvalue models values crossing the script bridge.
//
// A Value is a closed tagged union: Null, Bool, Number, String, List, Fields
// (an order-preserving string-keyed map) and Date. Values are immutable once
// built; they are created fresh for every inbound message and discarded after
// decoding. JSON and CBOR payloads, as well as plain Go values exported from a
// script runtime, convert into Values without losing object key order where the
// source format keeps it.
package dynvalue
