package dynvalue

// Field is one key/value pair of an object.
type Field struct {
	Key   string
	Value Value
}

// F is shorthand for building a Field.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

// Fields is an insertion-ordered string-keyed map. Setting an existing key
// keeps its original position and replaces the value.
type Fields struct {
	keys   []string
	values []Value
	index  map[string]int
}

// NewFields builds a map from the given pairs in order.
func NewFields(pairs ...Field) *Fields {
	f := &Fields{index: make(map[string]int, len(pairs))}
	for _, p := range pairs {
		f.set(p.Key, p.Value)
	}
	return f
}

// set is only used while building; a Fields is not mutated after it is wrapped in a Value.
func (f *Fields) set(key string, v Value) {
	if i, ok := f.index[key]; ok {
		f.values[i] = v
		return
	}
	f.index[key] = len(f.keys)
	f.keys = append(f.keys, key)
	f.values = append(f.values, v)
}

// Len returns the number of fields. A nil map has none.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Get looks up a key.
func (f *Fields) Get(key string) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	i, ok := f.index[key]
	if !ok {
		return Value{}, false
	}
	return f.values[i], true
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Range calls fn for each field in order until fn returns false.
func (f *Fields) Range(fn func(key string, v Value) bool) {
	if f == nil {
		return
	}
	for i, k := range f.keys {
		if !fn(k, f.values[i]) {
			return
		}
	}
}
