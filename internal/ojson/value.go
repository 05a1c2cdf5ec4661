// Package ojson implements an order-preserving JSON reader and writer.
//
// Values decode to nil, bool, int64 (integer literals), float64 (literals
// with a fraction or exponent), string and []any; mappings decode to
// *Object instead of map[string]any so that key insertion order survives a
// read/write round trip. The wire format this package produces differs from
// encoding/json in two ways the registry's HTTP surface depends on: strings
// escape every code unit outside the printable ASCII range as \uHHHH, and
// duplicate keys within one mapping are a parse error rather than a silent
// overwrite.
package ojson

// Object is an ordered string-keyed mapping. The zero value is not usable;
// construct one with NewObject.
type Object struct {
	keys []string
	vals map[string]any
}

// NewObject returns an empty, ready-to-use Object.
func NewObject() *Object {
	return &Object{vals: make(map[string]any)}
}

// Set inserts or overwrites key. A first-time Set appends the key to the
// insertion order; overwriting an existing key leaves its position
// unchanged. This is the construction-time API used by the ingester to
// assemble version documents; it does not reject repeated keys, unlike the
// reader (see Parse).
func (o *Object) Set(key string, val any) {
	if o.vals == nil {
		o.vals = make(map[string]any)
	}
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = val
}

// Get returns the value stored under key, if any.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// GetString returns the value under key if it is a string.
func (o *Object) GetString(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetObject returns the value under key if it is an *Object.
func (o *Object) GetObject(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*Object)
	return obj, ok
}

// Keys returns the mapping's keys in insertion order. The caller must not
// mutate the returned slice.
func (o *Object) Keys() []string {
	return o.keys
}

// Len returns the number of entries.
func (o *Object) Len() int {
	return len(o.keys)
}

// insertUnique is the parser's insertion path: it fails if key already
// exists (optionally comparing case-insensitively), enforcing the "duplicate
// keys in a single mapping are an error" reader rule.
func (o *Object) insertUnique(key string, val any, foldCase bool) bool {
	if o.vals == nil {
		o.vals = make(map[string]any)
	}
	if foldCase {
		for _, k := range o.keys {
			if equalFold(k, key) {
				return false
			}
		}
	} else if _, exists := o.vals[key]; exists {
		return false
	}
	o.keys = append(o.keys, key)
	o.vals[key] = val
	return true
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
