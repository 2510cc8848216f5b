package export

// Record is an opaque, string-keyed bag of already-resolved values such as
// the store, customer or currency an export runs for. The execution context
// never interprets its contents.
type Record map[string]any

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[key]
	return v, ok
}

// Clone returns a shallow copy. A nil record clones to an empty one.
func (r Record) Clone() Record {
	clone := make(Record, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}
