package httpmsg

// HeaderMap is a multimap from case-insensitive header name to value.
// For any key, iteration yields values in the order they were
// inserted; removing a key and re-adding it resets that key's
// position to the end of the overall iteration order (spec.md 3,
// testable property 5).
type HeaderMap struct {
	order  []string
	raw    map[string]string
	values map[string][]string
}

// NewHeaderMap returns an empty HeaderMap.
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{raw: make(map[string]string), values: make(map[string][]string)}
}

// Add appends value under name, preserving the raw spelling of the
// first occurrence of name for emission.
func (h *HeaderMap) Add(name, value string) {
	key := foldKey(name)
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
		h.raw[key] = name
	}
	h.values[key] = append(h.values[key], value)
}

// Get returns the first value added under name.
func (h *HeaderMap) Get(name string) (string, bool) {
	vs := h.values[foldKey(name)]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns all values added under name, in insertion order.
func (h *HeaderMap) Values(name string) []string {
	return h.values[foldKey(name)]
}

// Count returns how many times name was added.
func (h *HeaderMap) Count(name string) int {
	return len(h.values[foldKey(name)])
}

// Del removes every value under name.
func (h *HeaderMap) Del(name string) {
	key := foldKey(name)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	delete(h.raw, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of distinct keys currently present.
func (h *HeaderMap) Len() int { return len(h.order) }

// Each calls fn once per (name, value) pair, walking keys in the
// order their first value was inserted and, within a key, values in
// the order they were added.
func (h *HeaderMap) Each(fn func(name, value string)) {
	for _, key := range h.order {
		name := h.raw[key]
		for _, v := range h.values[key] {
			fn(name, v)
		}
	}
}

// Reset clears the map for reuse across keep-alive iterations.
func (h *HeaderMap) Reset() {
	h.order = h.order[:0]
	for k := range h.raw {
		delete(h.raw, k)
	}
	for k := range h.values {
		delete(h.values, k)
	}
}
