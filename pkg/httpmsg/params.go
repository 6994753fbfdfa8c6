package httpmsg

// ParamMap is a multimap from case-sensitive query-parameter name to
// value, preserving per-key insertion order the same way HeaderMap
// does for header names (spec.md 3), but without case folding.
type ParamMap struct {
	order  []string
	values map[string][]string
}

// NewParamMap returns an empty ParamMap.
func NewParamMap() *ParamMap {
	return &ParamMap{values: make(map[string][]string)}
}

// Add appends value under name.
func (p *ParamMap) Add(name, value string) {
	if _, ok := p.values[name]; !ok {
		p.order = append(p.order, name)
	}
	p.values[name] = append(p.values[name], value)
}

// Get returns the first value added under name.
func (p *ParamMap) Get(name string) (string, bool) {
	vs := p.values[name]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns all values added under name, in insertion order.
func (p *ParamMap) Values(name string) []string {
	return p.values[name]
}

// Len returns the number of distinct names currently present.
func (p *ParamMap) Len() int { return len(p.order) }

// Each calls fn once per (name, value) pair in registration order.
func (p *ParamMap) Each(fn func(name, value string)) {
	for _, name := range p.order {
		for _, v := range p.values[name] {
			fn(name, v)
		}
	}
}

// Reset clears the map for reuse across keep-alive iterations.
func (p *ParamMap) Reset() {
	p.order = p.order[:0]
	for k := range p.values {
		delete(p.values, k)
	}
}
