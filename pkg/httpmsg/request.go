package httpmsg

import "github.com/evhttpd/evhttpd/pkg/metric"

// Request is the value model a completed parse produces, and the
// value a handler reads to decide how to answer (spec.md 3).
type Request struct {
	Method        HttpMethod
	Scheme        HttpScheme
	Version       HttpVersion
	Port          uint16
	Host          string
	Path          string
	URI           string
	Body          []byte
	ContentLength uint64
	Headers       *HeaderMap
	Params        *ParamMap
	Metric        metric.Metric
}

// NewRequest returns a zeroed Request ready to be filled by a parse.
func NewRequest() *Request {
	return &Request{Headers: NewHeaderMap(), Params: NewParamMap()}
}

// Reset clears the Request so it can be reused for the next pipeline
// iteration on a kept-alive connection: Method, Scheme and Version
// become their Unknown variants and every other field is emptied.
func (r *Request) Reset() {
	r.Method = MethodUnknown
	r.Scheme = SchemeUnknown
	r.Version = VersionUnknown
	r.Port = 0
	r.Host = ""
	r.Path = ""
	r.URI = ""
	r.Body = r.Body[:0]
	r.ContentLength = 0
	r.Headers.Reset()
	r.Params.Reset()
	r.Metric.Reset()
}
