package httpmsg

import "github.com/evhttpd/evhttpd/pkg/metric"

// Response is the value model a handler fills in and the serializer
// turns into wire bytes (spec.md 3).
type Response struct {
	Version       HttpVersion
	StatusCode    HttpStatusCode
	Reason        string
	Body          []byte
	ContentLength uint64
	Headers       *HeaderMap
	Metric        metric.Metric
	NeedKeepalive bool
}

// NewResponse returns a zeroed Response ready to be filled by a handler.
func NewResponse() *Response {
	return &Response{Headers: NewHeaderMap()}
}

// Valid reports whether the response's status and version are both
// known; the pipeline refuses to serialize and send an invalid
// response (spec.md 4.G, InvalidResponse).
func (r *Response) Valid() bool {
	return r.Version.Valid() && r.StatusCode.Valid()
}

// Reset clears the Response so it can be reused for the next pipeline
// iteration on a kept-alive connection: Version becomes VersionUnknown
// and every other field is emptied.
func (r *Response) Reset() {
	r.Version = VersionUnknown
	r.StatusCode = 0
	r.Reason = ""
	r.Body = r.Body[:0]
	r.ContentLength = 0
	r.Headers.Reset()
	r.Metric.Reset()
	r.NeedKeepalive = false
}
