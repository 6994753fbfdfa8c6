// Package httpmsg holds the HTTP/1.x value model (Request, Response,
// HttpMethod, HttpScheme, HttpVersion, HttpStatusCode, the header and
// parameter multimaps) and the response-to-bytes serializer (the
// "wire codec" of spec.md 4.C).
package httpmsg

import (
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/evhttpd/evhttpd/pkg/errors"
)

// Serialize renders resp as `<version> SP <status> SP <reason> CRLF`,
// each header as `<name>: <value> CRLF`, a terminating CRLF, then the
// body. It fails with InvalidResponse when the status or version is
// unknown, matching spec.md 4.C and the pipeline's valid_response step.
func Serialize(resp *Response) ([]byte, error) {
	if !resp.Version.Valid() {
		return nil, errors.NewInvalidResponseError("response version is unknown")
	}
	if !resp.StatusCode.Valid() {
		return nil, errors.NewInvalidResponseError("response status code is unknown")
	}

	reason := resp.Reason
	if reason == "" {
		reason = resp.StatusCode.DefaultReason()
	}
	if !httpguts.ValidHeaderFieldValue(reason) {
		return nil, errors.NewInvalidResponseError("reason phrase contains invalid bytes")
	}

	buf := make([]byte, 0, 256+len(resp.Body))
	buf = appendStatusLine(buf, resp.Version, resp.StatusCode, reason)

	haveContentLength := resp.Headers.Count("Content-Length") > 0
	resp.Headers.Each(func(name, value string) {
		buf = append(buf, name...)
		buf = append(buf, ':', ' ')
		buf = append(buf, value...)
		buf = append(buf, '\r', '\n')
	})
	if !haveContentLength {
		buf = append(buf, "Content-Length: "...)
		buf = strconv.AppendUint(buf, uint64(len(resp.Body)), 10)
		buf = append(buf, '\r', '\n')
	}
	buf = append(buf, '\r', '\n')
	buf = append(buf, resp.Body...)
	return buf, nil
}

// appendStatusLine appends the status line. HTTP/1.1's line is built
// field-by-field the same as HTTP/1.0's; spec.md 4.C permits a
// precomputed line for HTTP/1.1 as an optimization, which callers that
// repeatedly emit the same status may apply by caching Serialize's
// output keyed on (version, status, reason) themselves.
func appendStatusLine(buf []byte, v HttpVersion, code HttpStatusCode, reason string) []byte {
	buf = append(buf, v.String()...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(code), 10)
	buf = append(buf, ' ')
	buf = append(buf, reason...)
	buf = append(buf, '\r', '\n')
	return buf
}
