package parser

import (
	"testing"

	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
)

// feedWhole parses the entire message in one Parse call.
func feedWhole(t *testing.T, raw []byte) *httpmsg.Request {
	t.Helper()
	req := httpmsg.NewRequest()
	p := NewRequestParser(req)
	n, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("consumed %d of %d bytes", n, len(raw))
	}
	return req
}

// feedSplit parses the same message split into chunks of size chunk,
// feeding one chunk per Parse call. It asserts the final state matches
// feeding the whole thing at once.
func feedSplit(t *testing.T, raw []byte, chunk int) *httpmsg.Request {
	t.Helper()
	req := httpmsg.NewRequest()
	p := NewRequestParser(req)

	pos := 0
	for pos < len(raw) {
		end := pos + chunk
		if end > len(raw) {
			end = len(raw)
		}
		n, err := p.Parse(raw[pos:end])
		pos += n
		if err != nil {
			if errors.IsNeedMore(err) {
				continue
			}
			t.Fatalf("Parse failed at offset %d: %v", pos, err)
		}
		if p.Phase() == PhaseDone {
			if pos != len(raw) {
				t.Fatalf("completed at %d but %d bytes remain", pos, len(raw))
			}
			return req
		}
	}
	t.Fatalf("parser never reached PhaseDone")
	return nil
}

func TestParseOriginFormRequest(t *testing.T) {
	raw := []byte("GET /foo/bar?x=1&y=2 HTTP/1.1\r\nHost: example.com\r\nConnection: keep-alive\r\n\r\n")
	req := feedWhole(t, raw)

	if req.Method != httpmsg.MethodGet {
		t.Errorf("method = %v, want GET", req.Method)
	}
	if req.Path != "/foo/bar" {
		t.Errorf("path = %q, want /foo/bar", req.Path)
	}
	if req.Version != httpmsg.HTTP11 {
		t.Errorf("version = %v, want HTTP/1.1", req.Version)
	}
	if req.Port != 80 {
		t.Errorf("port = %d, want 80 (origin-form default)", req.Port)
	}
	if v, _ := req.Params.Get("x"); v != "1" {
		t.Errorf("param x = %q, want 1", v)
	}
	if v, _ := req.Params.Get("y"); v != "2" {
		t.Errorf("param y = %q, want 2", v)
	}
	if v, _ := req.Headers.Get("Host"); v != "example.com" {
		t.Errorf("Host = %q, want example.com", v)
	}
	if v, _ := req.Headers.Get("connection"); v != "keep-alive" {
		t.Errorf("Connection (case-folded lookup) = %q, want keep-alive", v)
	}
}

func TestParseAbsoluteFormRequest(t *testing.T) {
	raw := []byte("GET http://example.com:8080/a/b HTTP/1.1\r\nHost: example.com\r\n\r\n")
	req := feedWhole(t, raw)

	if req.Scheme != httpmsg.SchemeHTTP {
		t.Errorf("scheme = %v, want http", req.Scheme)
	}
	if req.Host != "example.com" {
		t.Errorf("host = %q, want example.com", req.Host)
	}
	if req.Port != 8080 {
		t.Errorf("port = %d, want 8080", req.Port)
	}
	if req.Path != "/a/b" {
		t.Errorf("path = %q, want /a/b", req.Path)
	}
}

func TestParseAuthorityFormConnect(t *testing.T) {
	raw := []byte("CONNECT example.com:443 HTTP/1.1\r\nHost: example.com:443\r\n\r\n")
	req := feedWhole(t, raw)

	if req.Method != httpmsg.MethodConnect {
		t.Fatalf("method = %v, want CONNECT", req.Method)
	}
	if req.Host != "example.com" || req.Port != 443 {
		t.Fatalf("host:port = %s:%d, want example.com:443", req.Host, req.Port)
	}
}

func TestParseAsteriskFormOptions(t *testing.T) {
	raw := []byte("OPTIONS * HTTP/1.1\r\nHost: example.com\r\n\r\n")
	req := feedWhole(t, raw)

	if req.Path != "*" {
		t.Fatalf("path = %q, want *", req.Path)
	}
}

func TestParseRequestWithBody(t *testing.T) {
	raw := []byte("POST /submit HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\n\r\nhello")
	req := feedWhole(t, raw)

	if string(req.Body) != "hello" {
		t.Fatalf("body = %q, want hello", req.Body)
	}
	if req.ContentLength != 5 {
		t.Fatalf("content-length = %d, want 5", req.ContentLength)
	}
}

func TestParsePipeliningLeavesTrailingBytes(t *testing.T) {
	first := "GET /one HTTP/1.1\r\nHost: example.com\r\n\r\n"
	second := "GET /two HTTP/1.1\r\nHost: example.com\r\n\r\n"
	raw := []byte(first + second)

	req := httpmsg.NewRequest()
	p := NewRequestParser(req)
	n, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if n != len(first) {
		t.Fatalf("consumed %d bytes, want %d (end of first message)", n, len(first))
	}
	if req.Path != "/one" {
		t.Fatalf("path = %q, want /one", req.Path)
	}

	req.Reset()
	p.Reset()
	n2, err := p.Parse(raw[n:])
	if err != nil {
		t.Fatalf("second Parse failed: %v", err)
	}
	if n2 != len(second) {
		t.Fatalf("consumed %d bytes, want %d", n2, len(second))
	}
	if req.Path != "/two" {
		t.Fatalf("path = %q, want /two", req.Path)
	}
}

func TestParseCompleteRejectsTrailingBytes(t *testing.T) {
	raw := []byte("GET /one HTTP/1.1\r\nHost: example.com\r\n\r\nGET /two HTTP/1.1\r\n\r\n")
	req := httpmsg.NewRequest()
	p := NewRequestParser(req)
	_, err := p.ParseComplete(raw)
	if errors.GetErrorType(err) != errors.ErrorTypeBodySizeBiggerThanContentLength {
		t.Fatalf("err = %v, want BodySizeBiggerThanContentLength", err)
	}
}

func TestParseFragmentationToleranceEveryByteBoundary(t *testing.T) {
	raw := []byte("POST /submit?a=1&b=2 HTTP/1.1\r\nHost: example.com\r\nX-Custom:  value-with-spaces  \r\nContent-Length: 4\r\n\r\nbody")
	want := feedWhole(t, raw)

	for _, chunk := range []int{1, 2, 3, 7, 4096} {
		t.Run(chunkLabel(chunk), func(t *testing.T) {
			got := feedSplit(t, raw, chunk)
			if got.Method != want.Method || got.Path != want.Path || got.Version != want.Version {
				t.Fatalf("mismatch at chunk=%d: got %+v", chunk, got)
			}
			if string(got.Body) != string(want.Body) {
				t.Fatalf("body mismatch at chunk=%d: got %q want %q", chunk, got.Body, want.Body)
			}
			gotHost, _ := got.Headers.Get("Host")
			wantHost, _ := want.Headers.Get("Host")
			if gotHost != wantHost {
				t.Fatalf("host header mismatch at chunk=%d", chunk)
			}
			gotCustom, _ := got.Headers.Get("X-Custom")
			if gotCustom != "value-with-spaces" {
				t.Fatalf("X-Custom = %q, want trimmed OWS", gotCustom)
			}
		})
	}
}

func chunkLabel(n int) string {
	switch n {
	case 1:
		return "chunk=1"
	case 2:
		return "chunk=2"
	case 3:
		return "chunk=3"
	case 7:
		return "chunk=7"
	default:
		return "whole"
	}
}

func TestParseMultipleContentLengthRejected(t *testing.T) {
	raw := []byte("POST / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\nx")
	req := httpmsg.NewRequest()
	p := NewRequestParser(req)
	_, err := p.Parse(raw)
	if errors.GetErrorType(err) != errors.ErrorTypeMultipleContentLength {
		t.Fatalf("err = %v, want MultipleContentLength", err)
	}
}

func TestParseOversizedRequestLineRejected(t *testing.T) {
	pathBytes := make([]byte, 9*1024)
	for i := range pathBytes {
		pathBytes[i] = 'a'
	}
	raw := []byte("GET /" + string(pathBytes) + " HTTP/1.1\r\n\r\n")

	req := httpmsg.NewRequest()
	p := NewRequestParser(req)
	_, err := p.Parse(raw)
	if errors.GetErrorType(err) != errors.ErrorTypeBadUri {
		t.Fatalf("err = %v, want BadUri (request line too long)", err)
	}
}

func TestParseUnknownMethodRejected(t *testing.T) {
	raw := []byte("BOGUS / HTTP/1.1\r\n\r\n")
	req := httpmsg.NewRequest()
	p := NewRequestParser(req)
	_, err := p.Parse(raw)
	if errors.GetErrorType(err) != errors.ErrorTypeUnknownMethod {
		t.Fatalf("err = %v, want UnknownMethod", err)
	}
}

func TestParseUnsupportedVersionRejected(t *testing.T) {
	raw := []byte("GET / HTTP/2.0\r\n\r\n")
	req := httpmsg.NewRequest()
	p := NewRequestParser(req)
	_, err := p.Parse(raw)
	if errors.GetErrorType(err) != errors.ErrorTypeBadVersion {
		t.Fatalf("err = %v, want BadVersion", err)
	}
}

func TestParseNeedsMoreOnPartialInput(t *testing.T) {
	raw := []byte("GET / HTTP/1.1\r\nHost: example")
	req := httpmsg.NewRequest()
	p := NewRequestParser(req)
	n, err := p.Parse(raw)
	if !errors.IsNeedMore(err) {
		t.Fatalf("err = %v, want ErrNeedMore", err)
	}
	if n != len(raw) {
		t.Fatalf("consumed %d, want all %d bytes", n, len(raw))
	}
}

func TestParseResponseStatusLine(t *testing.T) {
	raw := []byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")
	resp := httpmsg.NewResponse()
	p := NewResponseParser(resp)
	n, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("consumed %d of %d", n, len(raw))
	}
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestParseUnknownStatusRejected(t *testing.T) {
	raw := []byte("HTTP/1.1 999 Bogus\r\n\r\n")
	resp := httpmsg.NewResponse()
	p := NewResponseParser(resp)
	_, err := p.Parse(raw)
	if errors.GetErrorType(err) != errors.ErrorTypeUnknownStatus {
		t.Fatalf("err = %v, want UnknownStatus", err)
	}
}

func TestParseReuseAcrossResetClearsState(t *testing.T) {
	req := httpmsg.NewRequest()
	p := NewRequestParser(req)

	first := []byte("GET /first HTTP/1.1\r\nHost: a\r\n\r\n")
	if _, err := p.Parse(first); err != nil {
		t.Fatalf("first parse failed: %v", err)
	}
	if req.Path != "/first" {
		t.Fatalf("path = %q, want /first", req.Path)
	}

	req.Reset()
	p.Reset()

	second := []byte("POST /second HTTP/1.0\r\nHost: b\r\nContent-Length: 3\r\n\r\nabc")
	if _, err := p.Parse(second); err != nil {
		t.Fatalf("second parse failed: %v", err)
	}
	if req.Path != "/second" || req.Method != httpmsg.MethodPost || string(req.Body) != "abc" {
		t.Fatalf("stale state leaked across Reset: %+v", req)
	}
}
