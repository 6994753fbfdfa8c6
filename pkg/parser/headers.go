package parser

import (
	"strconv"

	"github.com/evhttpd/evhttpd/pkg/constants"
	"github.com/evhttpd/evhttpd/pkg/errors"
)

// stepHeader advances the header-section state machine, shared by
// requests and responses: a loop of "name: value" lines terminated by
// a blank line. Content-Length is tracked specially so a duplicate or
// unparseable value fails fast rather than surfacing as a body-framing
// error later.
func (p *Parser) stepHeader(b byte) (bool, error) {
	switch p.state {
	case stHeaderNameStart:
		return p.stepHeaderNameStart(b)
	case stHeaderName:
		return p.stepHeaderName(b)
	case stHeaderSpacesBeforeValue:
		return p.stepHeaderSpacesBeforeValue(b)
	case stHeaderValue:
		return p.stepHeaderValue(b)
	case stHeaderLF:
		if b != '\n' {
			return false, errors.NewBadLineEndingError()
		}
		p.state = stHeaderNameStart
		return true, nil
	case stHeadersEndLF:
		if b != '\n' {
			return false, errors.NewBadLineEndingError()
		}
		return true, p.finishHeaders()
	}
	panic("parser: unreachable header state")
}

func (p *Parser) stepHeaderNameStart(b byte) (bool, error) {
	if b == '\r' {
		p.state = stHeadersEndLF
		return true, nil
	}
	if !isTokenByte[b] {
		return false, errors.NewEmptyHeaderNameError()
	}
	p.headerCount++
	if p.headerCount > constants.MaxHeaderCount {
		return false, errors.NewBadHeaderError("too many headers")
	}
	p.headerNameBuf = append(p.headerNameBuf, b)
	p.state = stHeaderName
	return true, nil
}

func (p *Parser) stepHeaderName(b byte) (bool, error) {
	if isTokenByte[b] {
		if len(p.headerNameBuf) >= constants.MaxHeaderLineLength {
			return false, errors.NewBadHeaderNameError("header name too long")
		}
		p.headerNameBuf = append(p.headerNameBuf, b)
		return true, nil
	}
	if b != ':' {
		return false, errors.NewBadHeaderNameError("invalid byte in header name")
	}
	p.state = stHeaderSpacesBeforeValue
	return true, nil
}

func (p *Parser) stepHeaderSpacesBeforeValue(b byte) (bool, error) {
	if b == ' ' || b == '\t' {
		return true, nil
	}
	// Epsilon transition: this byte belongs to the value grammar, not
	// the optional whitespace we were skipping.
	p.state = stHeaderValue
	return false, nil
}

func (p *Parser) stepHeaderValue(b byte) (bool, error) {
	if b == '\r' {
		return true, p.finishHeaderLine()
	}
	if b < 0x20 && b != '\t' {
		return false, errors.NewBadHeaderValueError("control byte in header value")
	}
	if len(p.headerNameBuf)+len(p.headerValueBuf) >= constants.MaxHeaderLineLength {
		return false, errors.NewBadHeaderValueError("header line too long")
	}
	p.headerValueBuf = append(p.headerValueBuf, b)
	return true, nil
}

// finishHeaderLine records the accumulated name/value pair and resets
// the scratch buffers for the next line.
func (p *Parser) finishHeaderLine() error {
	name := string(p.headerNameBuf)
	value := trimTrailingOWS(p.headerValueBuf)
	if len(value) == 0 {
		return errors.NewEmptyHeaderValueError()
	}
	valueStr := string(value)

	if asciiEqualFoldString(p.headerNameBuf, "content-length") {
		if p.contentLengthSeen {
			return errors.NewMultipleContentLengthError()
		}
		n, err := strconv.ParseUint(valueStr, 10, 64)
		if err != nil {
			return errors.NewBadContentLengthError(valueStr)
		}
		if n > constants.MaxContentLength {
			return errors.NewBodyLimitError(constants.MaxContentLength)
		}
		p.contentLengthSeen = true
		p.contentLength = n
	}

	if p.kind == KindRequest {
		p.req.Headers.Add(name, valueStr)
	} else {
		p.resp.Headers.Add(name, valueStr)
	}
	p.headerNameBuf = p.headerNameBuf[:0]
	p.headerValueBuf = p.headerValueBuf[:0]
	p.state = stHeaderLF
	return nil
}

// finishHeaders closes the header section and decides whether a body
// follows: no Content-Length (or one of zero) means the message ends
// here.
func (p *Parser) finishHeaders() error {
	if !p.contentLengthSeen {
		p.contentLength = 0
	}
	if p.kind == KindRequest {
		p.req.ContentLength = p.contentLength
	} else {
		p.resp.ContentLength = p.contentLength
	}
	if p.contentLength == 0 {
		p.state = stDone
		p.phase = PhaseDone
		return nil
	}
	p.state = stBody
	p.phase = PhaseBody
	return nil
}

// trimTrailingOWS drops trailing spaces/tabs, the "optional whitespace"
// RFC 9110 allows before the line-ending CRLF.
func trimTrailingOWS(b []byte) []byte {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == '\t') {
		end--
	}
	return b[:end]
}
