// Package parser implements the incremental HTTP/1.x message parser.
// A Parser consumes bytes one chunk at a time through Parse and
// tolerates the chunk boundaries falling anywhere, including inside a
// token, a header name, or the middle of a CRLF: feeding the same
// bytes split any number of ways yields the same result as feeding
// them whole. Parse returns errors.ErrNeedMore when it has consumed
// everything offered but the message is not yet complete; every other
// error is terminal and the Parser must not be reused without Reset.
package parser

import (
	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
)

// Kind selects which grammar a Parser speaks: a server parses
// requests, a client (or a test harness standing in for one) parses
// responses. Both grammars share the header and body state machines.
type Kind int

const (
	KindRequest Kind = iota
	KindResponse
)

// Phase is the coarse stage of parsing in progress, used by the I/O
// layer to pick which of the four receive-timeout categories applies
// to a stalled read (spec.md 4.E).
type Phase int

const (
	PhaseStartLine Phase = iota
	PhaseHeaders
	PhaseBody
	PhaseDone
)

type state int

const (
	// Request line.
	stMethod state = iota
	stURIInitial
	stURIScheme
	stURISchemeSlash1
	stURISchemeSlash2
	stURIHost
	stURIPort
	stURIPath
	stURIParamName
	stURIParamValue
	stURIAfterAsterisk
	stAuthorityHost
	stAuthorityPort
	stVerH
	stVerT1
	stVerT2
	stVerP
	stVerSlash
	stVerMajor
	stVerDot
	stVerMinor
	stRequestLineCR
	stRequestLineLF

	// Status line.
	stRespVerH
	stRespVerT1
	stRespVerT2
	stRespVerP
	stRespVerSlash
	stRespVerMajor
	stRespVerDot
	stRespVerMinor
	stRespSpace1
	stRespStatus
	stRespReason
	stRespLF

	// Headers, shared by both kinds.
	stHeaderNameStart
	stHeaderName
	stHeaderSpacesBeforeValue
	stHeaderValue
	stHeaderLF
	stHeadersEndLF

	// Body and terminal.
	stBody
	stDone
)

// Parser is an incremental HTTP/1.x message parser. It holds no
// reference to any connection or buffer; callers feed it byte slices
// from wherever they were read and keep whatever Parse did not
// consume for the next call.
type Parser struct {
	kind  Kind
	state state
	phase Phase

	req  *httpmsg.Request
	resp *httpmsg.Response

	methodBuf      []byte
	requestLineLen int

	schemeBuf     []byte
	hostBuf       []byte
	portAcc       uint32
	pathBuf       []byte
	paramNameBuf  []byte
	paramValueBuf []byte
	curParamName  string

	versionMajor int

	statusAcc    int
	statusDigits int
	reasonBuf    []byte

	headerNameBuf  []byte
	headerValueBuf []byte
	headerCount    int

	contentLengthSeen bool
	contentLength     uint64
	bodyAccum         []byte
}

// NewRequestParser returns a Parser that fills req as it consumes a
// request message.
func NewRequestParser(req *httpmsg.Request) *Parser {
	p := &Parser{kind: KindRequest, req: req}
	p.Reset()
	return p
}

// NewResponseParser returns a Parser that fills resp as it consumes a
// response message.
func NewResponseParser(resp *httpmsg.Response) *Parser {
	p := &Parser{kind: KindResponse, resp: resp}
	p.Reset()
	return p
}

// Reset returns the Parser to its initial state so it can parse the
// next message on a kept-alive connection. It does not reset the
// Request/Response value itself; callers call Request.Reset or
// Response.Reset separately (the pipeline does both together).
func (p *Parser) Reset() {
	if p.kind == KindRequest {
		p.state = stMethod
	} else {
		p.state = stRespVerH
	}
	p.phase = PhaseStartLine

	p.methodBuf = p.methodBuf[:0]
	p.requestLineLen = 0
	p.schemeBuf = p.schemeBuf[:0]
	p.hostBuf = p.hostBuf[:0]
	p.portAcc = 0
	p.pathBuf = p.pathBuf[:0]
	p.paramNameBuf = p.paramNameBuf[:0]
	p.paramValueBuf = p.paramValueBuf[:0]
	p.curParamName = ""
	p.versionMajor = 0
	p.statusAcc = 0
	p.statusDigits = 0
	p.reasonBuf = p.reasonBuf[:0]
	p.headerNameBuf = p.headerNameBuf[:0]
	p.headerValueBuf = p.headerValueBuf[:0]
	p.headerCount = 0
	p.contentLengthSeen = false
	p.contentLength = 0
	p.bodyAccum = p.bodyAccum[:0]
}

// Phase returns the coarse stage of parsing currently in progress.
func (p *Parser) Phase() Phase { return p.phase }

// Parse feeds data to the parser and returns how many leading bytes
// it consumed. A return of (n, errors.ErrNeedMore) with n == len(data)
// means every byte was consumed but the message is incomplete; the
// caller must supply more bytes in a later call to the same Parser.
// A return with err == nil means the message completed at byte n;
// bytes data[n:] belong to whatever comes next (a pipelined message,
// in request mode) and must not be discarded.
func (p *Parser) Parse(data []byte) (int, error) {
	pos := 0
	for pos < len(data) {
		if p.state == stBody {
			n, err := p.consumeBody(data[pos:])
			pos += n
			if err != nil {
				return pos, err
			}
			if p.state == stDone {
				return pos, nil
			}
			if n == 0 {
				break
			}
			continue
		}

		consumed, err := p.step(data[pos])
		if err != nil {
			return pos, err
		}
		if consumed {
			pos++
		}
		if p.state == stDone {
			return pos, nil
		}
	}
	return pos, errors.ErrNeedMore
}

// ParseComplete parses exactly one message out of data and fails with
// BodySizeBiggerThanContentLength if any bytes remain afterward. Use
// this for call sites that parse a standalone buffer rather than a
// pipelining connection stream, where Parse's "leave the rest for next
// time" behavior would otherwise silently accept trailing garbage.
func (p *Parser) ParseComplete(data []byte) (int, error) {
	n, err := p.Parse(data)
	if err != nil {
		return n, err
	}
	if n < len(data) {
		return n, errors.NewBodySizeBiggerThanContentLengthError()
	}
	return n, nil
}

// step dispatches a single byte to the sub-state-machine for the
// current state: header states are shared by both kinds, start-line
// states are kind-specific.
func (p *Parser) step(b byte) (bool, error) {
	if p.state >= stHeaderNameStart && p.state <= stHeadersEndLF {
		return p.stepHeader(b)
	}
	if p.kind == KindRequest {
		return p.stepRequestLine(b)
	}
	return p.stepStatusLine(b)
}
