package parser

import (
	"strconv"

	"github.com/evhttpd/evhttpd/pkg/constants"
	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
)

// stepRequestLine advances the request-line and request-target state
// machine by one byte. It covers the method token, all four
// request-target forms (origin, absolute, authority, asterisk), and
// the trailing "HTTP/<major>.<minor>" version token. The line is split
// across several scratch buffers (method/scheme/host/path/param), none
// of which holds it whole, so MaxRequestLineLength is enforced here
// against the count of request-line bytes stepped through rather than
// against any one buffer's length.
func (p *Parser) stepRequestLine(b byte) (bool, error) {
	p.requestLineLen++
	if p.requestLineLen > constants.MaxRequestLineLength {
		return false, errors.NewBadUriError("request line exceeds maximum length")
	}
	switch p.state {
	case stMethod:
		return p.stepMethod(b)
	case stURIInitial:
		return p.stepURIInitial(b)
	case stURIScheme:
		return p.stepURIScheme(b)
	case stURISchemeSlash1:
		return p.stepURISchemeSlash(b, stURISchemeSlash2)
	case stURISchemeSlash2:
		return p.stepURISchemeSlash(b, stURIHost)
	case stURIHost:
		return p.stepURIHost(b)
	case stURIPort:
		return p.stepURIPort(b)
	case stURIPath:
		return p.stepURIPath(b)
	case stURIParamName:
		return p.stepURIParamName(b)
	case stURIParamValue:
		return p.stepURIParamValue(b)
	case stURIAfterAsterisk:
		return p.stepURIAfterAsterisk(b)
	case stAuthorityHost:
		return p.stepAuthorityHost(b)
	case stAuthorityPort:
		return p.stepAuthorityPort(b)
	case stVerH:
		return p.expectLiteral(b, 'H', stVerT1)
	case stVerT1:
		return p.expectLiteral(b, 'T', stVerT2)
	case stVerT2:
		return p.expectLiteral(b, 'T', stVerP)
	case stVerP:
		return p.expectLiteral(b, 'P', stVerSlash)
	case stVerSlash:
		return p.expectLiteral(b, '/', stVerMajor)
	case stVerMajor:
		return p.stepVerMajor(b)
	case stVerDot:
		return p.expectLiteral(b, '.', stVerMinor)
	case stVerMinor:
		return p.stepVerMinor(b)
	case stRequestLineCR:
		if b != '\r' {
			return false, errors.NewBadLineEndingError()
		}
		p.state = stRequestLineLF
		return true, nil
	case stRequestLineLF:
		if b != '\n' {
			return false, errors.NewBadLineEndingError()
		}
		p.state = stHeaderNameStart
		p.phase = PhaseHeaders
		return true, nil
	}
	panic("parser: unreachable request-line state")
}

// expectLiteral matches b against exactly one expected byte, a small
// helper for the fixed "HTTP/" literal shared by both start lines.
func (p *Parser) expectLiteral(b, want byte, next state) (bool, error) {
	if b != want {
		return false, errors.NewBadVersionError("expected literal \"HTTP/\"")
	}
	p.state = next
	return true, nil
}

func (p *Parser) stepMethod(b byte) (bool, error) {
	if isTokenByte[b] {
		p.methodBuf = append(p.methodBuf, b)
		return true, nil
	}
	if !isSpace(b) {
		return false, errors.NewBadMethodError(b)
	}
	if len(p.methodBuf) == 0 {
		return false, errors.NewEmptyMethodError()
	}
	name := string(p.methodBuf)
	method := httpmsg.ParseMethod(name)
	if method == httpmsg.MethodUnknown {
		return false, errors.NewUnknownMethodError(name)
	}
	p.req.Method = method
	p.state = stURIInitial
	return true, nil
}

func (p *Parser) stepURIInitial(b byte) (bool, error) {
	switch {
	case b == '*':
		p.state = stURIAfterAsterisk
		return true, nil
	case b == '/':
		p.req.Scheme = httpmsg.SchemeHTTP
		p.finishHost(0)
		p.pathBuf = append(p.pathBuf, '/')
		p.state = stURIPath
		return true, nil
	case p.req.Method == httpmsg.MethodConnect:
		if !isHostByte[b] {
			return false, errors.NewBadHostError("connect target must start with a host")
		}
		p.hostBuf = append(p.hostBuf, b)
		p.state = stAuthorityHost
		return true, nil
	case isTokenByte[b]:
		p.schemeBuf = append(p.schemeBuf, b)
		p.state = stURIScheme
		return true, nil
	default:
		return false, errors.NewBadUriError("request target starts with an invalid byte")
	}
}

func (p *Parser) stepURIScheme(b byte) (bool, error) {
	if b != ':' {
		if isTokenByte[b] {
			p.schemeBuf = append(p.schemeBuf, b)
			return true, nil
		}
		return false, errors.NewBadSchemeError("invalid byte in scheme")
	}
	if len(p.schemeBuf) == 0 {
		return false, errors.NewBadSchemeError("scheme is empty")
	}
	scheme := httpmsg.SchemeFromToken(p.schemeBuf)
	if scheme == httpmsg.SchemeUnknown {
		return false, errors.NewBadSchemeError("unrecognized scheme " + string(p.schemeBuf))
	}
	p.req.Scheme = scheme
	p.state = stURISchemeSlash1
	return true, nil
}

func (p *Parser) stepURISchemeSlash(b byte, next state) (bool, error) {
	if b != '/' {
		return false, errors.NewBadSchemeError("expected \"//\" after scheme")
	}
	p.state = next
	return true, nil
}

func (p *Parser) stepURIHost(b byte) (bool, error) {
	switch {
	case isHostByte[b]:
		p.hostBuf = append(p.hostBuf, b)
		return true, nil
	case b == ':':
		if len(p.hostBuf) == 0 {
			return false, errors.NewEmptyHostError()
		}
		p.state = stURIPort
		return true, nil
	case b == '/':
		if len(p.hostBuf) == 0 {
			return false, errors.NewEmptyHostError()
		}
		p.finishHost(0)
		p.pathBuf = append(p.pathBuf, '/')
		p.state = stURIPath
		return true, nil
	case isSpace(b):
		if len(p.hostBuf) == 0 {
			return false, errors.NewEmptyHostError()
		}
		p.finishHost(0)
		p.finishPathURI()
		p.state = stVerH
		return true, nil
	default:
		return false, errors.NewBadHostError("invalid byte in host")
	}
}

func (p *Parser) stepURIPort(b byte) (bool, error) {
	switch {
	case isDigit(b):
		p.portAcc = p.portAcc*10 + uint32(b-'0')
		if p.portAcc > 65535 {
			return false, errors.NewTooBigPortError(p.portAcc)
		}
		return true, nil
	case b == '/':
		p.finishHost(uint16(p.portAcc))
		p.pathBuf = append(p.pathBuf, '/')
		p.state = stURIPath
		return true, nil
	case isSpace(b):
		p.finishHost(uint16(p.portAcc))
		p.finishPathURI()
		p.state = stVerH
		return true, nil
	default:
		return false, errors.NewBadPortError("invalid byte in port")
	}
}

// finishHost records the host and resolves the port, substituting the
// scheme's default when port is 0 (absent or spelled out as "0").
func (p *Parser) finishHost(port uint16) {
	p.req.Host = string(p.hostBuf)
	if port == 0 {
		port = p.req.Scheme.DefaultPort()
	}
	p.req.Port = port
}

func (p *Parser) stepURIPath(b byte) (bool, error) {
	switch {
	case b == '?':
		p.req.Path = string(p.pathBuf)
		p.state = stURIParamName
		return true, nil
	case isSpace(b):
		p.finishPathURI()
		p.state = stVerH
		return true, nil
	case isURIByte[b]:
		p.pathBuf = append(p.pathBuf, b)
		return true, nil
	default:
		return false, errors.NewBadPathError(b)
	}
}

func (p *Parser) stepURIParamName(b byte) (bool, error) {
	switch {
	case b == '=':
		p.curParamName = string(p.paramNameBuf)
		p.paramNameBuf = p.paramNameBuf[:0]
		p.state = stURIParamValue
		return true, nil
	case b == '&':
		if len(p.paramNameBuf) > 0 {
			p.req.Params.Add(string(p.paramNameBuf), "")
			p.paramNameBuf = p.paramNameBuf[:0]
		}
		return true, nil
	case isSpace(b):
		if len(p.paramNameBuf) > 0 {
			p.req.Params.Add(string(p.paramNameBuf), "")
		}
		p.finishQueryURI()
		p.state = stVerH
		return true, nil
	case isURIByte[b]:
		p.paramNameBuf = append(p.paramNameBuf, b)
		return true, nil
	default:
		return false, errors.NewBadParamsError("invalid byte in query parameter name")
	}
}

func (p *Parser) stepURIParamValue(b byte) (bool, error) {
	switch {
	case b == '&':
		p.req.Params.Add(p.curParamName, string(p.paramValueBuf))
		p.paramValueBuf = p.paramValueBuf[:0]
		p.state = stURIParamName
		return true, nil
	case isSpace(b):
		p.req.Params.Add(p.curParamName, string(p.paramValueBuf))
		p.paramValueBuf = p.paramValueBuf[:0]
		p.finishQueryURI()
		p.state = stVerH
		return true, nil
	case isURIByte[b]:
		p.paramValueBuf = append(p.paramValueBuf, b)
		return true, nil
	default:
		return false, errors.NewBadParamsError("invalid byte in query parameter value")
	}
}

func (p *Parser) stepURIAfterAsterisk(b byte) (bool, error) {
	if !isSpace(b) {
		return false, errors.NewBadUriError("asterisk-form request-target must be exactly \"*\"")
	}
	p.req.Path = "*"
	p.req.URI = "*"
	p.state = stVerH
	return true, nil
}

func (p *Parser) stepAuthorityHost(b byte) (bool, error) {
	switch {
	case isHostByte[b]:
		p.hostBuf = append(p.hostBuf, b)
		return true, nil
	case b == ':':
		if len(p.hostBuf) == 0 {
			return false, errors.NewEmptyHostError()
		}
		p.state = stAuthorityPort
		return true, nil
	default:
		return false, errors.NewBadHostError("connect target is missing a port")
	}
}

func (p *Parser) stepAuthorityPort(b byte) (bool, error) {
	switch {
	case isDigit(b):
		p.portAcc = p.portAcc*10 + uint32(b-'0')
		if p.portAcc > 65535 {
			return false, errors.NewTooBigPortError(p.portAcc)
		}
		return true, nil
	case isSpace(b):
		if p.portAcc == 0 {
			return false, errors.NewBadPortError("connect target port is empty")
		}
		p.req.Host = string(p.hostBuf)
		p.req.Port = uint16(p.portAcc)
		p.req.URI = p.req.Host + ":" + strconv.Itoa(int(p.req.Port))
		p.state = stVerH
		return true, nil
	default:
		return false, errors.NewBadPortError("invalid byte in connect target port")
	}
}

// finishPathURI builds Request.URI for the origin-form and
// absolute-form cases once no query string was present.
func (p *Parser) finishPathURI() {
	path := "/"
	if len(p.pathBuf) > 0 {
		path = string(p.pathBuf)
	}
	p.req.Path = path
	p.req.URI = p.buildURIPrefix() + path
}

// finishQueryURI builds Request.URI once a query string was parsed.
func (p *Parser) finishQueryURI() {
	var query []byte
	p.req.Params.Each(func(name, value string) {
		if len(query) > 0 {
			query = append(query, '&')
		}
		query = append(query, name...)
		query = append(query, '=')
		query = append(query, value...)
	})
	p.req.URI = p.buildURIPrefix() + p.req.Path + "?" + string(query)
}

func (p *Parser) buildURIPrefix() string {
	if p.req.Host == "" {
		return ""
	}
	prefix := p.req.Scheme.String() + "://" + p.req.Host
	if p.req.Port != 0 && p.req.Port != p.req.Scheme.DefaultPort() {
		prefix += ":" + strconv.Itoa(int(p.req.Port))
	}
	return prefix
}

func (p *Parser) stepVerMajor(b byte) (bool, error) {
	if !isDigit(b) {
		return false, errors.NewBadVersionError("version major is not a digit")
	}
	p.versionMajor = int(b - '0')
	p.state = stVerDot
	return true, nil
}

func (p *Parser) stepVerMinor(b byte) (bool, error) {
	if !isDigit(b) {
		return false, errors.NewBadVersionError("version minor is not a digit")
	}
	minor := int(b - '0')
	version := httpmsg.VersionFromDigits(p.versionMajor, minor)
	if version == httpmsg.VersionUnknown {
		return false, errors.NewBadVersionError("only HTTP/1.0 and HTTP/1.1 are supported")
	}
	p.req.Version = version
	p.state = stRequestLineCR
	return true, nil
}
