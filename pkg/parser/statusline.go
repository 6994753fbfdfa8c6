package parser

import (
	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
)

// stepStatusLine advances the status-line state machine by one byte:
// "HTTP/<major>.<minor>" SP <3-digit-status> SP <reason> CRLF.
func (p *Parser) stepStatusLine(b byte) (bool, error) {
	switch p.state {
	case stRespVerH:
		return p.expectLiteral(b, 'H', stRespVerT1)
	case stRespVerT1:
		return p.expectLiteral(b, 'T', stRespVerT2)
	case stRespVerT2:
		return p.expectLiteral(b, 'T', stRespVerP)
	case stRespVerP:
		return p.expectLiteral(b, 'P', stRespVerSlash)
	case stRespVerSlash:
		return p.expectLiteral(b, '/', stRespVerMajor)
	case stRespVerMajor:
		return p.stepRespVerMajor(b)
	case stRespVerDot:
		return p.expectLiteral(b, '.', stRespVerMinor)
	case stRespVerMinor:
		return p.stepRespVerMinor(b)
	case stRespSpace1:
		if !isSpace(b) {
			return false, errors.NewBadStatusError("expected single space after version")
		}
		p.state = stRespStatus
		return true, nil
	case stRespStatus:
		return p.stepRespStatus(b)
	case stRespReason:
		return p.stepRespReason(b)
	case stRespLF:
		if b != '\n' {
			return false, errors.NewBadLineEndingError()
		}
		p.state = stHeaderNameStart
		p.phase = PhaseHeaders
		return true, nil
	}
	panic("parser: unreachable status-line state")
}

func (p *Parser) stepRespVerMajor(b byte) (bool, error) {
	if !isDigit(b) {
		return false, errors.NewBadVersionError("version major is not a digit")
	}
	p.versionMajor = int(b - '0')
	p.state = stRespVerDot
	return true, nil
}

func (p *Parser) stepRespVerMinor(b byte) (bool, error) {
	if !isDigit(b) {
		return false, errors.NewBadVersionError("version minor is not a digit")
	}
	minor := int(b - '0')
	version := httpmsg.VersionFromDigits(p.versionMajor, minor)
	if version == httpmsg.VersionUnknown {
		return false, errors.NewBadVersionError("only HTTP/1.0 and HTTP/1.1 are supported")
	}
	p.resp.Version = version
	p.state = stRespSpace1
	return true, nil
}

func (p *Parser) stepRespStatus(b byte) (bool, error) {
	if isDigit(b) {
		p.statusDigits++
		if p.statusDigits > 3 {
			return false, errors.NewBadStatusError("status code has more than three digits")
		}
		p.statusAcc = p.statusAcc*10 + int(b-'0')
		return true, nil
	}
	if !isSpace(b) {
		return false, errors.NewBadStatusError("invalid byte in status code")
	}
	if p.statusDigits != 3 {
		return false, errors.NewBadStatusError("status code must be exactly three digits")
	}
	code := httpmsg.HttpStatusCode(p.statusAcc)
	if !code.Valid() {
		return false, errors.NewUnknownStatusError(p.statusAcc)
	}
	p.resp.StatusCode = code
	p.state = stRespReason
	return true, nil
}

func (p *Parser) stepRespReason(b byte) (bool, error) {
	if b == '\r' {
		p.resp.Reason = string(p.reasonBuf)
		p.state = stRespLF
		return true, nil
	}
	if b < 0x20 && b != '\t' {
		return false, errors.NewBadReasonError("control byte in reason phrase")
	}
	p.reasonBuf = append(p.reasonBuf, b)
	return true, nil
}
