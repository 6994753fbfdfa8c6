package parser

// consumeBody copies up to the remaining declared Content-Length from
// data in one bulk copy rather than byte-at-a-time, since body framing
// is a counted copy, not a grammar. It never consumes more than the
// message declared, so trailing bytes (a pipelined request, or just
// garbage a strict caller should reject via ParseComplete) are left
// for the caller.
func (p *Parser) consumeBody(data []byte) (int, error) {
	remaining := p.contentLength - uint64(len(p.bodyAccum))
	if remaining == 0 {
		p.state = stDone
		p.phase = PhaseDone
		return 0, nil
	}
	n := len(data)
	if uint64(n) > remaining {
		n = int(remaining)
	}
	if n == 0 {
		return 0, nil
	}
	p.bodyAccum = append(p.bodyAccum, data[:n]...)
	if uint64(len(p.bodyAccum)) >= p.contentLength {
		if p.kind == KindRequest {
			p.req.Body = p.bodyAccum
		} else {
			p.resp.Body = p.bodyAccum
		}
		p.state = stDone
		p.phase = PhaseDone
	}
	return n, nil
}
