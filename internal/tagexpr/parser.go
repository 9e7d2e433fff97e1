package tagexpr

import (
	"github.com/eniac111/fleetctl/internal/types"
)

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) unexpected(tok token) error {
	return types.Errorf(types.ErrInvalidToken, "invalid token in tag expression: unexpected %s", tok.describe())
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = orExpr{l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = andExpr{l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseFactor() (Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokNot:
		x, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return notExpr{x: x}, nil
	case tokLParen:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, types.Errorf(types.ErrInvalidToken,
				"invalid token in tag expression: unmatched %s, found %s", tok.describe(), closing.describe())
		}
		return x, nil
	case tokTag:
		return tagExpr{tag: tok.text}, nil
	default:
		return nil, p.unexpected(tok)
	}
}
