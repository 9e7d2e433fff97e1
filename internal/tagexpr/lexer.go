package tagexpr

import (
	"fmt"
	"unicode/utf8"

	"github.com/eniac111/fleetctl/internal/types"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokTag
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokTag:
		return "tag"
	case tokAnd:
		return `"&"`
	case tokOr:
		return `"|"`
	case tokNot:
		return `"!"`
	case tokLParen:
		return `"("`
	case tokRParen:
		return `")"`
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int // byte offset in the input
}

func (t token) describe() string {
	if t.kind == tokTag {
		return fmt.Sprintf("tag %q at offset %d", t.text, t.pos)
	}
	return fmt.Sprintf("%s at offset %d", t.kind, t.pos)
}

// lex splits input into tokens. The result always ends with a tokEOF.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && size <= 1 {
			return nil, types.Errorf(types.ErrInvalidToken,
				"invalid token in tag expression: byte %q at offset %d is not valid UTF-8", input[i], i)
		}
		switch {
		case types.IsTagSpace(r):
			i += size
		case r == '&':
			toks = append(toks, token{kind: tokAnd, text: "&", pos: i})
			i += size
		case r == '|':
			toks = append(toks, token{kind: tokOr, text: "|", pos: i})
			i += size
		case r == '!':
			toks = append(toks, token{kind: tokNot, text: "!", pos: i})
			i += size
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i += size
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i += size
		default:
			start := i
			for i < len(input) {
				r, size = utf8.DecodeRuneInString(input[i:])
				if (r == utf8.RuneError && size <= 1) || !types.IsTagRune(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokTag, text: input[start:i], pos: start})
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(input)}), nil
}
