// Package tagexpr implements the boolean tag query language used to select
// hosts:
//
//	expr   := term ( "|" term )*
//	term   := factor ( "&" factor )*
//	factor := "!" factor | "(" expr ")" | TAG
//
// "!" binds tighter than "&", which binds tighter than "|". Binary operators
// are left-associative and evaluation short-circuits.
package tagexpr

import (
	"github.com/eniac111/fleetctl/internal/types"
)

// Expr is a compiled tag query.
type Expr interface {
	// eval reports whether the expression holds for a host; has reports
	// whether the host carries a tag.
	eval(has func(tag string) bool) bool
	String() string
}

type tagExpr struct{ tag string }

type notExpr struct{ x Expr }

type andExpr struct{ l, r Expr }

type orExpr struct{ l, r Expr }

func (e tagExpr) eval(has func(string) bool) bool { return has(e.tag) }
func (e notExpr) eval(has func(string) bool) bool { return !e.x.eval(has) }
func (e andExpr) eval(has func(string) bool) bool { return e.l.eval(has) && e.r.eval(has) }
func (e orExpr) eval(has func(string) bool) bool  { return e.l.eval(has) || e.r.eval(has) }

func (e tagExpr) String() string { return e.tag }
func (e notExpr) String() string { return "!" + e.x.String() }
func (e andExpr) String() string { return "(" + e.l.String() + " & " + e.r.String() + ")" }
func (e orExpr) String() string  { return "(" + e.l.String() + " | " + e.r.String() + ")" }

// Compile parses query into an Expr. Malformed queries fail with an error
// matching types.ErrInvalidToken.
func Compile(query string) (Expr, error) {
	toks, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.unexpected(tok)
	}
	return expr, nil
}

// MustCompile is Compile for queries known to be valid.
func MustCompile(query string) Expr {
	expr, err := Compile(query)
	if err != nil {
		panic(err)
	}
	return expr
}

// Match evaluates expr against a tag set.
func Match(expr Expr, tags []string) bool {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return MatchFunc(expr, func(tag string) bool {
		_, ok := set[tag]
		return ok
	})
}

// MatchFunc evaluates expr with a caller-supplied membership test. The test
// is not called for operands that short-circuiting skips.
func MatchFunc(expr Expr, has func(tag string) bool) bool {
	return expr.eval(has)
}

// MatchHost evaluates expr against the tags of h.
func MatchHost(expr Expr, h types.Host) bool {
	return Match(expr, h.TagStrings())
}

// Eval compiles query and evaluates it against tags.
func Eval(query string, tags []string) (bool, error) {
	expr, err := Compile(query)
	if err != nil {
		return false, err
	}
	return Match(expr, tags), nil
}
