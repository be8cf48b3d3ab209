package workbook

// expr.go — a tiny arithmetic/comparison evaluator for substituted
// expression-rule formulas. It only ever sees input that passed the
// character whitelist in condfmt.go, so the grammar is numbers, + - * /,
// parentheses, comparisons (= == <> != < <= > >=) and && / ||. Comparisons
// yield 1 or 0; the caller treats any nonzero result as a match.

import (
	"fmt"
	"strconv"
	"strings"
)

func evalExpr(src string) (float64, error) {
	p := &exprParser{src: src}
	v, err := p.parseOr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos:], p.pos)
	}
	return v, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

// accept consumes op if it is next, longest operators first at call sites.
func (p *exprParser) accept(op string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], op) {
		p.pos += len(op)
		return true
	}
	return false
}

func (p *exprParser) parseOr() (float64, error) {
	left, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	for p.accept("||") {
		right, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		left = boolToFloat(left != 0 || right != 0)
	}
	return left, nil
}

func (p *exprParser) parseAnd() (float64, error) {
	left, err := p.parseCompare()
	if err != nil {
		return 0, err
	}
	for p.accept("&&") {
		right, err := p.parseCompare()
		if err != nil {
			return 0, err
		}
		left = boolToFloat(left != 0 && right != 0)
	}
	return left, nil
}

func (p *exprParser) parseCompare() (float64, error) {
	left, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	for _, op := range []string{"<=", ">=", "<>", "!=", "==", "<", ">", "="} {
		if !p.accept(op) {
			continue
		}
		right, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		switch op {
		case "<=":
			return boolToFloat(left <= right), nil
		case ">=":
			return boolToFloat(left >= right), nil
		case "<>", "!=":
			return boolToFloat(left != right), nil
		case "==", "=":
			return boolToFloat(left == right), nil
		case "<":
			return boolToFloat(left < right), nil
		case ">":
			return boolToFloat(left > right), nil
		}
	}
	return left, nil
}

func (p *exprParser) parseSum() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.accept("+"):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.accept("-"):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.accept("*"):
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.accept("/"):
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpace()
	if p.accept("-") {
		v, err := p.parseFactor()
		return -v, err
	}
	if p.accept("(") {
		v, err := p.parseOr()
		if err != nil {
			return 0, err
		}
		if !p.accept(")") {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		return v, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", p.src[start:p.pos])
	}
	return n, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
