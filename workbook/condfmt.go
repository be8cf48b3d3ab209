package workbook

// condfmt.go — evaluates a sheet's conditional formatting rules for one cell.
// Rules are pre-sorted by ascending priority (lower number wins); boolean
// rule types merge their style on match and honor stopIfTrue, continuous
// types (color scale, data bar) merge unconditionally and never stop the
// scan. Evaluate is a pure function of its inputs; the sheet is treated as a
// read-only snapshot.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/efp"
)

// RuleType enumerates the supported conditional formatting rule types.
type RuleType string

const (
	RuleCellIs       RuleType = "cellIs"
	RuleContainsText RuleType = "containsText"
	RuleExpression   RuleType = "expression"
	RuleColorScale   RuleType = "colorScale"
	RuleDataBar      RuleType = "dataBar"
)

// ColorScale is a 2- or 3-point gradient definition.
type ColorScale struct {
	Min    string
	Mid    string
	Max    string
	HasMid bool
}

// DataBar is an in-cell bar definition.
type DataBar struct {
	Color     string
	ShowValue bool
}

// Rule is one parsed conditional formatting rule.
type Rule struct {
	Ranges     []Rect
	Type       RuleType
	Priority   int
	StopIfTrue bool
	Operator   string
	Formulas   []string
	ColorScale *ColorScale
	DataBar    *DataBar
	Style      *DiffFormat
}

func (r *Rule) covers(addr Address) bool {
	for _, rng := range r.Ranges {
		if rng.Contains(addr) {
			return true
		}
	}
	return false
}

// Override accumulates the visual result of rule evaluation for one cell.
// Zero values mean "no override".
type Override struct {
	FillColor    string
	TextColor    string
	Bold         bool
	Italic       bool
	DataBarColor string
	DataBarWidth float64 // percent of the cell, 0 when no bar applies
	HideText     bool    // bar rule with showValue="0": bar only, no text
}

// IsZero reports whether no rule produced a visual change.
func (o Override) IsZero() bool { return o == Override{} }

// Evaluate runs the sheet's rules against one cell value. rules must be
// sorted ascending by priority (parseRules guarantees this); earlier matches
// win on conflicting properties.
func Evaluate(addr Address, value Value, rules []Rule, sheet *Sheet) Override {
	var out Override
	for i := range rules {
		rule := &rules[i]
		if !rule.covers(addr) {
			continue
		}
		switch rule.Type {
		case RuleColorScale:
			if color, ok := scaleColor(value, rule, sheet); ok {
				if out.FillColor == "" {
					out.FillColor = color
				}
			}
		case RuleDataBar:
			if width, ok := barWidth(value, rule, sheet); ok {
				if out.DataBarWidth == 0 {
					out.DataBarWidth = width
					out.DataBarColor = rule.DataBar.Color
					out.HideText = !rule.DataBar.ShowValue
				}
			}
		default:
			if !ruleMatches(rule, value, sheet) {
				continue
			}
			if rule.Style != nil {
				mergeStyle(&out, rule.Style)
			}
			if rule.StopIfTrue {
				return out
			}
		}
	}
	return out
}

// mergeStyle copies set properties that are not already claimed by a
// higher-precedence rule.
func mergeStyle(out *Override, d *DiffFormat) {
	if out.FillColor == "" && d.FillColor != "" {
		out.FillColor = d.FillColor
	}
	if out.TextColor == "" && d.FontColor != "" {
		out.TextColor = d.FontColor
	}
	if d.Bold {
		out.Bold = true
	}
	if d.Italic {
		out.Italic = true
	}
}

// ruleMatches computes the boolean applies-result for cellIs, containsText
// and expression rules.
func ruleMatches(rule *Rule, value Value, sheet *Sheet) bool {
	switch rule.Type {
	case RuleCellIs:
		return cellIsMatches(rule, value, sheet)
	case RuleContainsText:
		if len(rule.Formulas) == 0 || value.Kind != KindString {
			return false
		}
		return strings.Contains(
			strings.ToLower(value.Str),
			strings.ToLower(rule.Formulas[0]),
		)
	case RuleExpression:
		if len(rule.Formulas) == 0 {
			return false
		}
		return expressionMatches(rule.Formulas[0], sheet)
	default:
		return false
	}
}

// cellIsMatches compares the cell's numeric value against the rule operands.
// Non-numeric cell values never match.
func cellIsMatches(rule *Rule, value Value, sheet *Sheet) bool {
	n, ok := value.AsNumber()
	if !ok {
		return false
	}
	operand := func(i int) (float64, bool) {
		if i >= len(rule.Formulas) {
			return 0, false
		}
		return resolveOperand(rule.Formulas[i], sheet)
	}

	a, ok := operand(0)
	if !ok {
		return false
	}
	switch rule.Operator {
	case "greaterThan":
		return n > a
	case "lessThan":
		return n < a
	case "greaterThanOrEqual":
		return n >= a
	case "lessThanOrEqual":
		return n <= a
	case "equal":
		return n == a
	case "notEqual":
		return n != a
	case "between", "notBetween":
		b, ok := operand(1)
		if !ok {
			return false
		}
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		between := n >= lo && n <= hi
		if rule.Operator == "between" {
			return between
		}
		return !between
	default:
		return false
	}
}

// resolveOperand turns a rule operand into a number: a literal, or a plain
// single-cell reference looked up in the sheet snapshot.
func resolveOperand(expr string, sheet *Sheet) (float64, bool) {
	expr = strings.TrimSpace(expr)
	if n, err := strconv.ParseFloat(expr, 64); err == nil {
		return n, true
	}
	addr, err := ParseCellRef(expr)
	if err != nil {
		return 0, false
	}
	return sheet.ValueAt(addr).AsNumber()
}

// exprWhitelist is the hard security boundary for expression rules: after
// cell references are substituted, the expression may contain only digits
// and arithmetic/comparison punctuation. Anything else — identifiers,
// letters, function calls — is rejected without evaluation.
const exprWhitelist = "0123456789+-*/().<>=!&| \t"

func whitelisted(expr string) bool {
	for _, r := range expr {
		if !strings.ContainsRune(exprWhitelist, r) {
			return false
		}
	}
	return true
}

// expressionMatches substitutes single-cell references in the rule formula
// with their numeric values and evaluates the remaining arithmetic, guarded
// by the whitelist.
func expressionMatches(formula string, sheet *Sheet) bool {
	substituted, ok := substituteRefs(formula, sheet)
	if !ok || !whitelisted(substituted) {
		return false
	}
	result, err := evalExpr(substituted)
	if err != nil {
		return false
	}
	return result != 0
}

// substituteRefs rebuilds the formula with every single-cell reference
// operand replaced by its resolved numeric value. Multi-cell ranges,
// cross-sheet references and unresolvable tokens reject the expression.
func substituteRefs(formula string, sheet *Sheet) (string, bool) {
	ps := efp.ExcelParser()
	tokens := ps.Parse(formula)
	if tokens == nil {
		return "", false
	}
	var b strings.Builder
	for _, tok := range tokens {
		if tok.TType == efp.TokenTypeOperand && tok.TSubType == efp.TokenSubTypeRange {
			ref := tok.TValue
			if strings.ContainsAny(ref, "!:") {
				return "", false
			}
			addr, err := ParseCellRef(ref)
			if err != nil {
				return "", false
			}
			n, ok := sheet.ValueAt(addr).AsNumber()
			if !ok {
				n = 0
			}
			b.WriteString(strconv.FormatFloat(n, 'f', -1, 64))
			continue
		}
		b.WriteString(tok.TValue)
	}
	return b.String(), true
}

// ---- continuous rule types ---------------------------------------------------

// rangeExtent computes the min/max over the numeric values within the rule's
// ranges. ok is false when the range holds no numbers or is degenerate
// (min == max), which yields no visual change.
func rangeExtent(rule *Rule, sheet *Sheet) (min, max float64, ok bool) {
	found := false
	for _, rng := range rule.Ranges {
		for row := rng.Top; row <= rng.Bottom; row++ {
			for col := rng.Left; col <= rng.Right; col++ {
				n, numeric := sheet.ValueAt(Address{Row: row, Col: col}).AsNumber()
				if !numeric {
					continue
				}
				if !found || n < min {
					min = n
				}
				if !found || n > max {
					max = n
				}
				found = true
			}
		}
	}
	if !found || min == max {
		return 0, 0, false
	}
	return min, max, true
}

func scaleColor(value Value, rule *Rule, sheet *Sheet) (string, bool) {
	n, numeric := value.AsNumber()
	if !numeric {
		return "", false
	}
	min, max, ok := rangeExtent(rule, sheet)
	if !ok {
		return "", false
	}
	t := clamp01((n - min) / (max - min))
	cs := rule.ColorScale
	if cs.HasMid {
		if t < 0.5 {
			return lerpColor(cs.Min, cs.Mid, t*2), true
		}
		return lerpColor(cs.Mid, cs.Max, (t-0.5)*2), true
	}
	return lerpColor(cs.Min, cs.Max, t), true
}

func barWidth(value Value, rule *Rule, sheet *Sheet) (float64, bool) {
	n, numeric := value.AsNumber()
	if !numeric {
		return 0, false
	}
	min, max, ok := rangeExtent(rule, sheet)
	if !ok {
		return 0, false
	}
	return clamp01((n-min)/(max-min)) * 100, true
}

// lerpColor interpolates two hex colors channel-wise.
func lerpColor(from, to string, t float64) string {
	fr, fg, fb, ok := hexChannels(from)
	if !ok {
		return to
	}
	tr, tg, tb, ok := hexChannels(to)
	if !ok {
		return from
	}
	lerp := func(a, b float64) int { return int(a + (b-a)*t + 0.5) }
	return fmt.Sprintf("%02X%02X%02X", lerp(fr, tr), lerp(fg, tg), lerp(fb, tb))
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
