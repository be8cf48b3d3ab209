package workbook

import "testing"

func mustRange(t *testing.T, ref string) Rect {
	t.Helper()
	r, err := ParseRangeRef(ref)
	assertNoErr(t, err)
	return r
}

func TestEvaluatePriorityOrderWins(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{"A1": NumberValue(5)})
	rules := []Rule{
		{
			Ranges: []Rect{mustRange(t, "A1:A9")}, Type: RuleCellIs,
			Priority: 1, Operator: "greaterThan", Formulas: []string{"1"},
			Style: &DiffFormat{FillColor: "FF0000"},
		},
		{
			Ranges: []Rect{mustRange(t, "A1:A9")}, Type: RuleCellIs,
			Priority: 2, Operator: "greaterThan", Formulas: []string{"2"},
			Style: &DiffFormat{FillColor: "00FF00", FontColor: "FFFFFF"},
		},
	}
	out := Evaluate(Address{Row: 1, Col: 1}, sheet.ValueAt(Address{Row: 1, Col: 1}), rules, sheet)
	// The priority-1 rule claims the fill; the later rule still contributes
	// the property the first one left unset.
	assertEqual(t, out.FillColor, "FF0000")
	assertEqual(t, out.TextColor, "FFFFFF")
}

func TestEvaluateStopIfTrueHaltsScan(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{"A1": NumberValue(5)})
	rules := []Rule{
		{
			Ranges: []Rect{mustRange(t, "A1:A9")}, Type: RuleCellIs,
			Priority: 1, Operator: "greaterThan", Formulas: []string{"1"},
			StopIfTrue: true, Style: &DiffFormat{FillColor: "FF0000"},
		},
		{
			Ranges: []Rect{mustRange(t, "A1:A9")}, Type: RuleCellIs,
			Priority: 2, Operator: "greaterThan", Formulas: []string{"2"},
			Style: &DiffFormat{FontColor: "FFFFFF"},
		},
	}
	out := Evaluate(Address{Row: 1, Col: 1}, sheet.ValueAt(Address{Row: 1, Col: 1}), rules, sheet)
	assertEqual(t, out.FillColor, "FF0000")
	assertEqual(t, out.TextColor, "")
}

func TestEvaluateStopIfTrueOnlyAfterMatch(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{"A1": NumberValue(0)})
	rules := []Rule{
		{
			Ranges: []Rect{mustRange(t, "A1:A9")}, Type: RuleCellIs,
			Priority: 1, Operator: "greaterThan", Formulas: []string{"1"},
			StopIfTrue: true, Style: &DiffFormat{FillColor: "FF0000"},
		},
		{
			Ranges: []Rect{mustRange(t, "A1:A9")}, Type: RuleCellIs,
			Priority: 2, Operator: "lessThan", Formulas: []string{"1"},
			Style: &DiffFormat{FillColor: "00FF00"},
		},
	}
	out := Evaluate(Address{Row: 1, Col: 1}, sheet.ValueAt(Address{Row: 1, Col: 1}), rules, sheet)
	assertEqual(t, out.FillColor, "00FF00")
}

func TestEvaluateOutsideRangeIsNoOp(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{"C5": NumberValue(99)})
	rules := []Rule{{
		Ranges: []Rect{mustRange(t, "A1:A9")}, Type: RuleCellIs,
		Priority: 1, Operator: "greaterThan", Formulas: []string{"1"},
		Style: &DiffFormat{FillColor: "FF0000"},
	}}
	out := Evaluate(Address{Row: 5, Col: 3}, sheet.ValueAt(Address{Row: 5, Col: 3}), rules, sheet)
	if !out.IsZero() {
		t.Fatalf("cell outside rule range got override %+v", out)
	}
}

func TestCellIsOperators(t *testing.T) {
	sheet := testSheet("Model", nil)
	cases := []struct {
		op       string
		operands []string
		value    float64
		want     bool
	}{
		{"greaterThan", []string{"10"}, 11, true},
		{"greaterThan", []string{"10"}, 10, false},
		{"lessThan", []string{"10"}, 9, true},
		{"greaterThanOrEqual", []string{"10"}, 10, true},
		{"lessThanOrEqual", []string{"10"}, 10, true},
		{"equal", []string{"10"}, 10, true},
		{"notEqual", []string{"10"}, 10, false},
		{"between", []string{"1", "5"}, 3, true},
		{"between", []string{"5", "1"}, 3, true}, // operands normalize
		{"between", []string{"1", "5"}, 6, false},
		{"notBetween", []string{"1", "5"}, 6, true},
		{"notBetween", []string{"1", "5"}, 3, false},
	}
	for _, tc := range cases {
		rule := Rule{Type: RuleCellIs, Operator: tc.op, Formulas: tc.operands}
		got := cellIsMatches(&rule, NumberValue(tc.value), sheet)
		if got != tc.want {
			t.Errorf("%s %v against %v: got %v, want %v", tc.op, tc.operands, tc.value, got, tc.want)
		}
	}
}

func TestCellIsOperandFromCellRef(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{"D1": NumberValue(100)})
	rule := Rule{Type: RuleCellIs, Operator: "greaterThan", Formulas: []string{"D1"}}
	if !cellIsMatches(&rule, NumberValue(150), sheet) {
		t.Error("150 > D1(100) should match")
	}
	if cellIsMatches(&rule, NumberValue(50), sheet) {
		t.Error("50 > D1(100) should not match")
	}
}

func TestCellIsNonNumericNeverMatches(t *testing.T) {
	sheet := testSheet("Model", nil)
	rule := Rule{Type: RuleCellIs, Operator: "greaterThan", Formulas: []string{"0"}}
	if cellIsMatches(&rule, StringValue("text"), sheet) {
		t.Error("string value matched a numeric comparison")
	}
}

func TestContainsTextCaseInsensitive(t *testing.T) {
	sheet := testSheet("Model", nil)
	rule := Rule{Type: RuleContainsText, Formulas: []string{"LOSS"}}
	if !ruleMatches(&rule, StringValue("Net loss (adjusted)"), sheet) {
		t.Error("containsText should match case-insensitively")
	}
	if ruleMatches(&rule, StringValue("profit"), sheet) {
		t.Error("containsText matched absent needle")
	}
	if ruleMatches(&rule, NumberValue(12), sheet) {
		t.Error("containsText matched a non-string value")
	}
}

func TestExpressionRuleMatch(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{"B2": NumberValue(150)})
	rule := Rule{
		Ranges: []Rect{mustRange(t, "B2:B2")}, Type: RuleExpression,
		Priority: 1, Formulas: []string{"B2>100"},
		Style: &DiffFormat{Bold: true},
	}
	out := Evaluate(Address{Row: 2, Col: 2}, sheet.ValueAt(Address{Row: 2, Col: 2}), []Rule{rule}, sheet)
	if !out.Bold {
		t.Error("B2>100 with B2=150 should apply")
	}
}

func TestExpressionRejectsNonWhitelisted(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{"A1": NumberValue(1)})
	for _, f := range []string{
		"alert(1)",
		"SUM(A1)",
		`A1>"x"`,
		"A1>Sheet2!B1",
	} {
		if expressionMatches(f, sheet) {
			t.Errorf("formula %q slipped through the whitelist", f)
		}
	}
}

func TestExpressionEmptyRefIsZero(t *testing.T) {
	sheet := testSheet("Model", nil)
	if !expressionMatches("Z99=0", sheet) {
		t.Error("empty cell should substitute as 0")
	}
}

func TestSubstituteRefs(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{"A1": NumberValue(2.5)})
	got, ok := substituteRefs("A1*2>4", sheet)
	if !ok {
		t.Fatal("substitution failed")
	}
	assertEqual(t, got, "2.5*2>4")

	if _, ok := substituteRefs("A1:B2>0", sheet); ok {
		t.Error("multi-cell range should reject the expression")
	}
}

func TestColorScaleInterpolation(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{
		"A1": NumberValue(0), "A2": NumberValue(5), "A3": NumberValue(10),
	})
	rule := Rule{
		Ranges: []Rect{mustRange(t, "A1:A3")}, Type: RuleColorScale, Priority: 1,
		ColorScale: &ColorScale{Min: "000000", Max: "FFFFFF"},
	}
	out := Evaluate(Address{Row: 2, Col: 1}, NumberValue(5), []Rule{rule}, sheet)
	assertEqual(t, out.FillColor, "808080")

	out = Evaluate(Address{Row: 1, Col: 1}, NumberValue(0), []Rule{rule}, sheet)
	assertEqual(t, out.FillColor, "000000")
	out = Evaluate(Address{Row: 3, Col: 1}, NumberValue(10), []Rule{rule}, sheet)
	assertEqual(t, out.FillColor, "FFFFFF")
}

func TestColorScaleMidpoint(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{
		"A1": NumberValue(0), "A2": NumberValue(10),
	})
	rule := Rule{
		Ranges: []Rect{mustRange(t, "A1:A2")}, Type: RuleColorScale, Priority: 1,
		ColorScale: &ColorScale{Min: "FF0000", Mid: "FFFF00", Max: "00FF00", HasMid: true},
	}
	// t = 0.25 lands halfway between min and mid.
	out := Evaluate(Address{Row: 1, Col: 1}, NumberValue(2.5), []Rule{rule}, sheet)
	assertEqual(t, out.FillColor, "FF8000")
	// t exactly 0.5 is the mid color via the upper segment at 0.
	out = Evaluate(Address{Row: 1, Col: 1}, NumberValue(5), []Rule{rule}, sheet)
	assertEqual(t, out.FillColor, "FFFF00")
}

func TestColorScaleDegenerateRangeIsNoOp(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{
		"A1": NumberValue(7), "A2": NumberValue(7),
	})
	rule := Rule{
		Ranges: []Rect{mustRange(t, "A1:A2")}, Type: RuleColorScale, Priority: 1,
		ColorScale: &ColorScale{Min: "000000", Max: "FFFFFF"},
	}
	out := Evaluate(Address{Row: 1, Col: 1}, NumberValue(7), []Rule{rule}, sheet)
	if !out.IsZero() {
		t.Fatalf("degenerate range produced %+v", out)
	}
}

func TestDataBarWidth(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{
		"A1": NumberValue(0), "A2": NumberValue(50), "A3": NumberValue(100),
	})
	rule := Rule{
		Ranges: []Rect{mustRange(t, "A1:A3")}, Type: RuleDataBar, Priority: 1,
		DataBar: &DataBar{Color: "638EC6", ShowValue: true},
	}
	out := Evaluate(Address{Row: 2, Col: 1}, NumberValue(50), []Rule{rule}, sheet)
	assertEqual(t, out.DataBarWidth, 50.0)
	assertEqual(t, out.DataBarColor, "638EC6")

	out = Evaluate(Address{Row: 2, Col: 1}, StringValue("n/a"), []Rule{rule}, sheet)
	if !out.IsZero() {
		t.Fatalf("non-numeric value produced a bar: %+v", out)
	}
}

func TestDataBarShowValue(t *testing.T) {
	sheet := testSheet("Model", map[string]Value{
		"A1": NumberValue(0), "A2": NumberValue(50), "A3": NumberValue(100),
	})
	rule := Rule{
		Ranges: []Rect{mustRange(t, "A1:A3")}, Type: RuleDataBar, Priority: 1,
		DataBar: &DataBar{Color: "638EC6", ShowValue: true},
	}
	out := Evaluate(Address{Row: 2, Col: 1}, NumberValue(50), []Rule{rule}, sheet)
	if out.HideText {
		t.Error("showValue=true must keep the cell text")
	}

	rule.DataBar.ShowValue = false
	out = Evaluate(Address{Row: 2, Col: 1}, NumberValue(50), []Rule{rule}, sheet)
	if !out.HideText {
		t.Error("showValue=false must hide the cell text")
	}
}

func TestLerpColor(t *testing.T) {
	assertEqual(t, lerpColor("000000", "FFFFFF", 0.5), "808080")
	assertEqual(t, lerpColor("000000", "FFFFFF", 0), "000000")
	assertEqual(t, lerpColor("000000", "FFFFFF", 1), "FFFFFF")
}
