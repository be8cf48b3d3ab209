package workbook

// package.go — opens the OOXML zip container, pulls the raw parts out, and
// assembles the in-memory Workbook. All "part missing" decisions live here:
// a missing theme or shared-strings part degrades to a documented default;
// a missing styles part, workbook part, or worksheet set is fatal.

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Conventional part names of the spreadsheetML package.
const (
	partWorkbook      = "xl/workbook.xml"
	partWorkbookRels  = "xl/_rels/workbook.xml.rels"
	partStyles        = "xl/styles.xml"
	partTheme         = "xl/theme/theme1.xml"
	partSharedStrings = "xl/sharedStrings.xml"
)

// pkgParts holds the raw bytes of each part of interest. themeXML and
// sharedXML may be nil; everything else is present once readParts returns.
type pkgParts struct {
	workbookXML []byte
	relsXML     []byte
	stylesXML   []byte
	themeXML    []byte
	sharedXML   []byte
	sheetXML    map[string][]byte // keyed by normalized part path
}

// Load parses a spreadsheet package into a Workbook. It is a pure parse:
// formulas keep their package-cached results until Recalculate runs.
func Load(data []byte) (*Workbook, error) {
	parts, err := readParts(data)
	if err != nil {
		return nil, err
	}

	theme := parseTheme(parts.themeXML)
	styles, err := resolveStyles(parts.stylesXML, theme)
	if err != nil {
		return nil, err
	}
	shared := parseSharedStrings(parts.sharedXML)

	var wbXML xmlWorkbook
	if err := xml.Unmarshal(parts.workbookXML, &wbXML); err != nil {
		return nil, fmt.Errorf("%w: workbook part: %v", ErrMalformedPackage, err)
	}
	var rels xmlRelationships
	if err := xml.Unmarshal(parts.relsXML, &rels); err != nil {
		return nil, fmt.Errorf("%w: workbook rels: %v", ErrMalformedPackage, err)
	}
	relTarget := make(map[string]string, len(rels.Relationship))
	for _, r := range rels.Relationship {
		relTarget[r.ID] = r.Target
	}

	wb := &Workbook{Styles: styles, Theme: theme}
	for _, meta := range wbXML.Sheets.Sheet {
		partPath := sheetPartPath(relTarget[meta.RelID], meta.SheetID)
		raw, ok := parts.sheetXML[partPath]
		if !ok {
			return nil, fmt.Errorf("%w: worksheet part %s missing", ErrMalformedPackage, partPath)
		}
		sheet, err := parseWorksheet(meta.Name, meta.SheetID, raw, shared, styles, theme)
		if err != nil {
			return nil, err
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%w: no worksheets", ErrMalformedPackage)
	}
	return wb, nil
}

// readParts opens the zip container and extracts the raw parts.
func readParts(data []byte) (*pkgParts, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}

	parts := &pkgParts{sheetXML: map[string][]byte{}}
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		var dst *[]byte
		switch {
		case name == partWorkbook:
			dst = &parts.workbookXML
		case name == partWorkbookRels:
			dst = &parts.relsXML
		case name == partStyles:
			dst = &parts.stylesXML
		case name == partTheme:
			dst = &parts.themeXML
		case name == partSharedStrings:
			dst = &parts.sharedXML
		case strings.HasPrefix(name, "xl/worksheets/") && strings.HasSuffix(name, ".xml"):
			raw, err := readZipFile(f)
			if err != nil {
				return nil, err
			}
			parts.sheetXML[name] = raw
			continue
		default:
			continue
		}
		raw, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		*dst = raw
	}

	switch {
	case parts.workbookXML == nil:
		return nil, fmt.Errorf("%w: %s missing", ErrMalformedPackage, partWorkbook)
	case parts.relsXML == nil:
		return nil, fmt.Errorf("%w: %s missing", ErrMalformedPackage, partWorkbookRels)
	case parts.stylesXML == nil:
		return nil, fmt.Errorf("%w: %s missing", ErrMalformedPackage, partStyles)
	case len(parts.sheetXML) == 0:
		return nil, fmt.Errorf("%w: no worksheet parts", ErrMalformedPackage)
	}
	return parts, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPackage, f.Name, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPackage, f.Name, err)
	}
	return raw, nil
}

// sheetPartPath normalizes a workbook relationship target ("worksheets/
// sheet1.xml", "/xl/worksheets/sheet1.xml") to the zip entry path, falling
// back to the conventional name derived from the sheet id.
func sheetPartPath(target string, sheetID int) string {
	if target == "" {
		return fmt.Sprintf("xl/worksheets/sheet%d.xml", sheetID)
	}
	target = strings.TrimPrefix(target, "/")
	if !strings.HasPrefix(target, "xl/") {
		target = path.Join("xl", target)
	}
	return target
}

// parseSharedStrings resolves the shared string pool to plain text. A nil
// part yields an empty pool.
func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var sst xmlSST
	if err := xml.Unmarshal(data, &sst); err != nil {
		return nil
	}
	out := make([]string, len(sst.SI))
	for i, si := range sst.SI {
		out[i] = si.plain()
	}
	return out
}

// parseWorksheet builds a Sheet from its raw part.
func parseWorksheet(name string, id int, data []byte, shared []string, styles *StyleTable, theme ThemeColorTable) (*Sheet, error) {
	var ws xmlWorksheet
	if err := xml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("%w: worksheet %q: %v", ErrMalformedPackage, name, err)
	}

	sheet := &Sheet{Name: name, ID: id, Cells: map[Address]*Cell{}}

	for _, row := range ws.SheetData.Row {
		for _, xc := range row.C {
			addr, err := ParseCellRef(xc.R)
			if err != nil {
				continue // a cell without a usable reference is dropped
			}
			cell := parseCell(&xc, shared)
			if cell == nil {
				continue
			}
			sheet.Cells[addr] = cell
			growUsed(&sheet.Used, addr)
		}
	}

	if ws.MergeCells != nil {
		for _, mc := range ws.MergeCells.MergeCell {
			r, err := ParseRangeRef(mc.Ref)
			if err != nil {
				continue
			}
			sheet.Merges = append(sheet.Merges, r)
		}
	}

	sheet.Rules = parseRules(ws.ConditionalFormatting, styles, theme)
	return sheet, nil
}

// parseCell converts one cell element into a Cell. Formula cells store the
// package-cached value in Result; it stays authoritative until the engine
// overwrites it.
func parseCell(xc *xmlCell, shared []string) *Cell {
	cell := &Cell{StyleIndex: -1}
	if xc.S != nil {
		cell.StyleIndex = *xc.S
	}

	cached := cachedValue(xc, shared)

	if xc.F != nil {
		f := strings.TrimSpace(*xc.F)
		f = strings.TrimPrefix(f, "=")
		cell.Formula = f
		cell.Value = Value{Kind: KindFormula}
		if cached.Kind != KindEmpty {
			c := cached
			cell.Result = &c
		}
		return cell
	}

	if cached.Kind == KindEmpty && cell.StyleIndex < 0 {
		return nil // nothing to keep
	}
	cell.Value = cached
	return cell
}

// cachedValue decodes the v/is content of a cell element per its type
// attribute.
func cachedValue(xc *xmlCell, shared []string) Value {
	switch xc.T {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(xc.V))
		if err != nil || idx < 0 || idx >= len(shared) {
			return EmptyValue()
		}
		return StringValue(shared[idx])
	case "str":
		return StringValue(xc.V)
	case "inlineStr":
		if xc.IS != nil {
			return StringValue(xc.IS.plain())
		}
		return EmptyValue()
	case "b":
		return BoolValue(strings.TrimSpace(xc.V) == "1")
	case "e":
		if xc.V == "" {
			return EmptyValue()
		}
		return ErrorValue(xc.V)
	case "d":
		// ISO 8601 dates are rare in practice; keep them as serials via the
		// formatter by storing the raw string when unparseable.
		if t, ok := parseISODate(xc.V); ok {
			return DateValue(t)
		}
		return StringValue(xc.V)
	default: // "n" or absent
		s := strings.TrimSpace(xc.V)
		if s == "" {
			return EmptyValue()
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return StringValue(xc.V)
		}
		return NumberValue(n)
	}
}

func growUsed(r *Rect, a Address) {
	if r.Top == 0 || a.Row < r.Top {
		r.Top = a.Row
	}
	if a.Row > r.Bottom {
		r.Bottom = a.Row
	}
	if r.Left == 0 || a.Col < r.Left {
		r.Left = a.Col
	}
	if a.Col > r.Right {
		r.Right = a.Col
	}
}

// parseRules flattens the worksheet's conditionalFormatting elements into a
// priority-sorted rule list. Malformed rules (no type, unparsable range)
// are skipped, never fatal.
func parseRules(blocks []xmlConditionalFormatting, styles *StyleTable, theme ThemeColorTable) []Rule {
	var rules []Rule
	for _, block := range blocks {
		ranges, err := parseRangeList(block.SQRef)
		if err != nil {
			continue
		}
		for _, xr := range block.CfRule {
			rule, ok := parseRule(&xr, ranges, styles, theme)
			if ok {
				rules = append(rules, rule)
			}
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
	return rules
}

func parseRule(xr *xmlCfRule, ranges []Rect, styles *StyleTable, theme ThemeColorTable) (Rule, bool) {
	rt := RuleType(xr.Type)
	switch rt {
	case RuleCellIs, RuleContainsText, RuleExpression, RuleColorScale, RuleDataBar:
	default:
		return Rule{}, false
	}

	rule := Rule{
		Ranges:     ranges,
		Type:       rt,
		Priority:   xr.Priority,
		StopIfTrue: xr.StopIfTrue,
		Operator:   xr.Operator,
		Formulas:   append([]string(nil), xr.Formula...),
	}
	// containsText stores its needle in the text attribute; fold it into the
	// operand list when no formula carries it.
	if rt == RuleContainsText && len(rule.Formulas) == 0 && xr.Text != "" {
		rule.Formulas = []string{xr.Text}
	}
	if xr.DxfID != nil {
		if d, ok := styles.Diff(*xr.DxfID); ok {
			rule.Style = &d
		}
	}

	switch rt {
	case RuleColorScale:
		if xr.ColorScale == nil || len(xr.ColorScale.Color) < 2 {
			return Rule{}, false
		}
		cs := &ColorScale{}
		colors := make([]string, len(xr.ColorScale.Color))
		for i := range xr.ColorScale.Color {
			colors[i] = resolveColor(&xr.ColorScale.Color[i], theme)
		}
		cs.Min = colors[0]
		cs.Max = colors[len(colors)-1]
		if len(colors) >= 3 {
			cs.Mid = colors[1]
			cs.HasMid = true
		}
		rule.ColorScale = cs
	case RuleDataBar:
		if xr.DataBar == nil || len(xr.DataBar.Color) == 0 {
			return Rule{}, false
		}
		db := &DataBar{
			Color:     resolveColor(&xr.DataBar.Color[0], theme),
			ShowValue: true,
		}
		if xr.DataBar.ShowValue != nil {
			db.ShowValue = *xr.DataBar.ShowValue
		}
		rule.DataBar = db
	}
	return rule, true
}

func parseISODate(s string) (t time.Time, ok bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
