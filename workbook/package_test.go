package workbook

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLoadFixturePackage(t *testing.T) {
	wb := loadFixture(t, nil)

	assertEqual(t, len(wb.Sheets), 1)
	sheet := wb.Sheets[0]
	assertEqual(t, sheet.Name, "Model")
	assertEqual(t, sheet.ID, 1)
	assertEqual(t, sheet.Used, Rect{Top: 1, Left: 1, Bottom: 2, Right: 2})

	// Shared string resolution.
	a1 := sheet.ValueAt(Address{Row: 1, Col: 1})
	assertEqual(t, a1.Kind, KindString)
	assertEqual(t, a1.Str, "Revenue")

	// Styled number.
	b1 := sheet.Cell(Address{Row: 1, Col: 2})
	assertEqual(t, b1.Value.Kind, KindNumber)
	assertEqual(t, b1.Value.Number, 42.0)
	assertEqual(t, b1.StyleIndex, 1)

	// Formula cell: marker value, trimmed formula, package-cached result.
	b2 := sheet.Cell(Address{Row: 2, Col: 2})
	assertEqual(t, b2.Value.Kind, KindFormula)
	assertEqual(t, b2.Formula, "A2*2")
	if b2.Result == nil {
		t.Fatal("formula cell should carry its cached result")
	}
	assertEqual(t, b2.Result.Number, 1.0)
}

func TestLoadRichTextSharedString(t *testing.T) {
	sheet := worksheetXML(`<sheetData>` +
		`<row r="1"><c r="A1" t="s"><v>1</v></c></row></sheetData>`)
	wb := loadFixture(t, map[string]string{"xl/worksheets/sheet1.xml": sheet})
	v := wb.Sheets[0].ValueAt(Address{Row: 1, Col: 1})
	assertEqual(t, v.Str, "rich text") // runs concatenated, formatting dropped
}

func TestLoadMissingThemeUsesDefaultPalette(t *testing.T) {
	wb := loadFixture(t, map[string]string{"xl/theme/theme1.xml": ""})
	assertEqual(t, wb.Theme, DefaultTheme())
}

func TestLoadMissingSharedStringsIsEmptyPool(t *testing.T) {
	// The fixture sheet references sst index 0, which now resolves to
	// nothing; the load itself must still succeed.
	wb := loadFixture(t, map[string]string{"xl/sharedStrings.xml": ""})
	assertEqual(t, wb.Sheets[0].ValueAt(Address{Row: 1, Col: 1}).Kind, KindEmpty)
}

func TestLoadMissingStylesIsFatal(t *testing.T) {
	parts := defaultParts()
	delete(parts, "xl/styles.xml")
	_, err := Load(buildPackage(t, parts))
	if !errors.Is(err, ErrMalformedPackage) {
		t.Fatalf("expected ErrMalformedPackage, got %v", err)
	}
}

func TestLoadGarbageIsMalformed(t *testing.T) {
	_, err := Load([]byte("this is not a spreadsheet"))
	if !errors.Is(err, ErrMalformedPackage) {
		t.Fatalf("expected ErrMalformedPackage, got %v", err)
	}
}

func TestLoadNoWorksheetsIsMalformed(t *testing.T) {
	parts := defaultParts()
	delete(parts, "xl/worksheets/sheet1.xml")
	_, err := Load(buildPackage(t, parts))
	if !errors.Is(err, ErrMalformedPackage) {
		t.Fatalf("expected ErrMalformedPackage, got %v", err)
	}
}

func TestLoadMerges(t *testing.T) {
	sheet := worksheetXML(`<sheetData>` +
		`<row r="2"><c r="B2"><v>1</v></c></row></sheetData>` +
		`<mergeCells count="1"><mergeCell ref="B2:C3"/></mergeCells>`)
	wb := loadFixture(t, map[string]string{"xl/worksheets/sheet1.xml": sheet})
	s := wb.Sheets[0]
	assertEqual(t, len(s.Merges), 1)
	assertEqual(t, s.Merges[0], Rect{Top: 2, Left: 2, Bottom: 3, Right: 3})

	m, ok := s.MergeAt(Address{Row: 3, Col: 3})
	if !ok {
		t.Fatal("C3 should be covered by the merge")
	}
	assertEqual(t, m.Top, 2)
}

func TestLoadConditionalRulesSortedByPriority(t *testing.T) {
	sheet := worksheetXML(`<sheetData>` +
		`<row r="1"><c r="A1"><v>5</v></c></row></sheetData>` +
		`<conditionalFormatting sqref="A1:A9">` +
		`<cfRule type="cellIs" dxfId="0" priority="3" operator="lessThan"><formula>0</formula></cfRule>` +
		`<cfRule type="cellIs" dxfId="0" priority="1" operator="greaterThan" stopIfTrue="1"><formula>10</formula></cfRule>` +
		`</conditionalFormatting>` +
		`<conditionalFormatting sqref="B1:B9">` +
		`<cfRule type="containsText" dxfId="0" priority="2" text="loss"/>` +
		`</conditionalFormatting>`)
	wb := loadFixture(t, map[string]string{"xl/worksheets/sheet1.xml": sheet})
	rules := wb.Sheets[0].Rules
	assertEqual(t, len(rules), 3)
	assertEqual(t, rules[0].Priority, 1)
	assertEqual(t, rules[1].Priority, 2)
	assertEqual(t, rules[2].Priority, 3)
	if !rules[0].StopIfTrue {
		t.Error("priority-1 rule should carry stopIfTrue")
	}
	// containsText folded its text attribute into the operand list.
	assertEqual(t, rules[1].Formulas[0], "loss")
	if rules[0].Style == nil || rules[0].Style.FillColor != "FFC7CE" {
		t.Error("rule style should resolve through the dxf table")
	}
}

func TestLoadSkipsMalformedRules(t *testing.T) {
	sheet := worksheetXML(`<sheetData>` +
		`<row r="1"><c r="A1"><v>5</v></c></row></sheetData>` +
		`<conditionalFormatting sqref="not-a-range">` +
		`<cfRule type="cellIs" priority="1" operator="greaterThan"><formula>1</formula></cfRule>` +
		`</conditionalFormatting>` +
		`<conditionalFormatting sqref="A1:A9">` +
		`<cfRule type="iconSet" priority="2"/>` +
		`</conditionalFormatting>`)
	wb := loadFixture(t, map[string]string{"xl/worksheets/sheet1.xml": sheet})
	assertEqual(t, len(wb.Sheets[0].Rules), 0)
}

func TestLoadColorScaleAndDataBarRules(t *testing.T) {
	sheet := worksheetXML(`<sheetData>` +
		`<row r="1"><c r="A1"><v>1</v></c></row></sheetData>` +
		`<conditionalFormatting sqref="A1:A5">` +
		`<cfRule type="colorScale" priority="1"><colorScale>` +
		`<cfvo type="min"/><cfvo type="max"/>` +
		`<color rgb="FF000000"/><color rgb="FFFFFFFF"/>` +
		`</colorScale></cfRule>` +
		`<cfRule type="dataBar" priority="2"><dataBar>` +
		`<cfvo type="min"/><cfvo type="max"/><color rgb="FF638EC6"/>` +
		`</dataBar></cfRule>` +
		`<cfRule type="dataBar" priority="3"><dataBar showValue="0">` +
		`<cfvo type="min"/><cfvo type="max"/><color rgb="FFFF555D"/>` +
		`</dataBar></cfRule>` +
		`</conditionalFormatting>`)
	wb := loadFixture(t, map[string]string{"xl/worksheets/sheet1.xml": sheet})
	rules := wb.Sheets[0].Rules
	assertEqual(t, len(rules), 3)
	if rules[0].ColorScale == nil {
		t.Fatal("colorScale rule missing its scale")
	}
	assertEqual(t, rules[0].ColorScale.Min, "000000")
	assertEqual(t, rules[0].ColorScale.Max, "FFFFFF")
	if rules[1].DataBar == nil {
		t.Fatal("dataBar rule missing its bar")
	}
	assertEqual(t, rules[1].DataBar.Color, "638EC6")
	if !rules[1].DataBar.ShowValue {
		t.Error("showValue should default to true")
	}
	if rules[2].DataBar.ShowValue {
		t.Error(`showValue="0" not honored`)
	}
}

// Loading a package produced by a mainstream writer exercises the same code
// path end to end.
func TestLoadExcelizeProducedPackage(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	assertNoErr(t, f.SetCellValue("Sheet1", "A1", "Header"))
	assertNoErr(t, f.SetCellValue("Sheet1", "A2", 12.5))
	assertNoErr(t, f.SetCellFormula("Sheet1", "A3", "A2*2"))
	assertNoErr(t, f.MergeCell("Sheet1", "B1", "C2"))

	path := filepath.Join(t.TempDir(), "model.xlsx")
	assertNoErr(t, f.SaveAs(path))

	data, err := os.ReadFile(path)
	assertNoErr(t, err)

	wb, err := Load(data)
	assertNoErr(t, err)
	sheet := wb.Sheets[0]
	assertEqual(t, sheet.Name, "Sheet1")
	assertEqual(t, sheet.ValueAt(Address{Row: 1, Col: 1}).Str, "Header")
	assertEqual(t, sheet.ValueAt(Address{Row: 2, Col: 1}).Number, 12.5)
	assertEqual(t, sheet.Cell(Address{Row: 3, Col: 1}).Formula, "A2*2")
	assertEqual(t, len(sheet.Merges), 1)
}
