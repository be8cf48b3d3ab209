package workbook

// Shared test helpers for the workbook package.

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

// ---- assertion helpers -----------------------------------------------------

func assertNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertErr(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
}

func assertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("expected output to contain %q\ngot: %s", want, got)
	}
}

// ---- package fixture factory -------------------------------------------------

const (
	nsMain = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRel  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// fixtureStyles is a small but realistic styles part:
//
//	xf 0: defaults
//	xf 1: bold red font, accent1+0.4 tinted solid fill, custom currency format
//	xf 2: built-in percent format
//	xf 3: built-in d-mmm-yy date format
//	dxf 0: the classic "bad" conditional style (dark red on pink)
const fixtureStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<styleSheet xmlns="` + nsMain + `">
<numFmts count="1"><numFmt numFmtId="164" formatCode="$#,##0.00"/></numFmts>
<fonts count="2">
<font><sz val="11"/><name val="Calibri"/></font>
<font><b/><sz val="11"/><name val="Calibri"/><color rgb="FFFF0000"/></font>
</fonts>
<fills count="3">
<fill><patternFill patternType="none"/></fill>
<fill><patternFill patternType="gray125"/></fill>
<fill><patternFill patternType="solid"><fgColor theme="4" tint="0.4"/></patternFill></fill>
</fills>
<borders count="1"><border><left/><right/><top/><bottom/></border></borders>
<cellXfs count="4">
<xf numFmtId="0" fontId="0" fillId="0" borderId="0"/>
<xf numFmtId="164" fontId="1" fillId="2" borderId="0"/>
<xf numFmtId="9" fontId="0" fillId="0" borderId="0"/>
<xf numFmtId="15" fontId="0" fillId="0" borderId="0"/>
</cellXfs>
<dxfs count="1">
<dxf><font><color rgb="FF9C0006"/></font>
<fill><patternFill><bgColor rgb="FFFFC7CE"/></patternFill></fill></dxf>
</dxfs>
</styleSheet>`

const fixtureTheme = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office">
<a:themeElements><a:clrScheme name="Office">
<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>
<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>
<a:dk2><a:srgbClr val="44546A"/></a:dk2>
<a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>
<a:accent1><a:srgbClr val="5B9BD5"/></a:accent1>
<a:accent2><a:srgbClr val="ED7D31"/></a:accent2>
<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3>
<a:accent4><a:srgbClr val="FFC000"/></a:accent4>
<a:accent5><a:srgbClr val="4472C4"/></a:accent5>
<a:accent6><a:srgbClr val="70AD47"/></a:accent6>
<a:hlink><a:srgbClr val="0563C1"/></a:hlink>
<a:folHlink><a:srgbClr val="954F72"/></a:folHlink>
</a:clrScheme></a:themeElements>
</a:theme>`

const fixtureShared = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<sst xmlns="` + nsMain + `" count="2" uniqueCount="2">
<si><t>Revenue</t></si>
<si><r><t>rich </t></r><r><t>text</t></r></si>
</sst>`

// worksheetXML wraps sheetData rows (and optional extra elements such as
// mergeCells or conditionalFormatting) into a worksheet part.
func worksheetXML(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<worksheet xmlns="` + nsMain + `">` + inner + `</worksheet>`
}

// buildPackage assembles a zip package from part path → content. Callers
// start from defaultParts and add/remove parts per scenario.
func buildPackage(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildPackage create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("buildPackage write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildPackage close: %v", err)
	}
	return buf.Bytes()
}

// defaultParts is a complete single-sheet package:
//
//	A1 = "Revenue" (shared string), B1 = 42 styled with xf 1,
//	A2 = 0.5 styled with xf 2, B2 = formula A2*2 with cached result 1.
func defaultParts() map[string]string {
	sheet := worksheetXML(`<dimension ref="A1:B2"/><sheetData>` +
		`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" s="1"><v>42</v></c></row>` +
		`<row r="2"><c r="A2" s="2"><v>0.5</v></c><c r="B2"><f>A2*2</f><v>1</v></c></row>` +
		`</sheetData>`)
	return map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRel + `">` +
			`<sheets><sheet name="Model" sheetId="1" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="` + nsRel + `/worksheet" Target="worksheets/sheet1.xml"/>` +
			`</Relationships>`,
		"xl/styles.xml":            fixtureStyles,
		"xl/theme/theme1.xml":      fixtureTheme,
		"xl/sharedStrings.xml":     fixtureShared,
		"xl/worksheets/sheet1.xml": sheet,
	}
}

// loadFixture builds and parses the default package with the given
// overrides applied (empty value deletes the part).
func loadFixture(t *testing.T, overrides map[string]string) *Workbook {
	t.Helper()
	parts := defaultParts()
	for name, content := range overrides {
		if content == "" {
			delete(parts, name)
			continue
		}
		parts[name] = content
	}
	wb, err := Load(buildPackage(t, parts))
	assertNoErr(t, err)
	return wb
}

// testSheet builds an in-memory sheet from address → value, used by the
// evaluator and renderer tests that don't need a full package.
func testSheet(name string, cells map[string]Value) *Sheet {
	s := &Sheet{Name: name, Cells: map[Address]*Cell{}}
	for ref, v := range cells {
		addr, err := ParseCellRef(ref)
		if err != nil {
			panic(err)
		}
		s.Cells[addr] = &Cell{Value: v, StyleIndex: -1}
		growUsed(&s.Used, addr)
	}
	return s
}
