// Package workbook loads OOXML spreadsheet packages, recalculates their
// formulas through an injected engine, and renders sheets as styled HTML
// tables or export workbooks.
package workbook

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors. Anything recoverable (missing theme, missing shared
// strings, a single bad cell or rule) is absorbed during parsing and never
// surfaces through these.
var (
	// ErrMalformedPackage means the input bytes are not a usable spreadsheet
	// package: not a zip, no worksheets, or a required part is unparseable.
	ErrMalformedPackage = errors.New("malformed spreadsheet package")

	// ErrRecalcUnavailable means the formula engine could not be constructed
	// or failed while computing. Callers fall back to cached cell results.
	ErrRecalcUnavailable = errors.New("formula recalculation unavailable")

	// ErrSheetNotFound means the requested worksheet name is not in the
	// workbook.
	ErrSheetNotFound = errors.New("worksheet not found")
)

// ValueKind tags the cell value union.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindString
	KindBool
	KindDate
	KindError
	// KindFormula marks a cell whose content is a formula; the displayable
	// value lives in Cell.Result once recalculation has run.
	KindFormula
)

// Value is the tagged union stored in cells and recalculation results.
type Value struct {
	Kind    ValueKind
	Number  float64
	Str     string
	Bool    bool
	Time    time.Time
	ErrCode string // e.g. "#DIV/0!" when Kind == KindError
}

func EmptyValue() Value           { return Value{Kind: KindEmpty} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Number: n} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func DateValue(t time.Time) Value { return Value{Kind: KindDate, Time: t} }
func ErrorValue(code string) Value {
	return Value{Kind: KindError, ErrCode: code}
}

// AsNumber returns the numeric view of a value. Dates convert to their
// serial number so numeric comparisons treat them like Excel does.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindDate:
		return TimeToSerial(v.Time), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Cell is one grid entry of a Sheet.
type Cell struct {
	Value   Value
	Formula string // source text without the leading '='
	// Result holds the recalculated (or package-cached) value of a formula
	// cell. nil means no cached value: the cell renders empty.
	Result *Value
	// StyleIndex references StyleTable.CellFormats; -1 when the cell carries
	// no style.
	StyleIndex int
}

// Address identifies a cell by 1-based row and column.
type Address struct {
	Row int
	Col int
}

// Name returns the A1-style reference for the address.
func (a Address) Name() string {
	return fmt.Sprintf("%s%d", ColumnName(a.Col), a.Row)
}

// Rect is an inclusive 1-based rectangle of cells.
type Rect struct {
	Top    int
	Left   int
	Bottom int
	Right  int
}

// Contains reports whether the address lies inside the rectangle.
func (r Rect) Contains(a Address) bool {
	return a.Row >= r.Top && a.Row <= r.Bottom && a.Col >= r.Left && a.Col <= r.Right
}

// Rows and Cols report the rectangle extent; zero for an unset rectangle.
func (r Rect) Rows() int {
	if r.Top < 1 || r.Bottom < r.Top {
		return 0
	}
	return r.Bottom - r.Top + 1
}

func (r Rect) Cols() int {
	if r.Left < 1 || r.Right < r.Left {
		return 0
	}
	return r.Right - r.Left + 1
}

// Sheet is a sparse grid of cells plus its merge ranges and conditional
// formatting rules.
type Sheet struct {
	Name  string
	ID    int
	Cells map[Address]*Cell
	Used  Rect
	// Merges are rectangular and non-overlapping. Only the top-left anchor
	// of a merge renders; covered cells are skipped.
	Merges []Rect
	Rules  []Rule
}

// Cell returns the cell at addr, or nil for an empty grid position.
func (s *Sheet) Cell(addr Address) *Cell {
	return s.Cells[addr]
}

// ValueAt returns the display-authoritative value at addr: a formula cell's
// cached result when present, else the stored value.
func (s *Sheet) ValueAt(addr Address) Value {
	c := s.Cells[addr]
	if c == nil {
		return EmptyValue()
	}
	if c.Value.Kind == KindFormula {
		if c.Result != nil {
			return *c.Result
		}
		return EmptyValue()
	}
	return c.Value
}

// MergeAt returns the merge range anchored at or covering addr.
func (s *Sheet) MergeAt(addr Address) (Rect, bool) {
	for _, m := range s.Merges {
		if m.Contains(addr) {
			return m, true
		}
	}
	return Rect{}, false
}

// Workbook is an ordered sequence of sheets sharing one style table and
// theme palette. Sheet names are unique within a workbook.
type Workbook struct {
	Sheets []*Sheet
	Styles *StyleTable
	Theme  ThemeColorTable
}

// Sheet returns the sheet with the given name.
func (wb *Workbook) Sheet(name string) (*Sheet, error) {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// SheetNames returns the sheet names in insertion order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		names[i] = s.Name
	}
	return names
}

// ---- A1 reference arithmetic ------------------------------------------------

// ColumnName converts a 1-based column number to its spreadsheet letters
// (1→A, 26→Z, 27→AA). Bijective base-26: there is no digit for zero, hence
// the decrement before each division.
func ColumnName(col int) string {
	if col < 1 {
		return ""
	}
	var b [8]byte
	i := len(b)
	for col > 0 {
		col--
		i--
		b[i] = byte('A' + col%26)
		col /= 26
	}
	return string(b[i:])
}

// ColumnNumber converts spreadsheet letters to a 1-based column number.
func ColumnNumber(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, r := range strings.ToUpper(name) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column name %q", name)
		}
		col = col*26 + int(r-'A') + 1
	}
	return col, nil
}

// ParseCellRef parses an A1-style reference ("B2", "$B$2") into an Address.
func ParseCellRef(ref string) (Address, error) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "$", "")
	i := 0
	for i < len(ref) && !isDigit(ref[i]) {
		i++
	}
	if i == 0 || i == len(ref) {
		return Address{}, fmt.Errorf("invalid cell reference %q", ref)
	}
	col, err := ColumnNumber(ref[:i])
	if err != nil {
		return Address{}, err
	}
	row := 0
	for _, c := range ref[i:] {
		if c < '0' || c > '9' {
			return Address{}, fmt.Errorf("invalid cell reference %q", ref)
		}
		row = row*10 + int(c-'0')
	}
	if row < 1 {
		return Address{}, fmt.Errorf("invalid cell reference %q", ref)
	}
	return Address{Row: row, Col: col}, nil
}

// ParseRangeRef parses "A1:C3" (or a single "A1") into a Rect.
func ParseRangeRef(ref string) (Rect, error) {
	first, rest, found := strings.Cut(strings.TrimSpace(ref), ":")
	from, err := ParseCellRef(first)
	if err != nil {
		return Rect{}, err
	}
	to := from
	if found {
		if to, err = ParseCellRef(rest); err != nil {
			return Rect{}, err
		}
	}
	r := Rect{Top: from.Row, Left: from.Col, Bottom: to.Row, Right: to.Col}
	if r.Bottom < r.Top {
		r.Top, r.Bottom = r.Bottom, r.Top
	}
	if r.Right < r.Left {
		r.Left, r.Right = r.Right, r.Left
	}
	return r, nil
}

// parseRangeList parses an sqref-style list of ranges separated by spaces
// and/or commas.
func parseRangeList(refs string) ([]Rect, error) {
	fields := strings.FieldsFunc(refs, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty range list")
	}
	out := make([]Rect, 0, len(fields))
	for _, f := range fields {
		r, err := ParseRangeRef(f)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ---- serial date arithmetic --------------------------------------------------

// excelEpoch is the day-zero of the 1900 date system, positioned so that
// serials above 59 already absorb the phantom 1900-02-29.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// SerialToTime converts an Excel serial number to a UTC time. Serials below
// 60 predate the phantom leap day and are shifted to compensate.
func SerialToTime(serial float64) time.Time {
	if serial < 60 {
		serial++
	}
	days := int(serial)
	frac := serial - float64(days)
	return excelEpoch.AddDate(0, 0, days).
		Add(time.Duration(frac * 24 * float64(time.Hour)))
}

// TimeToSerial converts a UTC time to an Excel serial number, inverting
// SerialToTime.
func TimeToSerial(t time.Time) float64 {
	serial := t.Sub(excelEpoch).Hours() / 24
	if serial < 61 {
		serial--
	}
	return serial
}
