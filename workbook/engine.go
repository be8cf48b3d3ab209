package workbook

// engine.go — the one place a third-party computation library is driven
// rather than reimplemented. A FormulaEngine is injected so tests can swap
// in a stub; the production implementation wraps excelize. Recalculation is
// a soft operation: any engine failure leaves the workbook's cached results
// untouched and is reported, never fatal to rendering.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FormulaEngine is the minimal surface the adapter needs from a
// spreadsheet computation engine.
type FormulaEngine interface {
	// AddSheet creates a named sheet in the engine model.
	AddSheet(name string) error
	// SetCellValue writes a literal value (float64, string, bool) at an
	// A1-style axis.
	SetCellValue(sheet, axis string, value any) error
	// SetCellFormula writes a formula in canonical "=..." form.
	SetCellFormula(sheet, axis, formula string) error
	// CellValue computes and returns the cell's display value.
	CellValue(sheet, axis string) (string, error)
	Close() error
}

// excelizeEngine adapts an excelize file to the FormulaEngine surface.
type excelizeEngine struct {
	f     *excelize.File
	first bool
}

// NewExcelizeEngine returns a FormulaEngine backed by a fresh excelize
// workbook.
func NewExcelizeEngine() (FormulaEngine, error) {
	return &excelizeEngine{f: excelize.NewFile(), first: true}, nil
}

func (e *excelizeEngine) AddSheet(name string) error {
	if e.first {
		// excelize seeds new files with one default sheet; reuse it.
		e.first = false
		return e.f.SetSheetName("Sheet1", name)
	}
	_, err := e.f.NewSheet(name)
	return err
}

func (e *excelizeEngine) SetCellValue(sheet, axis string, value any) error {
	return e.f.SetCellValue(sheet, axis, value)
}

func (e *excelizeEngine) SetCellFormula(sheet, axis, formula string) error {
	// excelize stores formulas without the leading '='.
	return e.f.SetCellFormula(sheet, axis, strings.TrimPrefix(formula, "="))
}

func (e *excelizeEngine) CellValue(sheet, axis string) (string, error) {
	return e.f.CalcCellValue(sheet, axis)
}

func (e *excelizeEngine) Close() error { return e.f.Close() }

// Recalculator drives a FormulaEngine over a bounded window of every sheet.
type Recalculator struct {
	// NewEngine constructs a fresh engine per run; defaults to the excelize
	// implementation.
	NewEngine func() (FormulaEngine, error)
	// MaxRows/MaxCols bound the transferred range from each sheet's
	// top-left. A fidelity/latency tradeoff: formulas referencing cells
	// beyond the window keep their cached results.
	MaxRows int
	MaxCols int
}

// NewRecalculator returns a Recalculator with the given window bounds.
func NewRecalculator(maxRows, maxCols int) *Recalculator {
	return &Recalculator{NewEngine: NewExcelizeEngine, MaxRows: maxRows, MaxCols: maxCols}
}

// Recalculate recomputes every formula cell's Result within the bounded
// window. On any engine failure the workbook is left with its pre-existing
// cached results and an ErrRecalcUnavailable-wrapped error is returned for
// logging; callers must treat it as non-fatal.
func (r *Recalculator) Recalculate(wb *Workbook) error {
	newEngine := r.NewEngine
	if newEngine == nil {
		newEngine = NewExcelizeEngine
	}
	engine, err := newEngine()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecalcUnavailable, err)
	}
	defer engine.Close()

	names := engineSheetNames(wb)

	// First pass: transfer every sheet before computing anything, so
	// cross-sheet references resolve.
	for _, sheet := range wb.Sheets {
		if err := engine.AddSheet(names[sheet.Name]); err != nil {
			return fmt.Errorf("%w: add sheet %q: %v", ErrRecalcUnavailable, sheet.Name, err)
		}
		if err := r.transferSheet(engine, sheet, names); err != nil {
			return err
		}
	}

	// Second pass: read computed values back into formula cells. A failure
	// on a single cell leaves its Result untouched (no cached value →
	// renders empty).
	for _, sheet := range wb.Sheets {
		r.readResults(engine, sheet, names[sheet.Name])
	}
	return nil
}

func (r *Recalculator) window(sheet *Sheet) Rect {
	rect := sheet.Used
	if rect.Rows() > r.MaxRows {
		rect.Bottom = rect.Top + r.MaxRows - 1
	}
	if rect.Cols() > r.MaxCols {
		rect.Right = rect.Left + r.MaxCols - 1
	}
	return rect
}

func (r *Recalculator) transferSheet(engine FormulaEngine, sheet *Sheet, names map[string]string) error {
	name := names[sheet.Name]
	win := r.window(sheet)
	for row := win.Top; row <= win.Bottom; row++ {
		for col := win.Left; col <= win.Right; col++ {
			addr := Address{Row: row, Col: col}
			cell := sheet.Cell(addr)
			if cell == nil {
				continue
			}
			axis := addr.Name()
			var err error
			switch {
			case cell.Formula != "":
				err = engine.SetCellFormula(name, axis, "="+rewriteSheetRefs(cell.Formula, names))
			case cell.Value.Kind == KindNumber:
				err = engine.SetCellValue(name, axis, cell.Value.Number)
			case cell.Value.Kind == KindString && cell.Value.Str != "":
				err = engine.SetCellValue(name, axis, cell.Value.Str)
			case cell.Value.Kind == KindBool:
				err = engine.SetCellValue(name, axis, cell.Value.Bool)
			case cell.Value.Kind == KindDate:
				err = engine.SetCellValue(name, axis, TimeToSerial(cell.Value.Time))
			}
			if err != nil {
				return fmt.Errorf("%w: set %s!%s: %v", ErrRecalcUnavailable, name, axis, err)
			}
		}
	}
	return nil
}

func (r *Recalculator) readResults(engine FormulaEngine, sheet *Sheet, name string) {
	win := r.window(sheet)
	for row := win.Top; row <= win.Bottom; row++ {
		for col := win.Left; col <= win.Right; col++ {
			addr := Address{Row: row, Col: col}
			cell := sheet.Cell(addr)
			if cell == nil || cell.Formula == "" {
				continue
			}
			raw, err := engine.CellValue(name, addr.Name())
			if err != nil {
				continue // unsupported formula: keep the cached result
			}
			result := parseEngineValue(raw)
			cell.Result = &result
		}
	}
}

// engineSheetNames maps workbook sheet names to engine-safe names. The
// engine's naming rules are stricter than the package's, so anything
// outside [A-Za-z0-9_] is stripped; collisions and empty results get a
// positional suffix.
func engineSheetNames(wb *Workbook) map[string]string {
	names := make(map[string]string, len(wb.Sheets))
	seen := make(map[string]bool, len(wb.Sheets))
	for i, sheet := range wb.Sheets {
		name := sanitizeSheetName(sheet.Name)
		if name == "" || seen[name] {
			name = fmt.Sprintf("%sSheet%d", name, i+1)
		}
		seen[name] = true
		names[sheet.Name] = name
	}
	return names
}

func sanitizeSheetName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' ||
			(r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
			(r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > 31 { // engine sheet name limit
		s = s[:31]
	}
	return s
}

// rewriteSheetRefs renames cross-sheet references inside a formula to the
// sanitized engine sheet names.
func rewriteSheetRefs(formula string, names map[string]string) string {
	if !strings.Contains(formula, "!") {
		return formula
	}
	for original, sanitized := range names {
		if original == sanitized {
			continue
		}
		formula = strings.ReplaceAll(formula, "'"+original+"'!", sanitized+"!")
		formula = strings.ReplaceAll(formula, original+"!", sanitized+"!")
	}
	return formula
}

// parseEngineValue converts the engine's string result back into the cell
// value union.
func parseEngineValue(raw string) Value {
	switch {
	case raw == "":
		return EmptyValue()
	case strings.HasPrefix(raw, "#"):
		if _, known := errorDisplay[raw]; known {
			return ErrorValue(raw)
		}
		return StringValue(raw)
	case raw == "TRUE":
		return BoolValue(true)
	case raw == "FALSE":
		return BoolValue(false)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return NumberValue(n)
	}
	return StringValue(raw)
}
