package workbook

// export.go — writes the (recalculated) workbook back out as a fresh .xlsx.
// Formula cells keep their formulas so the exported file stays live; every
// other cell carries its typed value. Styling is not round-tripped; the
// export is a values-and-formulas snapshot.

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX serializes the workbook into xlsx bytes.
func ExportXLSX(wb *Workbook) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range wb.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return nil, fmt.Errorf("export sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("export sheet %q: %w", sheet.Name, err)
		}
		if err := exportSheet(f, sheet); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize export workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportSheet(f *excelize.File, sheet *Sheet) error {
	for row := sheet.Used.Top; row <= sheet.Used.Bottom; row++ {
		for col := sheet.Used.Left; col <= sheet.Used.Right; col++ {
			addr := Address{Row: row, Col: col}
			cell := sheet.Cell(addr)
			if cell == nil {
				continue
			}
			axis := addr.Name()
			var err error
			switch {
			case cell.Formula != "":
				err = f.SetCellFormula(sheet.Name, axis, cell.Formula)
			case cell.Value.Kind == KindNumber:
				err = f.SetCellValue(sheet.Name, axis, cell.Value.Number)
			case cell.Value.Kind == KindString:
				err = f.SetCellValue(sheet.Name, axis, cell.Value.Str)
			case cell.Value.Kind == KindBool:
				err = f.SetCellValue(sheet.Name, axis, cell.Value.Bool)
			case cell.Value.Kind == KindDate:
				err = f.SetCellValue(sheet.Name, axis, cell.Value.Time)
			}
			if err != nil {
				return fmt.Errorf("export cell %s!%s: %w", sheet.Name, axis, err)
			}
		}
	}
	for _, m := range sheet.Merges {
		top := Address{Row: m.Top, Col: m.Left}
		bottom := Address{Row: m.Bottom, Col: m.Right}
		if err := f.MergeCell(sheet.Name, top.Name(), bottom.Name()); err != nil {
			return fmt.Errorf("export merge %s: %w", sheet.Name, err)
		}
	}
	return nil
}
