package workbook

// render.go — walks a bounded viewport of a sheet and emits an HTML table.
// Per cell: merge handling (anchor renders with colspan/rowspan, covered
// cells are skipped), base style from the shared style table, conditional
// formatting overrides on top, formatted display text, HTML escaping. One
// failing cell degrades to an empty <td>; it never aborts the sheet scan.

import (
	"fmt"
	"html"
	"strings"
)

// RenderOptions bounds the rendered viewport. Independent from the
// recalculation window.
type RenderOptions struct {
	MaxRows int
	MaxCols int
}

// TableCSS is the static stylesheet shipped alongside every rendered table.
func TableCSS() string {
	return `.wb-table { border-collapse: collapse; table-layout: fixed; font-family: Calibri, Arial, sans-serif; font-size: 11pt; }
.wb-table th { background: #f3f3f3; border: 1px solid #d0d0d0; padding: 2px 8px; font-weight: normal; color: #666; }
.wb-table td { border: 1px solid #e0e0e0; padding: 2px 8px; white-space: nowrap; overflow: hidden; }
.wb-table td[data-formula] { cursor: pointer; }`
}

// AntiCopyScript is injected into preview responses to make casual copying
// of the rendered model harder. Presentation-layer only.
func AntiCopyScript() string {
	return `(function(){var t=document.querySelector('.wb-table');if(!t)return;` +
		`t.addEventListener('contextmenu',function(e){e.preventDefault();});` +
		`t.addEventListener('copy',function(e){e.preventDefault();});` +
		`t.style.userSelect='none';t.style.webkitUserSelect='none';})();`
}

// RenderHTML renders the sheet's used range, clipped to the viewport, as an
// HTML table. Rendering the same workbook twice yields identical output.
func RenderHTML(sheet *Sheet, wb *Workbook, opt RenderOptions) string {
	view := viewport(sheet.Used, opt)
	if view.Rows() == 0 || view.Cols() == 0 {
		return `<table class="wb-table" data-sheet="` +
			html.EscapeString(sheet.Name) + `"><tbody></tbody></table>`
	}

	var b strings.Builder
	b.WriteString(`<table class="wb-table" data-sheet="`)
	b.WriteString(html.EscapeString(sheet.Name))
	b.WriteString("\">\n<thead><tr>")
	for col := view.Left; col <= view.Right; col++ {
		b.WriteString("<th>")
		b.WriteString(ColumnName(col))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead>\n<tbody>\n")

	for row := view.Top; row <= view.Bottom; row++ {
		b.WriteString("<tr>")
		for col := view.Left; col <= view.Right; col++ {
			addr := Address{Row: row, Col: col}
			merge, merged := sheet.MergeAt(addr)
			if merged && (merge.Top != row || merge.Left != col) {
				continue // covered by a merge anchor
			}
			renderCell(&b, sheet, wb, addr, merge, merged, view)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>")
	return b.String()
}

func viewport(used Rect, opt RenderOptions) Rect {
	view := used
	if opt.MaxRows > 0 && view.Rows() > opt.MaxRows {
		view.Bottom = view.Top + opt.MaxRows - 1
	}
	if opt.MaxCols > 0 && view.Cols() > opt.MaxCols {
		view.Right = view.Left + opt.MaxCols - 1
	}
	return view
}

// renderCell emits one <td>. Any panic while resolving style, conditional
// formatting or display text degrades to an empty cell.
func renderCell(b *strings.Builder, sheet *Sheet, wb *Workbook, addr Address, merge Rect, merged bool, view Rect) {
	td, ok := buildCell(sheet, wb, addr, merge, merged, view)
	if !ok {
		td = fmt.Sprintf(`<td data-address=%q></td>`, addr.Name())
	}
	b.WriteString(td)
}

func buildCell(sheet *Sheet, wb *Workbook, addr Address, merge Rect, merged bool, view Rect) (td string, ok bool) {
	defer func() {
		if recover() != nil {
			td, ok = "", false
		}
	}()

	cell := sheet.Cell(addr)
	override := Evaluate(addr, sheet.ValueAt(addr), sheet.Rules, sheet)

	var b strings.Builder
	b.WriteString(`<td data-address="`)
	b.WriteString(addr.Name())
	b.WriteByte('"')

	if cell != nil && cell.Formula != "" {
		b.WriteString(` data-formula="`)
		b.WriteString(html.EscapeString(cell.Formula))
		b.WriteByte('"')
	}

	if merged {
		span := merge
		if span.Bottom > view.Bottom {
			span.Bottom = view.Bottom
		}
		if span.Right > view.Right {
			span.Right = view.Right
		}
		if rows := span.Rows(); rows > 1 {
			fmt.Fprintf(&b, ` rowspan="%d"`, rows)
		}
		if cols := span.Cols(); cols > 1 {
			fmt.Fprintf(&b, ` colspan="%d"`, cols)
		}
	}

	css := cellCSS(wb, cell, override)
	if css != "" {
		b.WriteString(` style="`)
		b.WriteString(css)
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if cell != nil && !override.HideText {
		b.WriteString(html.EscapeString(FormatCell(cell, wb.Styles)))
	}
	b.WriteString("</td>")
	return b.String(), true
}

// cellCSS resolves the base style from the shared table and merges the
// conditional formatting override on top; the override always wins on
// conflicting properties.
func cellCSS(wb *Workbook, cell *Cell, override Override) string {
	var base CellFormat
	hasBase := false
	if cell != nil {
		base, hasBase = wb.Styles.Format(cell.StyleIndex)
	}

	var b strings.Builder

	fill := ""
	textColor := ""
	bold := false
	italic := false

	if hasBase {
		if base.FillID >= 0 && base.FillID < len(wb.Styles.Fills) {
			f := wb.Styles.Fills[base.FillID]
			if f.Pattern != "none" && f.Color != "" {
				fill = f.Color
			}
		}
		if base.FontID >= 0 && base.FontID < len(wb.Styles.Fonts) {
			font := wb.Styles.Fonts[base.FontID]
			if font.Color != "" {
				textColor = font.Color
			}
			bold = font.Bold
			italic = font.Italic
			if font.Size > 0 {
				fmt.Fprintf(&b, "font-size:%.1fpt;", font.Size)
			}
			if font.Name != "" {
				fmt.Fprintf(&b, "font-family:'%s';", font.Name)
			}
		}
		if base.BorderID >= 0 && base.BorderID < len(wb.Styles.Borders) {
			writeBorderCSS(&b, wb.Styles.Borders[base.BorderID])
		}
		writeAlignmentCSS(&b, base)
	}

	if override.FillColor != "" {
		fill = override.FillColor
	}
	if override.TextColor != "" {
		textColor = override.TextColor
	}
	if override.Bold {
		bold = true
	}
	if override.Italic {
		italic = true
	}

	if override.DataBarWidth > 0 {
		// The bar renders as a partial-width gradient under the cell text.
		fmt.Fprintf(&b, "background:linear-gradient(to right,#%s %.1f%%,transparent %.1f%%);",
			override.DataBarColor, override.DataBarWidth, override.DataBarWidth)
	} else if fill != "" {
		fmt.Fprintf(&b, "background-color:#%s;", fill)
	}
	if textColor != "" {
		fmt.Fprintf(&b, "color:#%s;", textColor)
	}
	if bold {
		b.WriteString("font-weight:bold;")
	}
	if italic {
		b.WriteString("font-style:italic;")
	}
	return b.String()
}

func writeBorderCSS(b *strings.Builder, border Border) {
	side := func(name string, s BorderSide) {
		if s.Style == "" {
			return
		}
		width := "1px"
		if s.Style == "medium" {
			width = "2px"
		} else if s.Style == "thick" {
			width = "3px"
		}
		line := "solid"
		if strings.Contains(s.Style, "dash") {
			line = "dashed"
		} else if strings.Contains(s.Style, "dot") {
			line = "dotted"
		} else if s.Style == "double" {
			line = "double"
		}
		fmt.Fprintf(b, "border-%s:%s %s #%s;", name, width, line, s.Color)
	}
	side("left", border.Left)
	side("right", border.Right)
	side("top", border.Top)
	side("bottom", border.Bottom)
}

func writeAlignmentCSS(b *strings.Builder, cf CellFormat) {
	switch cf.HAlign {
	case "center", "centerContinuous", "distributed":
		b.WriteString("text-align:center;")
	case "right":
		b.WriteString("text-align:right;")
	case "justify":
		b.WriteString("text-align:justify;")
	}
	switch cf.VAlign {
	case "top":
		b.WriteString("vertical-align:top;")
	case "center":
		b.WriteString("vertical-align:middle;")
	}
	if cf.WrapText {
		b.WriteString("white-space:normal;")
	}
}
