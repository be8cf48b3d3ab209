package workbook

// styles.go — builds the shared style table from the styles and theme parts.
// The table is four flat index tables plus cell formats and differential
// formats; resolution is a flat id lookup, deliberately not Excel's full
// style-inheritance chain. Built once per loaded package, immutable after.

import (
	"encoding/xml"
	"fmt"
	"math"
	"strings"
)

// Font is one entry of the fonts table with its color already resolved.
type Font struct {
	Name   string
	Size   float64
	Bold   bool
	Italic bool
	Color  string // 6-digit RGB hex, "" when unset
}

// Fill is one entry of the fills table. Only pattern fills carry a color;
// Color is the resolved foreground hex, "" for "none".
type Fill struct {
	Pattern string
	Color   string
}

// BorderSide is one edge of a border entry.
type BorderSide struct {
	Style string
	Color string
}

// Border is one entry of the borders table.
type Border struct {
	Left   BorderSide
	Right  BorderSide
	Top    BorderSide
	Bottom BorderSide
}

// CellFormat is one cellXfs entry: ids into the flat tables plus alignment.
type CellFormat struct {
	FontID   int
	FillID   int
	BorderID int
	NumFmtID int
	HAlign   string
	VAlign   string
	WrapText bool
}

// DiffFormat is a differential (dxf) style delta used by conditional
// formatting. Colors are resolved directly; there is no table indirection.
type DiffFormat struct {
	FontColor string
	FillColor string
	Bold      bool
	Italic    bool
}

// StyleTable is the shared, immutable style state of a workbook.
type StyleTable struct {
	Fonts        []Font
	Fills        []Fill
	Borders      []Border
	NumberFmts   map[int]string // custom numFmt id → code
	CellFormats  []CellFormat
	Differential []DiffFormat
}

// Format returns the CellFormat for a cell style index, or false for
// out-of-range or unset (-1) indices.
func (t *StyleTable) Format(styleIndex int) (CellFormat, bool) {
	if t == nil || styleIndex < 0 || styleIndex >= len(t.CellFormats) {
		return CellFormat{}, false
	}
	return t.CellFormats[styleIndex], true
}

// FormatCode returns the number format code for an id: custom entries first,
// then the built-in table, then "".
func (t *StyleTable) FormatCode(id int) string {
	if t != nil {
		if code, ok := t.NumberFmts[id]; ok {
			return code
		}
	}
	return builtInNumFmt[id]
}

// Diff returns the differential format for a dxf id.
func (t *StyleTable) Diff(id int) (DiffFormat, bool) {
	if t == nil || id < 0 || id >= len(t.Differential) {
		return DiffFormat{}, false
	}
	return t.Differential[id], true
}

// builtInNumFmt is the subset of Excel's implicit number format codes the
// formatter recognizes (ids below 164 are never written into the package).
var builtInNumFmt = map[int]string{
	0:  "general",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00e+00",
	14: "m/d/yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm am/pm",
	19: "h:mm:ss am/pm",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0 ;(#,##0)",
	38: "#,##0 ;[red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[red](#,##0.00)",
	41: `_(* #,##0_);_(* \(#,##0\);_(* "-"_);_(@_)`,
	42: `_("$"* #,##0_);_("$"* \(#,##0\);_("$"* "-"_);_(@_)`,
	43: `_(* #,##0.00_);_(* \(#,##0.00\);_(* "-"??_);_(@_)`,
	44: `_("$"* #,##0.00_);_("$"* \(#,##0.00\);_("$"* "-"??_);_(@_)`,
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0e+0",
	49: "@",
}

// indexedPalette is Excel's legacy 64-entry indexed color palette. The
// values must match Excel's defaults exactly for round-trip fidelity.
var indexedPalette = [64]string{
	"000000", "FFFFFF", "FF0000", "00FF00", "0000FF", "FFFF00", "FF00FF", "00FFFF",
	"000000", "FFFFFF", "FF0000", "00FF00", "0000FF", "FFFF00", "FF00FF", "00FFFF",
	"800000", "008000", "000080", "808000", "800080", "008080", "C0C0C0", "808080",
	"9999FF", "993366", "FFFFCC", "CCFFFF", "660066", "FF8080", "0066CC", "CCCCFF",
	"000080", "FF00FF", "FFFF00", "00FFFF", "800080", "800000", "008080", "0000FF",
	"00CCFF", "CCFFFF", "CCFFCC", "FFFF99", "99CCFF", "FF99CC", "CC99FF", "FFCC99",
	"3366FF", "33CCCC", "99CC00", "FFCC00", "FF9900", "FF6600", "666699", "969696",
	"003366", "339966", "003300", "333300", "993300", "993366", "333399", "333333",
}

// resolveStyles parses the styles part against an already-parsed theme.
func resolveStyles(data []byte, theme ThemeColorTable) (*StyleTable, error) {
	var ss xmlStyleSheet
	if err := xml.Unmarshal(data, &ss); err != nil {
		return nil, fmt.Errorf("%w: styles part: %v", ErrMalformedPackage, err)
	}

	table := &StyleTable{NumberFmts: map[int]string{}}

	if ss.NumFmts != nil {
		for _, nf := range ss.NumFmts.NumFmt {
			table.NumberFmts[nf.NumFmtID] = nf.FormatCode
		}
	}

	if ss.Fonts != nil {
		table.Fonts = make([]Font, 0, len(ss.Fonts.Font))
		for _, f := range ss.Fonts.Font {
			table.Fonts = append(table.Fonts, parseFont(&f, theme))
		}
	}

	if ss.Fills != nil {
		table.Fills = make([]Fill, 0, len(ss.Fills.Fill))
		for _, f := range ss.Fills.Fill {
			table.Fills = append(table.Fills, parseFill(&f, theme))
		}
	}

	if ss.Borders != nil {
		table.Borders = make([]Border, 0, len(ss.Borders.Border))
		for _, b := range ss.Borders.Border {
			table.Borders = append(table.Borders, Border{
				Left:   parseBorderSide(b.Left, theme),
				Right:  parseBorderSide(b.Right, theme),
				Top:    parseBorderSide(b.Top, theme),
				Bottom: parseBorderSide(b.Bottom, theme),
			})
		}
	}

	if ss.CellXfs != nil {
		table.CellFormats = make([]CellFormat, 0, len(ss.CellXfs.Xf))
		for _, xf := range ss.CellXfs.Xf {
			cf := CellFormat{
				FontID:   xf.FontID,
				FillID:   xf.FillID,
				BorderID: xf.BorderID,
				NumFmtID: xf.NumFmtID,
			}
			if xf.Alignment != nil {
				cf.HAlign = xf.Alignment.Horizontal
				cf.VAlign = xf.Alignment.Vertical
				cf.WrapText = xf.Alignment.WrapText
			}
			table.CellFormats = append(table.CellFormats, cf)
		}
	}

	if ss.Dxfs != nil {
		table.Differential = make([]DiffFormat, 0, len(ss.Dxfs.Dxf))
		for _, dxf := range ss.Dxfs.Dxf {
			var d DiffFormat
			if dxf.Font != nil {
				d.Bold = dxf.Font.B != nil
				d.Italic = dxf.Font.I != nil
				if dxf.Font.Color != nil {
					d.FontColor = resolveColor(dxf.Font.Color, theme)
				}
			}
			if dxf.Fill != nil && dxf.Fill.PatternFill != nil {
				// dxf fills put the visible color in bgColor, unlike cell
				// fills which use fgColor.
				pf := dxf.Fill.PatternFill
				if pf.BgColor != nil {
					d.FillColor = resolveColor(pf.BgColor, theme)
				} else if pf.FgColor != nil {
					d.FillColor = resolveColor(pf.FgColor, theme)
				}
			}
			table.Differential = append(table.Differential, d)
		}
	}

	return table, nil
}

func parseFont(f *xmlFont, theme ThemeColorTable) Font {
	font := Font{Bold: f.B != nil, Italic: f.I != nil}
	if f.Name != nil {
		font.Name = f.Name.Val
	}
	if f.Sz != nil {
		font.Size = f.Sz.Val
	}
	if f.Color != nil {
		font.Color = resolveColor(f.Color, theme)
	}
	return font
}

func parseFill(f *xmlFill, theme ThemeColorTable) Fill {
	if f.PatternFill == nil {
		return Fill{Pattern: "none"}
	}
	fill := Fill{Pattern: f.PatternFill.PatternType}
	if fill.Pattern == "" {
		fill.Pattern = "none"
	}
	if fill.Pattern != "none" && f.PatternFill.FgColor != nil {
		fill.Color = resolveColor(f.PatternFill.FgColor, theme)
	}
	return fill
}

func parseBorderSide(s *xmlBorderSide, theme ThemeColorTable) BorderSide {
	if s == nil || s.Style == "" {
		return BorderSide{}
	}
	side := BorderSide{Style: s.Style, Color: "000000"}
	if s.Color != nil {
		side.Color = resolveColor(s.Color, theme)
	}
	return side
}

// resolveColor turns a color spec into a 6-digit RGB hex string. Resolution
// order: explicit RGB, theme slot + tint, legacy indexed palette. Anything
// else resolves to opaque black; this never fails.
func resolveColor(c *xmlColor, theme ThemeColorTable) string {
	switch {
	case c == nil:
		return "000000"
	case c.RGB != "":
		return normalizeHex(c.RGB)
	case c.Theme != nil:
		return applyTint(theme.Color(*c.Theme), c.Tint)
	case c.Indexed != nil:
		if *c.Indexed >= 0 && *c.Indexed < len(indexedPalette) {
			return indexedPalette[*c.Indexed]
		}
		return "000000"
	default:
		return "000000"
	}
}

// normalizeHex uppercases a hex color and strips the leading alpha byte of
// 8-digit ARGB values.
func normalizeHex(hex string) string {
	hex = strings.ToUpper(strings.TrimPrefix(hex, "#"))
	if len(hex) == 8 {
		hex = hex[2:]
	}
	return hex
}

// applyTint lightens (tint > 0, toward white) or darkens (tint < 0) a hex
// color channel-wise.
func applyTint(hex string, tint float64) string {
	if tint == 0 {
		return hex
	}
	r, g, b, ok := hexChannels(hex)
	if !ok {
		return hex
	}
	adjust := func(c float64) int {
		if tint > 0 {
			c = c + (255-c)*tint
		} else {
			c = c * (1 + tint)
		}
		return int(math.Round(math.Min(255, math.Max(0, c))))
	}
	return fmt.Sprintf("%02X%02X%02X", adjust(r), adjust(g), adjust(b))
}

func hexChannels(hex string) (r, g, b float64, ok bool) {
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	var ri, gi, bi int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &ri, &gi, &bi); err != nil {
		return 0, 0, 0, false
	}
	return float64(ri), float64(gi), float64(bi), true
}
