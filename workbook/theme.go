package workbook

import "encoding/xml"

// Theme slot indices as referenced by the theme attribute of color specs.
// Spreadsheet theme indices swap the DrawingML declaration order: slot 0 is
// background 1 (lt1), slot 1 is text 1 (dk1).
const (
	ThemeBackground1 = iota
	ThemeText1
	ThemeBackground2
	ThemeText2
	ThemeAccent1
	ThemeAccent2
	ThemeAccent3
	ThemeAccent4
	ThemeAccent5
	ThemeAccent6
	ThemeHyperlink
	ThemeFollowedHyperlink

	themeSlotCount
)

// ThemeColorTable maps the 12 theme slots to 6-digit RGB hex values.
type ThemeColorTable [themeSlotCount]string

// defaultTheme is the stock Office palette, used slot-by-slot whenever the
// package has no theme part or a scheme entry is missing.
var defaultTheme = ThemeColorTable{
	ThemeBackground1:       "FFFFFF",
	ThemeText1:             "000000",
	ThemeBackground2:       "E7E6E6",
	ThemeText2:             "44546A",
	ThemeAccent1:           "4472C4",
	ThemeAccent2:           "ED7D31",
	ThemeAccent3:           "A5A5A5",
	ThemeAccent4:           "FFC000",
	ThemeAccent5:           "5B9BD5",
	ThemeAccent6:           "70AD47",
	ThemeHyperlink:         "0563C1",
	ThemeFollowedHyperlink: "954F72",
}

// DefaultTheme returns the stock palette.
func DefaultTheme() ThemeColorTable { return defaultTheme }

// Color returns the hex value of a theme slot, falling back to the default
// palette for out-of-range indices.
func (t ThemeColorTable) Color(slot int) string {
	if slot < 0 || slot >= themeSlotCount {
		return defaultTheme[ThemeText1]
	}
	return t[slot]
}

// parseTheme extracts the 12-slot color scheme from a theme part. A nil or
// unparseable part yields the default palette; individual missing entries
// fall back per-slot, not all-or-nothing.
func parseTheme(data []byte) ThemeColorTable {
	table := defaultTheme
	if len(data) == 0 {
		return table
	}
	var theme xmlTheme
	if err := xml.Unmarshal(data, &theme); err != nil {
		return table
	}
	cs := theme.Elements.ClrScheme
	slots := [themeSlotCount]xmlThemeClr{
		ThemeBackground1:       cs.Lt1,
		ThemeText1:             cs.Dk1,
		ThemeBackground2:       cs.Lt2,
		ThemeText2:             cs.Dk2,
		ThemeAccent1:           cs.Accent1,
		ThemeAccent2:           cs.Accent2,
		ThemeAccent3:           cs.Accent3,
		ThemeAccent4:           cs.Accent4,
		ThemeAccent5:           cs.Accent5,
		ThemeAccent6:           cs.Accent6,
		ThemeHyperlink:         cs.Hlink,
		ThemeFollowedHyperlink: cs.FolHlink,
	}
	for i, clr := range slots {
		if hex := clr.hex(); hex != "" {
			table[i] = normalizeHex(hex)
		}
	}
	return table
}
