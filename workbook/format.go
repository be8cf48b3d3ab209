package workbook

// format.go — turns a raw cell value plus its number format code into the
// display string. The decision order is load-bearing: error-code mapping
// runs before date handling, so a date-formatted formula error still
// resolves through the error rule.

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formula error codes are deliberately suppressed in the rendered view:
// division/numeric errors show "0", everything else shows an empty cell.
var errorDisplay = map[string]string{
	"#DIV/0!": "0",
	"#NUM!":   "0",
	"#VALUE!": "",
	"#REF!":   "",
	"#NAME?":  "",
	"#NULL!":  "",
	"#N/A":    "",
}

// englishPrinter renders grouped (thousands-separated) numbers.
var englishPrinter = message.NewPrinter(language.English)

// groupedFloat formats n with the given decimal places and en-US digit
// grouping.
func groupedFloat(n float64, decimals int) string {
	return englishPrinter.Sprintf("%."+strconv.Itoa(decimals)+"f", n)
}

// FormatCell converts a cell to its display string using the workbook's
// style table for number format lookup.
func FormatCell(c *Cell, styles *StyleTable) string {
	if c == nil {
		return ""
	}

	numFmtID := -1
	if cf, ok := styles.Format(c.StyleIndex); ok {
		numFmtID = cf.NumFmtID
	}
	code := styles.FormatCode(numFmtID)

	value := c.Value
	if value.Kind == KindFormula {
		if c.Result == nil {
			// No cached result: render an empty placeholder, never the
			// formula text.
			return ""
		}
		value = *c.Result
	}

	switch value.Kind {
	case KindEmpty:
		return ""
	case KindError:
		if display, ok := errorDisplay[value.ErrCode]; ok {
			return display
		}
		return ""
	case KindString:
		return value.Str
	case KindDate:
		return formatDate(value.Time, code)
	case KindBool:
		if value.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindNumber:
		if isDateFormat(numFmtID, code) {
			return formatDate(SerialToTime(value.Number), code)
		}
		return formatNumber(value.Number, code)
	default:
		return fmt.Sprint(value)
	}
}

// ---- date formats --------------------------------------------------------

// Built-in format ids that always denote dates or times.
func isBuiltInDateID(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// isDateFormat recognizes a format code as a date pattern: a built-in date
// id, or a code containing date letters (d, m, y, h) alongside a date
// separator. Quoted literals and bracketed sections don't count.
func isDateFormat(id int, code string) bool {
	if isBuiltInDateID(id) {
		return true
	}
	if code == "" {
		return false
	}
	bare := stripFormatLiterals(strings.ToLower(code))
	if !strings.ContainsAny(bare, "dmyh") {
		return false
	}
	return strings.ContainsAny(bare, "/-:")
}

// stripFormatLiterals removes quoted strings, [..] sections and escaped
// characters from a format code so literal text can't masquerade as date
// letters.
func stripFormatLiterals(code string) string {
	var b strings.Builder
	inQuote := false
	inBracket := false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			if ch == '"' {
				inQuote = false
			}
		case inBracket:
			if ch == ']' {
				inBracket = false
			}
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\':
			i++ // skip escaped literal
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// formatDate renders a time per the small set of known date patterns;
// unrecognized patterns fall back to a locale date (or date-time) string.
func formatDate(t time.Time, code string) string {
	switch strings.ToLower(code) {
	case "d-mmm-yy":
		return t.Format("2-Jan-06")
	case "mmm-yy":
		return t.Format("Jan-06")
	case "d-mmm":
		return t.Format("2-Jan")
	case "m/d/yy", "mm-dd-yy":
		return t.Format("1/2/06")
	case "h:mm", "h:mm am/pm":
		return t.Format("15:04")
	case "h:mm:ss", "h:mm:ss am/pm", "[h]:mm:ss", "mm:ss", "mmss.0":
		return t.Format("15:04:05")
	case "m/d/yy h:mm":
		return t.Format("1/2/06 15:04")
	}
	if hasTimeLetters(code) {
		return t.Format("1/2/2006 15:04")
	}
	return t.Format("1/2/2006")
}

func hasTimeLetters(code string) bool {
	bare := stripFormatLiterals(strings.ToLower(code))
	return strings.ContainsAny(bare, "hs") && strings.Contains(bare, ":")
}

// ---- number formats -------------------------------------------------------

func formatNumber(n float64, code string) string {
	switch {
	case code == "" || code == "general":
		return trimFloat(n)
	case isAccountingFormat(code):
		return formatAccounting(n, code)
	case strings.ContainsAny(code, "$€£¥"):
		return formatCurrency(n, code)
	case strings.Contains(code, "%"):
		return formatPercent(n, code)
	case strings.Contains(code, "#,##") || strings.Contains(code, "0,0"):
		return groupedFloat(n, decimalCount(code))
	case strings.Contains(code, "."):
		return strconv.FormatFloat(n, 'f', decimalCount(code), 64)
	case code == "0":
		return strconv.FormatFloat(n, 'f', 0, 64)
	default:
		return trimFloat(n)
	}
}

// decimalCount infers the displayed decimal places from the 0/# run after
// the decimal point of the format code.
func decimalCount(code string) int {
	if i := strings.IndexAny(code, ";"); i >= 0 {
		code = code[:i] // positive section only
	}
	dot := strings.Index(code, ".")
	if dot < 0 {
		return 0
	}
	count := 0
	for i := dot + 1; i < len(code); i++ {
		if code[i] == '0' || code[i] == '#' {
			count++
			continue
		}
		break
	}
	return count
}

func currencySymbol(code string) string {
	for _, sym := range []string{"$", "€", "£", "¥"} {
		if strings.Contains(code, sym) {
			return sym
		}
	}
	return "$"
}

func formatCurrency(n float64, code string) string {
	sym := currencySymbol(code)
	dec := decimalCount(code)
	if !strings.Contains(code, ".") {
		dec = 2
	}
	if n < 0 {
		return "-" + sym + groupedFloat(-n, dec)
	}
	return sym + groupedFloat(n, dec)
}

func formatPercent(n float64, code string) string {
	return strconv.FormatFloat(n*100, 'f', decimalCount(code), 64) + "%"
}

// isAccountingFormat detects the _-/`* ` alignment idioms of accounting
// codes.
func isAccountingFormat(code string) bool {
	return strings.Contains(code, "_(") || strings.Contains(code, "_-") ||
		strings.Contains(code, "* ")
}

// formatAccounting renders the magnitude with grouping and parenthesizes
// negatives.
func formatAccounting(n float64, code string) string {
	dec := decimalCount(code)
	sym := ""
	if strings.ContainsAny(code, "$€£¥") {
		sym = currencySymbol(code)
	}
	magnitude := sym + groupedFloat(absFloat(n), dec)
	if n < 0 {
		return "(" + magnitude + ")"
	}
	return magnitude
}

func absFloat(n float64) float64 {
	if n < 0 {
		return -n
	}
	return n
}

// trimFloat renders a number the way the general format does: no trailing
// zeros, no exponent for ordinary magnitudes.
func trimFloat(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
