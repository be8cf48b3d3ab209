package workbook

// xmlparts.go — typed encoding/xml mappings for the OOXML parts this package
// consumes. Parsing into fully-typed structs up front keeps every
// missing-part/missing-attribute decision here, so the resolver, evaluator
// and renderer never carry defensive checks.

// xl/workbook.xml
type xmlWorkbook struct {
	Sheets struct {
		Sheet []xmlWorkbookSheet `xml:"sheet"`
	} `xml:"sheets"`
}

type xmlWorkbookSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RelID   string `xml:"id,attr"` // r:id; matched by local name
}

// xl/_rels/workbook.xml.rels
type xmlRelationships struct {
	Relationship []xmlRelationship `xml:"Relationship"`
}

type xmlRelationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// xl/sharedStrings.xml
type xmlSST struct {
	SI []xmlSSTItem `xml:"si"`
}

type xmlSSTItem struct {
	T    *string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

// plain returns the item text, concatenating rich-text runs. Run-level
// formatting is dropped; only the text survives.
func (si xmlSSTItem) plain() string {
	if len(si.Runs) > 0 {
		out := ""
		for _, r := range si.Runs {
			out += r.T
		}
		return out
	}
	if si.T != nil {
		return *si.T
	}
	return ""
}

// xl/styles.xml
type xmlStyleSheet struct {
	NumFmts *struct {
		NumFmt []xmlNumFmt `xml:"numFmt"`
	} `xml:"numFmts"`
	Fonts *struct {
		Font []xmlFont `xml:"font"`
	} `xml:"fonts"`
	Fills *struct {
		Fill []xmlFill `xml:"fill"`
	} `xml:"fills"`
	Borders *struct {
		Border []xmlBorder `xml:"border"`
	} `xml:"borders"`
	CellXfs *struct {
		Xf []xmlXf `xml:"xf"`
	} `xml:"cellXfs"`
	Dxfs *struct {
		Dxf []xmlDxf `xml:"dxf"`
	} `xml:"dxfs"`
}

type xmlNumFmt struct {
	NumFmtID   int    `xml:"numFmtId,attr"`
	FormatCode string `xml:"formatCode,attr"`
}

type xmlFont struct {
	B     *struct{}     `xml:"b"`
	I     *struct{}     `xml:"i"`
	Sz    *xmlValFloat  `xml:"sz"`
	Name  *xmlValString `xml:"name"`
	Color *xmlColor     `xml:"color"`
}

type xmlValFloat struct {
	Val float64 `xml:"val,attr"`
}

type xmlValString struct {
	Val string `xml:"val,attr"`
}

type xmlFill struct {
	PatternFill *struct {
		PatternType string    `xml:"patternType,attr"`
		FgColor     *xmlColor `xml:"fgColor"`
		BgColor     *xmlColor `xml:"bgColor"`
	} `xml:"patternFill"`
}

type xmlBorder struct {
	Left   *xmlBorderSide `xml:"left"`
	Right  *xmlBorderSide `xml:"right"`
	Top    *xmlBorderSide `xml:"top"`
	Bottom *xmlBorderSide `xml:"bottom"`
}

type xmlBorderSide struct {
	Style string    `xml:"style,attr"`
	Color *xmlColor `xml:"color"`
}

// xmlColor is the shared color spec: explicit ARGB, legacy palette index,
// or a theme slot with an optional tint.
type xmlColor struct {
	Auto    bool    `xml:"auto,attr"`
	RGB     string  `xml:"rgb,attr"`
	Indexed *int    `xml:"indexed,attr"`
	Theme   *int    `xml:"theme,attr"`
	Tint    float64 `xml:"tint,attr"`
}

type xmlXf struct {
	NumFmtID  int `xml:"numFmtId,attr"`
	FontID    int `xml:"fontId,attr"`
	FillID    int `xml:"fillId,attr"`
	BorderID  int `xml:"borderId,attr"`
	Alignment *struct {
		Horizontal string `xml:"horizontal,attr"`
		Vertical   string `xml:"vertical,attr"`
		WrapText   bool   `xml:"wrapText,attr"`
	} `xml:"alignment"`
}

// xmlDxf is a differential format: a sparse style delta used only by
// conditional formatting, carrying direct color values rather than
// font/fill table indices.
type xmlDxf struct {
	Font *xmlFont `xml:"font"`
	Fill *xmlFill `xml:"fill"`
}

// xl/theme/theme1.xml (DrawingML namespace; matched by local names)
type xmlTheme struct {
	Elements struct {
		ClrScheme xmlClrScheme `xml:"clrScheme"`
	} `xml:"themeElements"`
}

type xmlClrScheme struct {
	Dk1      xmlThemeClr `xml:"dk1"`
	Lt1      xmlThemeClr `xml:"lt1"`
	Dk2      xmlThemeClr `xml:"dk2"`
	Lt2      xmlThemeClr `xml:"lt2"`
	Accent1  xmlThemeClr `xml:"accent1"`
	Accent2  xmlThemeClr `xml:"accent2"`
	Accent3  xmlThemeClr `xml:"accent3"`
	Accent4  xmlThemeClr `xml:"accent4"`
	Accent5  xmlThemeClr `xml:"accent5"`
	Accent6  xmlThemeClr `xml:"accent6"`
	Hlink    xmlThemeClr `xml:"hlink"`
	FolHlink xmlThemeClr `xml:"folHlink"`
}

type xmlThemeClr struct {
	Srgb *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
	Sys *struct {
		Val     string `xml:"val,attr"`
		LastClr string `xml:"lastClr,attr"`
	} `xml:"sysClr"`
}

// hex returns the scheme entry's RGB hex, or "" when the entry is absent.
func (c xmlThemeClr) hex() string {
	if c.Srgb != nil && c.Srgb.Val != "" {
		return c.Srgb.Val
	}
	if c.Sys != nil && c.Sys.LastClr != "" {
		return c.Sys.LastClr
	}
	return ""
}

// xl/worksheets/sheetN.xml
type xmlWorksheet struct {
	SheetData struct {
		Row []xmlRow `xml:"row"`
	} `xml:"sheetData"`
	MergeCells *struct {
		MergeCell []struct {
			Ref string `xml:"ref,attr"`
		} `xml:"mergeCell"`
	} `xml:"mergeCells"`
	ConditionalFormatting []xmlConditionalFormatting `xml:"conditionalFormatting"`
}

type xmlRow struct {
	R int      `xml:"r,attr"`
	C []xmlCell `xml:"c"`
}

type xmlCell struct {
	R  string      `xml:"r,attr"` // A1 reference
	S  *int        `xml:"s,attr"` // style index into cellXfs
	T  string      `xml:"t,attr"` // cell type: s, str, b, e, d, inlineStr, n/""
	V  string      `xml:"v"`
	F  *string     `xml:"f"`
	IS *xmlSSTItem `xml:"is"`
}

type xmlConditionalFormatting struct {
	SQRef  string      `xml:"sqref,attr"`
	CfRule []xmlCfRule `xml:"cfRule"`
}

type xmlCfRule struct {
	Type       string   `xml:"type,attr"`
	Operator   string   `xml:"operator,attr"`
	Priority   int      `xml:"priority,attr"`
	StopIfTrue bool     `xml:"stopIfTrue,attr"`
	Text       string   `xml:"text,attr"`
	DxfID      *int     `xml:"dxfId,attr"`
	Formula    []string `xml:"formula"`
	ColorScale *struct {
		Cfvo  []xmlCfvo  `xml:"cfvo"`
		Color []xmlColor `xml:"color"`
	} `xml:"colorScale"`
	DataBar *struct {
		ShowValue *bool      `xml:"showValue,attr"`
		Cfvo      []xmlCfvo  `xml:"cfvo"`
		Color     []xmlColor `xml:"color"`
	} `xml:"dataBar"`
}

type xmlCfvo struct {
	Type string `xml:"type,attr"`
	Val  string `xml:"val,attr"`
}
