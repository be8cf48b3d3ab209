package workbook

// markdown.go — Markdown export of a rendered sheet: the HTML renderer's
// output run through html-to-markdown with the GitHub-flavored table rules.

import (
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

const markdownSheetHeading = "## " // heading level for the sheet name

// RenderMarkdown renders the sheet viewport and converts it to a Markdown
// table under a sheet-name heading.
func RenderMarkdown(sheet *Sheet, wb *Workbook, opt RenderOptions) (string, error) {
	htmlTable := RenderHTML(sheet, wb, opt)

	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())

	body, err := conv.ConvertString(htmlTable)
	if err != nil {
		return "", fmt.Errorf("convert sheet %q to markdown: %w", sheet.Name, err)
	}
	return markdownSheetHeading + sheet.Name + "\n\n" + body + "\n", nil
}
