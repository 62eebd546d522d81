package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPages bounds extraction work for very large documents; closing
// packages run tens of pages, not hundreds.
const maxPages = 100

// TextContent is the flattened text of a document plus basic metadata.
type TextContent struct {
	Filename  string
	Text      string
	PageCount int
	CharCount int
}

// ExtractText extracts the plain text of a PDF file as one flattened
// string. Pages that fail to decode are skipped; the document is only
// rejected when no text can be extracted at all.
func ExtractText(path string) (*TextContent, error) {
	content := &TextContent{Filename: filepath.Base(path)}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	content.PageCount = r.NumPage()
	pages := content.PageCount
	if pages > maxPages {
		pages = maxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}

	content.Text = cleanText(b.String())
	content.CharCount = len(content.Text)

	if strings.TrimSpace(content.Text) == "" {
		return nil, fmt.Errorf("no text could be extracted from %s", content.Filename)
	}

	return content, nil
}

// cleanText collapses runs of spaces and blank lines while preserving
// line structure, so rule patterns see stable spacing.
func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))

	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
