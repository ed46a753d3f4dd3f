package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
)

// PDF extracts the text layer page by page. Scanned PDFs without a text
// layer come back empty.
type PDF struct{}

func (PDF) FileType() domain.FileType { return domain.FileTypePDF }

func (PDF) Extract(data []byte) (text string, pages int, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, err)
	}

	pages = r.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("%w: page %d: %v", domain.ErrInvalidInput, i, err)
		}
		if strings.TrimSpace(content) != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n"), pages, nil
}
