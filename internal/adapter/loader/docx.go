package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"docrag/internal/domain"
)

// DOCX reads word/document.xml from the OOXML zip container. Each paragraph,
// including those inside tables, becomes its own block of text.
type DOCX struct{}

func (DOCX) FileType() domain.FileType { return domain.FileTypeDOCX }

func (DOCX) Extract(data []byte) (string, int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: not a docx archive: %v", domain.ErrInvalidInput, err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", 0, fmt.Errorf("%w: open document.xml: %v", domain.ErrInvalidInput, err)
		}
		defer rc.Close()

		text, err := documentText(rc)
		if err != nil {
			return "", 0, fmt.Errorf("%w: parse document.xml: %v", domain.ErrInvalidInput, err)
		}
		return text, 1, nil
	}
	return "", 0, fmt.Errorf("%w: docx has no word/document.xml", domain.ErrInvalidInput)
}

func documentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}
