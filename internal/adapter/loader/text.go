package loader

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"docrag/internal/domain"
)

// Text reads plain text. Bytes that are not valid UTF-8 are decoded as
// Windows-1252, which covers most legacy Latin text files.
type Text struct{}

func (Text) FileType() domain.FileType { return domain.FileTypeText }

func (Text) Extract(data []byte) (string, int, error) {
	if utf8.Valid(data) {
		return string(data), 1, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", 0, fmt.Errorf("%w: undecodable text: %v", domain.ErrInvalidInput, err)
	}
	return string(decoded), 1, nil
}
