package loader

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"docrag/internal/domain"
)

// Markdown renders the document to plain text: markup is dropped, headings
// and paragraphs become blank-line separated blocks, code blocks keep their lines.
type Markdown struct{}

func (Markdown) FileType() domain.FileType { return domain.FileTypeMarkdown }

func (Markdown) Extract(data []byte) (string, int, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(data))
				if node.HardLineBreak() {
					sb.WriteByte('\n')
				} else if node.SoftLineBreak() {
					sb.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(data))
				}
			} else {
				sb.WriteString("\n\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				sb.WriteString("\n\n")
			}
		case *ast.ThematicBreak:
			if !entering {
				sb.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", 0, err
	}
	return sb.String(), 1, nil
}
