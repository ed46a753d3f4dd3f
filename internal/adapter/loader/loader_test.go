package loader

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestNormalize(t *testing.T) {
	in := "\ufeffTitle  \r\nline two\r\rpara\x00 three\n\n\n\n\nend\t \n"
	assert.Equal(t, "Title\nline two\n\npara three\n\nend", Normalize(in))
}

func TestNormalize_ComposesUnicode(t *testing.T) {
	// "e" + combining acute accent becomes a single code point
	assert.Equal(t, "caf\u00e9", Normalize("cafe\u0301"))
}

func TestRegistry_LoadText(t *testing.T) {
	r := NewRegistry()

	doc, err := r.Load("dir/Notes.TXT", []byte("hello\r\nworld"))
	require.NoError(t, err)
	assert.Equal(t, "Notes.TXT", doc.Filename)
	assert.Equal(t, domain.FileTypeText, doc.FileType)
	assert.Equal(t, "hello\nworld", doc.Text)
	assert.Equal(t, int64(12), doc.Size)
	assert.Len(t, doc.Checksum, 64)
	assert.Empty(t, doc.ID)
}

func TestRegistry_LoadLegacyEncoding(t *testing.T) {
	r := NewRegistry()

	// "café" in Windows-1252
	doc, err := r.Load("old.txt", []byte{'c', 'a', 'f', 0xe9})
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", doc.Text)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.Supports("setup.exe"))
	_, err := r.Load("setup.exe", []byte("MZ"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = r.Load("noext", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_Supports(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"a.txt", "b.PDF", "c.docx", "d.md"} {
		assert.True(t, r.Supports(name), name)
	}
	assert.Equal(t, []string{".docx", ".markdown", ".md", ".pdf", ".txt"}, r.Extensions())
}

func TestDOCX_Extract(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>In a table</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`+
			`<w:p><w:r><w:t>Tab</w:t><w:tab/><w:t>bed</w:t></w:r></w:p>`)

	doc, err := NewRegistry().Load("report.docx", data)
	require.NoError(t, err)
	assert.Equal(t, domain.FileTypeDOCX, doc.FileType)
	assert.Equal(t, "First paragraph.\n\nIn a table\n\nTab\tbed", doc.Text)
}

func TestDOCX_NotAZip(t *testing.T) {
	_, err := NewRegistry().Load("broken.docx", []byte("plain text pretending"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDOCX_MissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NewRegistry().Load("empty.docx", buf.Bytes())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMarkdown_Extract(t *testing.T) {
	src := "# Title\n\nSome *emphasis* and `code`.\nSame paragraph.\n\n- item one\n- item two\n\n```go\nfmt.Println(1)\n```\n"

	doc, err := NewRegistry().Load("README.md", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, domain.FileTypeMarkdown, doc.FileType)
	assert.Equal(t, "Title\n\nSome emphasis and code. Same paragraph.\n\nitem one\n\nitem two\n\nfmt.Println(1)", doc.Text)
}

func TestPDF_Malformed(t *testing.T) {
	_, err := NewRegistry().Load("scan.pdf", []byte("%PDF-1.4 not really"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
