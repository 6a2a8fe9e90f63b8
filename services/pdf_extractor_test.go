package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"manuals-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pdfInfoEntry struct {
	key   string
	value string
}

// buildTestPDF renders a minimal PDF with one Helvetica text line per page.
func buildTestPDF(t *testing.T, pages []string, info []pdfInfoEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	write := func(body string) int {
		offsets = append(offsets, buf.Len())
		num := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
		return num
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	write("<< /Type /Catalog /Pages 2 0 R >>")
	write(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	write("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		write(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		write(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	infoRef := ""
	if len(info) > 0 {
		var sb strings.Builder
		sb.WriteString("<<")
		for _, e := range info {
			fmt.Fprintf(&sb, " /%s (%s)", e.key, e.value)
		}
		sb.WriteString(" >>")
		infoRef = fmt.Sprintf(" /Info %d 0 R", write(sb.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, infoRef, xref)
	return buf.Bytes()
}

func writeTestPDF(t *testing.T, dir, name string, pages []string, info []pdfInfoEntry) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buildTestPDF(t, pages, info), 0o644))
	return path
}

func TestExtractMetadataReadsInfoDictionary(t *testing.T) {
	path := writeTestPDF(t, t.TempDir(), "manual.pdf", []string{"Page one", "Page two"}, []pdfInfoEntry{
		{"Producer", "Acme Writer"},
		{"Creator", "Acme Docs"},
		{"CreationDate", "D:20230102030405Z"},
		{"ModDate", "D:20230405060708+02'00'"},
	})

	meta, err := NewPDFExtractor().ExtractMetadata(path)
	require.NoError(t, err)

	assert.Equal(t, path, meta[models.MetaSource])
	assert.Equal(t, 2, meta[models.MetaTotalPages])
	assert.Equal(t, "Acme Writer", meta[models.MetaProducer])
	assert.Equal(t, "Acme Docs", meta[models.MetaCreator])
	assert.Equal(t, "2023-01-02T03:04:05Z", meta[models.MetaCreationDate])
	assert.Equal(t, "2023-04-05T06:07:08+02:00", meta[models.MetaModDate])
}

func TestExtractMetadataWithoutInfo(t *testing.T) {
	path := writeTestPDF(t, t.TempDir(), "plain.pdf", []string{"Only page"}, nil)

	meta, err := NewPDFExtractor().ExtractMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{models.MetaSource: path, models.MetaTotalPages: 1}, meta)
}

func TestExtractMetadataRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a pdf"), 0o644))

	_, err := NewPDFExtractor().ExtractMetadata(path)
	assert.Error(t, err)

	_, err = NewPDFExtractor().LoadPages(path)
	assert.Error(t, err)
}

func TestLoadPagesOneDocumentPerPage(t *testing.T) {
	path := writeTestPDF(t, t.TempDir(), "manual.pdf", []string{"Install the filter", "Clean the drum"}, nil)

	docs, err := NewPDFExtractor().LoadPages(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Contains(t, docs[0].PageContent, "Install the filter")
	assert.Equal(t, 0, docs[0].Metadata[models.MetaPage])
	assert.Equal(t, "1", docs[0].Metadata[models.MetaPageLabel])
	assert.Equal(t, 2, docs[0].Metadata[models.MetaTotalPages])
	assert.Equal(t, path, docs[0].Metadata[models.MetaSource])

	assert.Contains(t, docs[1].PageContent, "Clean the drum")
	assert.Equal(t, 1, docs[1].Metadata[models.MetaPage])
	assert.Equal(t, "2", docs[1].Metadata[models.MetaPageLabel])
}

func TestNormalizePDFDate(t *testing.T) {
	assert.Equal(t, "2021-07-09T10:11:12Z", normalizePDFDate("D:20210709101112"))
	assert.Equal(t, "2021-07-09T00:00:00Z", normalizePDFDate("D:20210709"))
	assert.Equal(t, "2024-03-01T10:15:00+01:00", normalizePDFDate("D:20240301101500+01'00'"))
	assert.Equal(t, "yesterday", normalizePDFDate("yesterday"))
}
