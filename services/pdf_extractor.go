package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"manuals-backend/internal/logger"
	"manuals-backend/models"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads page text and document information from PDF files.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// infoKeys maps trailer /Info entries to metadata keys.
var infoKeys = []struct {
	pdfKey  string
	metaKey string
	isDate  bool
}{
	{"Producer", models.MetaProducer, false},
	{"Creator", models.MetaCreator, false},
	{"CreationDate", models.MetaCreationDate, true},
	{"ModDate", models.MetaModDate, true},
}

// ExtractMetadata returns the document information dictionary plus page count
// and source path. Absent entries are left out.
func (e *PDFExtractor) ExtractMetadata(path string) (meta map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = nil
			err = fmt.Errorf("pdf metadata extraction panicked: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	meta = map[string]any{
		models.MetaSource:     path,
		models.MetaTotalPages: reader.NumPage(),
	}

	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return meta, nil
	}
	for _, k := range infoKeys {
		v := info.Key(k.pdfKey)
		if v.Kind() != pdf.String {
			continue
		}
		text := strings.TrimSpace(v.Text())
		if text == "" {
			continue
		}
		if k.isDate {
			text = normalizePDFDate(text)
		}
		meta[k.metaKey] = text
	}
	return meta, nil
}

// LoadPages returns one document per page. page is zero-based and page_label
// is the one-based label.
func (e *PDFExtractor) LoadPages(path string) (docs []models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("pdf text extraction panicked: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	docs = make([]models.Document, 0, total)
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		text := ""
		if !page.V.IsNull() {
			text, err = page.GetPlainText(fonts)
			if err != nil {
				logger.Warn("Failed to extract page text", "path", path, "page", i, "error", err)
				text = ""
			}
		}
		docs = append(docs, models.Document{
			PageContent: text,
			Metadata: map[string]any{
				models.MetaSource:     path,
				models.MetaPage:       i - 1,
				models.MetaPageLabel:  strconv.Itoa(i),
				models.MetaTotalPages: total,
			},
		})
	}
	return docs, nil
}

// normalizePDFDate turns "D:YYYYMMDDHHmmSSOHH'mm'" into RFC 3339. Values that
// do not parse are returned unchanged.
func normalizePDFDate(raw string) string {
	s := strings.TrimPrefix(raw, "D:")
	s = strings.ReplaceAll(s, "'", "")

	layouts := []string{
		"20060102150405-0700",
		"20060102150405Z0700",
		"20060102150405Z",
		"20060102150405",
		"200601021504",
		"20060102",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return raw
}
