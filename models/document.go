package models

// Document is a span of text with its metadata. Pages and chunks share the type.
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Clone copies the document with a fresh metadata map.
func (d Document) Clone() Document {
	meta := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		meta[k] = v
	}
	return Document{PageContent: d.PageContent, Metadata: meta}
}

// Metadata keys attached to pages and chunks.
const (
	MetaCompanyName  = "company_name"
	MetaProductName  = "product_name"
	MetaProductCode  = "product_code"
	MetaFilename     = "filename"
	MetaDBID         = "db_id"
	MetaSessionID    = "session_id"
	MetaSource       = "source"
	MetaPage         = "page"
	MetaPageLabel    = "page_label"
	MetaTotalPages   = "total_pages"
	MetaProducer     = "producer"
	MetaCreator      = "creator"
	MetaCreationDate = "creationdate"
	MetaModDate      = "moddate"
)
