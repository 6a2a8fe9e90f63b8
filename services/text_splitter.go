package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"manuals-backend/models"
)

// DefaultSeparators are tried in order; the empty separator splits into characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// TextSplitter splits text recursively on a list of separators until every
// piece fits the chunk size, then merges neighbouring pieces into windows
// that overlap by up to ChunkOverlap characters.
type TextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewTextSplitter creates a splitter with the default separators.
func NewTextSplitter(chunkSize, chunkOverlap int) (*TextSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", chunkOverlap, chunkSize)
	}
	return &TextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}, nil
}

// SplitText returns the chunks of text. Chunks are trimmed and never empty.
func (s *TextSplitter) SplitText(text string) []string {
	return s.splitRecursive(text, s.Separators)
}

// SplitDocuments splits every document and copies its metadata onto each chunk.
func (s *TextSplitter) SplitDocuments(docs []models.Document) []models.Document {
	var out []models.Document
	for _, doc := range docs {
		for _, chunk := range s.SplitText(doc.PageContent) {
			c := doc.Clone()
			c.PageContent = chunk
			out = append(out, c)
		}
	}
	return out
}

func (s *TextSplitter) splitRecursive(text string, separators []string) []string {
	separator := ""
	var rest []string
	if len(separators) > 0 {
		separator = separators[len(separators)-1]
	}
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks []string
	var good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.mergeSplits(good, "")...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.splitRecursive(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.mergeSplits(good, "")...)
	}
	return chunks
}

// mergeSplits packs pieces into windows of at most ChunkSize characters. When
// a window is emitted, pieces are dropped from its front until what remains
// fits the overlap and leaves room for the next piece.
func (s *TextSplitter) mergeSplits(pieces []string, separator string) []string {
	sepLen := runeLen(separator)
	var docs []string
	var current []string
	total := 0

	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n+joinLen() > s.ChunkSize {
			if len(current) > 0 {
				if doc, ok := joinPieces(current, separator); ok {
					docs = append(docs, doc)
				}
				for total > s.ChunkOverlap || (total+n+joinLen() > s.ChunkSize && total > 0) {
					drop := runeLen(current[0])
					if len(current) > 1 {
						drop += sepLen
					}
					total -= drop
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc, ok := joinPieces(current, separator); ok {
		docs = append(docs, doc)
	}
	return docs
}

func joinPieces(pieces []string, separator string) (string, bool) {
	text := strings.TrimSpace(strings.Join(pieces, separator))
	return text, text != ""
}

// splitKeepSeparator splits text on sep, keeping each separator at the start
// of the piece that follows it. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
