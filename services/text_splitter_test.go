package services

import (
	"testing"

	"manuals-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextSplitterValidates(t *testing.T) {
	_, err := NewTextSplitter(0, 0)
	assert.Error(t, err)

	_, err = NewTextSplitter(100, 100)
	assert.Error(t, err)

	s, err := NewTextSplitter(1000, 500)
	require.NoError(t, err)
	assert.Equal(t, DefaultSeparators, s.Separators)
}

func TestSplitTextShortTextIsOneChunk(t *testing.T) {
	s, err := NewTextSplitter(1000, 500)
	require.NoError(t, err)

	assert.Equal(t, []string{"hello world"}, s.SplitText("  hello world\n"))
}

func TestSplitTextOverlapsOnWords(t *testing.T) {
	s, err := NewTextSplitter(10, 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"aaa bbb", "bbb ccc", "ccc ddd"}, s.SplitText("aaa bbb ccc ddd"))
}

func TestSplitTextFallsBackToCharacters(t *testing.T) {
	s, err := NewTextSplitter(5, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"abcde", "defgh", "ghijk", "jkl"}, s.SplitText("abcdefghijkl"))
}

func TestSplitTextRecursesIntoLongParagraphs(t *testing.T) {
	s, err := NewTextSplitter(6, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"aaaa", "bbbb", "cc"}, s.SplitText("aaaa bbbb\n\ncc"))
}

func TestSplitTextDropsBlankChunks(t *testing.T) {
	s, err := NewTextSplitter(10, 2)
	require.NoError(t, err)

	assert.Empty(t, s.SplitText("   \n\n  "))
	assert.Empty(t, s.SplitText(""))
}

func TestSplitTextCountsCharactersNotBytes(t *testing.T) {
	s, err := NewTextSplitter(4, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"ééé", "ééé"}, s.SplitText("ééé ééé"))
}

func TestSplitTextChunksRespectSize(t *testing.T) {
	s, err := NewTextSplitter(1000, 500)
	require.NoError(t, err)

	text := ""
	for i := 0; i < 400; i++ {
		text += "lorem ipsum dolor "
		if i%25 == 0 {
			text += "\n\n"
		}
	}
	chunks := s.SplitText(text)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, runeLen(c), 1000)
		assert.NotEmpty(t, c)
	}
}

func TestSplitDocumentsCopiesMetadata(t *testing.T) {
	s, err := NewTextSplitter(10, 4)
	require.NoError(t, err)

	docs := []models.Document{
		{PageContent: "aaa bbb ccc ddd", Metadata: map[string]any{"page": 0, "company_name": "Acme"}},
		{PageContent: "eee", Metadata: map[string]any{"page": 1}},
	}
	chunks := s.SplitDocuments(docs)
	require.Len(t, chunks, 4)

	assert.Equal(t, "aaa bbb", chunks[0].PageContent)
	assert.Equal(t, 0, chunks[0].Metadata["page"])
	assert.Equal(t, "Acme", chunks[2].Metadata["company_name"])
	assert.Equal(t, "eee", chunks[3].PageContent)
	assert.Equal(t, 1, chunks[3].Metadata["page"])

	chunks[0].Metadata["db_id"] = "x"
	_, leaked := chunks[1].Metadata["db_id"]
	assert.False(t, leaked)
	_, leaked = docs[0].Metadata["db_id"]
	assert.False(t, leaked)
}
