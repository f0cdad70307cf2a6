package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EmptyInput(t *testing.T) {
	assert.Nil(t, Chunk("", Meta{}, DefaultConfig()))
	assert.Nil(t, Chunk("   \n\t  ", Meta{}, DefaultConfig()))
}

func TestChunk_RespectsMaxTokens(t *testing.T) {
	words := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		words = append(words, "word")
	}
	text := strings.Join(words, " ")

	chunks := Chunk(text, Meta{URL: "https://example.com/a"}, Config{
		MaxChunkTokens:     50,
		ChunkOverlapTokens: 10,
		Tokenizer:          WhitespaceTokenizer{},
	})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 50)
		assert.Equal(t, "https://example.com/a", c.Meta.URL)
	}
}

func TestChunk_IndicesIncreaseFromZero(t *testing.T) {
	text := strings.Repeat("hello world. ", 200)
	chunks := Chunk(text, Meta{}, Config{MaxChunkTokens: 20, ChunkOverlapTokens: 5, Tokenizer: WhitespaceTokenizer{}})
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestChunk_OverlapCarriesTokensForward(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon zeta. ", 40)
	chunks := Chunk(text, Meta{}, Config{MaxChunkTokens: 20, ChunkOverlapTokens: 5, Tokenizer: WhitespaceTokenizer{}})
	require.Greater(t, len(chunks), 1)

	tok := WhitespaceTokenizer{}
	firstTail := tok.Tokenize(chunks[0].Text)
	secondHead := tok.Tokenize(chunks[1].Text)
	require.GreaterOrEqual(t, len(firstTail), 5)
	require.GreaterOrEqual(t, len(secondHead), 5)
	assert.Equal(t, firstTail[len(firstTail)-5:], secondHead[:5])
}

func TestChunk_SingleParagraphShortText(t *testing.T) {
	chunks := Chunk("Hello world.", Meta{Domain: "example.com"}, DefaultConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello world.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "example.com", chunks[0].Meta.Domain)
}
