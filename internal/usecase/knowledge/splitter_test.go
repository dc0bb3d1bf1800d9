package knowledge

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyAndBlank(t *testing.T) {
	s := NewSplitter()
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n  \n"))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := NewSplitter()
	got := s.Split("  Prompt injection is a top risk.  ")
	assert.Equal(t, []string{"Prompt injection is a top risk."}, got)
}

func TestSplit_ParagraphsRespectSize(t *testing.T) {
	s := NewSplitter(WithChunkSize(50), WithOverlap(10))
	text := strings.Repeat("word ", 8) + "\n\n" + strings.Repeat("term ", 8) + "\n\n" + strings.Repeat("item ", 8)

	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50, "chunk too long: %q", c)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
}

func TestSplit_Overlap(t *testing.T) {
	s := NewSplitter(WithChunkSize(20), WithOverlap(8))
	chunks := s.Split("aaaa bbbb cccc dddd eeee ffff gggg hhhh")

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		curWords := strings.Fields(chunks[i])
		assert.Equal(t, prevWords[len(prevWords)-1], curWords[0],
			"chunk %d should start with the last word of chunk %d", i, i-1)
	}
}

func TestSplit_LongWordFallsBackToCharacters(t *testing.T) {
	s := NewSplitter(WithChunkSize(10), WithOverlap(0))
	chunks := s.Split(strings.Repeat("x", 25))

	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, chunks)
}

func TestSplit_CoversAllWords(t *testing.T) {
	s := NewSplitter(WithChunkSize(30), WithOverlap(5))
	words := []string{"data", "model", "infra", "compliance", "operational", "poisoning", "exfiltration", "jailbreak"}
	chunks := s.Split(strings.Join(words, " "))

	joined := strings.Join(chunks, " ")
	for _, w := range words {
		assert.Contains(t, joined, w)
	}
}

func TestNewSplitter_ClampsOverlap(t *testing.T) {
	s := NewSplitter(WithChunkSize(100), WithOverlap(200))
	assert.Equal(t, 25, s.Overlap())
	assert.Equal(t, 100, s.ChunkSize())
}

func TestNewSplitter_Defaults(t *testing.T) {
	s := NewSplitter(WithChunkSize(-1), WithOverlap(-1), WithSeparators(nil))
	assert.Equal(t, DefaultChunkSize, s.ChunkSize())
	assert.Equal(t, DefaultChunkOverlap, s.Overlap())
}
