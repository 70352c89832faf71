package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short text", 1000, 200)

	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitTextChunksWithOverlap(t *testing.T) {
	text := strings.Repeat("word ", 500) // 2500 chars

	chunks := SplitText(text, 1000, 200)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 1000)
		assert.NotEmpty(t, chunk)
	}
}

func TestSplitTextAvoidsWordBreaks(t *testing.T) {
	text := strings.Repeat("lengthyword ", 300)

	chunks := SplitText(text, 100, 20)

	for _, chunk := range chunks {
		assert.False(t, strings.HasPrefix(chunk, " "))
		assert.False(t, strings.HasSuffix(chunk, " "))
		for _, w := range strings.Fields(chunk) {
			assert.Equal(t, "lengthyword", w, "chunk boundary split a word")
		}
	}
}

func TestSplitTextWhitespaceTailDropsEmptyChunk(t *testing.T) {
	text := strings.Repeat("x", 100) + strings.Repeat(" ", 1500)

	chunks := SplitText(text, 1000, 200)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk, "a window covering only whitespace must not yield a chunk")
	}
}

func TestSplitTextInvalidChunkSize(t *testing.T) {
	assert.Nil(t, SplitText("anything", 0, 0))
}

func TestSplitTextOverlapLargerThanChunk(t *testing.T) {
	text := strings.Repeat("a b ", 200)

	// Degenerate configuration must still terminate.
	chunks := SplitText(text, 50, 60)

	assert.NotEmpty(t, chunks)
}
