package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText("", 10, 2))
	assert.Nil(t, ChunkText("   \n  ", 10, 2))
}

func TestChunkTextSingleChunk(t *testing.T) {
	chunks := ChunkText("one two three", 10, 2)
	assert.Equal(t, []string{"one two three"}, chunks)
}

func TestChunkTextWindowsOverlap(t *testing.T) {
	var words []string
	for i := 0; i < 25; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	text := strings.Join(words, " ")

	chunks := ChunkText(text, 10, 2)

	// step = 8: windows start at 0, 8, 16; the last window absorbs the tail
	assert.Len(t, chunks, 3)
	assert.True(t, strings.HasPrefix(chunks[1], "w8 "))
	// Overlap: the last two words of chunk 0 open chunk 1.
	assert.True(t, strings.HasSuffix(chunks[0], "w8 w9"))
	assert.True(t, strings.HasSuffix(chunks[2], "w24"))
}

func TestChunkTextDefensiveParams(t *testing.T) {
	text := strings.Repeat("word ", 40)

	// Zero size falls back to the default window; nothing to split.
	chunks := ChunkText(text, 0, 0)
	assert.Len(t, chunks, 1)

	// Overlap >= size is reduced instead of looping forever.
	chunks = ChunkText(text, 10, 10)
	assert.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(chunk)), 10)
	}
}
