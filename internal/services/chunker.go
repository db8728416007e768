package services

import "strings"

const (
	defaultChunkWords   = 1200
	defaultChunkOverlap = 150
)

// ChunkText splits text into word windows of chunkSize words with the given
// overlap between consecutive windows. Chunk boundaries only affect
// retrieval granularity, so a simple word split is enough.
func ChunkText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = defaultChunkWords
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	step := chunkSize - overlap

	for i := 0; i < len(words); i += step {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}

	return chunks
}
