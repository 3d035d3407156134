package util

// Chunk partitions elements into consecutive slices of at most chunkSize
// elements each, preserving order. The last chunk may be shorter.
func Chunk[T any](elements []T, chunkSize int) [][]T {
	total := len(elements)

	n := total / chunkSize
	lastChunkSize := total % chunkSize
	totalChunks := n
	if lastChunkSize != 0 {
		totalChunks++
	}

	chunks := make([][]T, totalChunks)

	for i := 0; i < n; i++ {
		chunks[i] = elements[i*chunkSize : (i+1)*chunkSize]
	}

	if lastChunkSize != 0 {
		chunks[n] = elements[n*chunkSize : n*chunkSize+lastChunkSize]
	}

	return chunks
}
