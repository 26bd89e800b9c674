package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"nb-assistant/internal/hnsw"
	"nb-assistant/internal/storage"
)

// ChunkerVersion is the version identifier for the chunker implementation.
// Update this when chunking logic changes significantly.
const ChunkerVersion = "blocks-v1"

// RebuildReport describes one full rebuild of a notebook.
type RebuildReport struct {
	// NotebookID is the rebuilt notebook.
	NotebookID string `json:"notebook_id"`
	// Generation is the rebuild marker generation of this pass.
	Generation string `json:"generation"`
	// DocsProcessed is the total number of documents walked.
	DocsProcessed int `json:"docs_processed"`
	// DocsWith0Chunks is the number of documents that produced no chunks.
	DocsWith0Chunks int `json:"docs_with_0_chunks"`
	// ChunksAttempted is the number of chunks handed to the embedding orchestrator.
	ChunksAttempted int `json:"chunks_attempted"`
	// ChunksEmbedded is the number of chunks that made it into the index.
	ChunksEmbedded int `json:"chunks_embedded"`
	// ChunksSkipped is the number of chunks with no content to embed.
	ChunksSkipped int `json:"chunks_skipped"`
	// ChunksDropped is the number of chunks the provider returned nothing for.
	ChunksDropped int `json:"chunks_dropped"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
	// Duration is the wall time of the rebuild.
	Duration time.Duration `json:"duration_ns"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	// Min is the minimum token count across all chunks.
	Min int `json:"min"`
	// Max is the maximum token count across all chunks.
	Max int `json:"max"`
	// Mean is the mean token count across all chunks.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile token count.
	P95 int `json:"p95"`
}

// IndexVersion hashes everything that changes the meaning of stored vectors.
func IndexVersion(embeddingModel string, chunkSize int, cfg hnsw.Config) string {
	input := fmt.Sprintf("%s|%s|chunkSize=%d|m=%d|ef=%d|metric=%s",
		ChunkerVersion, embeddingModel, chunkSize, cfg.M, cfg.EfConstruction, cfg.Metric)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// chunkTokenStats measures chunks with the same token count the chunker budgets by.
func chunkTokenStats(chunks []storage.Chunk) ChunkTokenStats {
	counts := make([]int, 0, len(chunks))
	for _, c := range chunks {
		counts = append(counts, CountWords(c.Content))
	}
	return computeTokenStats(counts)
}

// countDocs counts the documents of a tree and those without chunks.
func countDocs(root DocumentNode) (docs, empty int) {
	var walk func(DocumentNode)
	walk = func(n DocumentNode) {
		switch node := n.(type) {
		case Leaf:
			docs++
			if len(node.Chunks) == 0 {
				empty++
			}
		case Branch:
			for _, child := range node.Children {
				walk(child)
			}
		}
	}
	if root != nil {
		walk(root)
	}
	return docs, empty
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
