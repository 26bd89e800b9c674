package indexer

import (
	"strings"
	"unicode"

	"nb-assistant/internal/notebook"
)

// DefaultChunkSize is the word budget of a chunk.
const DefaultChunkSize = 128

// TextChunk is a chunk of consecutive blocks before it is assigned an id.
type TextChunk struct {
	BlockIDs []string
	Blocks   []string // block markdown, parallel to BlockIDs
	Text     string
}

// BlockChunker groups consecutive blocks into chunks of at most Size words.
// Chunks never overlap: every block lands in exactly one chunk.
type BlockChunker struct {
	Size int
}

// NewBlockChunker creates a chunker with the given word budget.
func NewBlockChunker(size int) *BlockChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &BlockChunker{Size: size}
}

// Split accumulates blocks in order. When adding the next block would push the
// accumulated text past Size words, the accumulator is emitted, prefixed with
// "notebookName\ndocName\n", and a new one starts with that block. A single block
// larger than Size becomes a chunk of its own.
func (c *BlockChunker) Split(blocks []notebook.Block, notebookName, docName string) []TextChunk {
	prefix := notebookName + "\n" + docName + "\n"

	var chunks []TextChunk
	var acc strings.Builder
	var ids, texts []string

	flush := func() {
		chunks = append(chunks, TextChunk{BlockIDs: ids, Blocks: texts, Text: prefix + acc.String()})
		acc.Reset()
		ids, texts = nil, nil
	}

	for _, block := range blocks {
		if len(ids) > 0 && CountWords(acc.String()+block.Markdown) > c.Size {
			flush()
		}
		acc.WriteString(block.Markdown)
		acc.WriteString("\n")
		ids = append(ids, block.ID)
		texts = append(texts, block.Markdown)
	}
	if len(ids) > 0 {
		flush()
	}

	return chunks
}

// CountWords counts tokens the way chunk budgets are measured: every CJK code
// point is one token, and any other run of non-space characters is one token.
func CountWords(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		switch {
		case isCJK(r):
			count++
			inWord = false
		case unicode.IsSpace(r):
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
