package vault

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"nb-assistant/internal/notebook"
)

// ChildBlocks parses the document's markdown and returns its top-level blocks.
// Block ids are name-based UUIDs of the document id and the block's ordinal, so
// they are stable as long as the document's block structure is.
func (p *Provider) ChildBlocks(ctx context.Context, id string) ([]notebook.Block, error) {
	notebookID, relFile, err := splitDocID(id)
	if err != nil {
		return nil, err
	}
	file, err := p.resolve(notebookID, relFile)
	if err != nil {
		return nil, err
	}

	source, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return []notebook.Block{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", relFile, err)
	}

	texts := p.splitBlocks(source)
	blocks := make([]notebook.Block, 0, len(texts))
	for i, t := range texts {
		blocks = append(blocks, notebook.Block{
			ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(id+"#"+strconv.Itoa(i))).String(),
			Markdown: t,
		})
	}
	return blocks, nil
}

// splitBlocks cuts source at the first line of every top-level block. Content
// without a position of its own, such as a thematic break, stays with the block
// before it.
func (p *Provider) splitBlocks(source []byte) []string {
	doc := p.markdown.Parser().Parse(text.NewReader(source))

	var starts []int
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		start := blockStart(n, source)
		if start < 0 {
			continue
		}
		start = lineStart(source, start)
		if len(starts) > 0 && start <= starts[len(starts)-1] {
			continue
		}
		starts = append(starts, start)
	}
	if len(starts) > 0 {
		starts[0] = 0
	}

	var out []string
	for i, start := range starts {
		end := len(source)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if t := string(bytes.TrimSpace(source[start:end])); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// blockStart returns the smallest source offset covered by n or its descendants,
// or -1 when none carries a position.
func blockStart(n ast.Node, source []byte) int {
	start := -1
	if fenced, ok := n.(*ast.FencedCodeBlock); ok {
		if fenced.Info != nil {
			return fenced.Info.Segment.Start
		}
		if fenced.Lines().Len() > 0 {
			// The opening fence is the line before the first code line.
			first := lineStart(source, fenced.Lines().At(0).Start)
			if first > 0 {
				return lineStart(source, first-1)
			}
		}
		return -1
	}

	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		if lines.Len() > 0 {
			start = lines.At(0).Start
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() != ast.TypeBlock {
			continue
		}
		if s := blockStart(c, source); s >= 0 && (start < 0 || s < start) {
			start = s
		}
	}
	return start
}

func lineStart(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	if i := bytes.LastIndexByte(source[:offset], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}
