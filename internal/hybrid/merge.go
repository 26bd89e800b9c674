// Package hybrid merges exact full-text hits with vector similarity hits into one
// ranked list.
package hybrid

import (
	"context"
	"sort"
	"strings"
)

// FullTextScore is the fixed confidence given to every full-text hit.
const FullTextScore = 0.99

// FullTextHit is a block matched by a full-text search.
type FullTextHit struct {
	BlockID string `json:"blockId"`
	DocID   string `json:"docId,omitempty"`
	Content string `json:"content"`
}

// FullTextSearcher runs exact-text searches scoped to a notebook.
type FullTextSearcher interface {
	Search(ctx context.Context, notebookID, query string, limit int) ([]FullTextHit, error)
}

// VectorHit is a vector search hit resolved to its chunk. Blocks holds the text of
// each block, parallel to BlockIDs; when it is missing, Content is used as is.
type VectorHit struct {
	ChunkID  int
	Score    float64
	BlockIDs []string
	Blocks   []string
	Content  string
}

// Result is one ranked entry of a merged query.
type Result struct {
	ChunkID  int      `json:"chunkId,omitempty"`
	BlockIDs []string `json:"blockIds"`
	Content  string   `json:"content"`
	Score    float64  `json:"score"`
	FTS      bool     `json:"fts"`
}

// Mode selects how overlapping hits are handled.
type Mode int

const (
	// Dedup drops duplicate blocks, keeping the higher-scored occurrence.
	Dedup Mode = iota
	// Concat appends both lists untouched.
	Concat
)

// Merge scores full-text hits at FullTextScore, keeps vector scores, combines
// them according to mode and returns them ranked.
//
// Vector results carry the text of their blocks, joined by newlines.
//
// In Dedup mode a block found by full-text search and also contained in a vector
// chunk appears once. If the chunk scores at least FullTextScore the full-text hit
// is dropped; otherwise the block and its text are removed from the chunk and the
// chunk is dropped once it has no blocks left. Repeated full-text hits for the same
// block collapse to the first.
func Merge(fullText []FullTextHit, vector []VectorHit, mode Mode) []Result {
	results := make([]Result, 0, len(fullText)+len(vector))

	if mode == Concat {
		for _, hit := range fullText {
			results = append(results, fullTextResult(hit))
		}
		for _, hit := range vector {
			results = append(results, newVectorEntry(hit).result())
		}
		Rank(results)
		return results
	}

	vec := make([]*vectorEntry, len(vector))
	owner := make(map[string][]int)
	for i, hit := range vector {
		vec[i] = newVectorEntry(hit)
		for _, id := range hit.BlockIDs {
			owner[id] = append(owner[id], i)
		}
	}

	seen := make(map[string]bool, len(fullText))
	for _, hit := range fullText {
		if seen[hit.BlockID] {
			continue
		}
		seen[hit.BlockID] = true

		covered := false
		for _, i := range owner[hit.BlockID] {
			if vec[i].hit.Score >= FullTextScore {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		for _, i := range owner[hit.BlockID] {
			vec[i].remove(hit.BlockID)
		}
		results = append(results, fullTextResult(hit))
	}

	for _, e := range vec {
		if len(e.ids) > 0 {
			results = append(results, e.result())
		}
	}

	Rank(results)
	return results
}

// Rank sorts results by descending score, then full-text before vector hits, then
// by first block id, then by chunk id.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.FTS != b.FTS {
			return a.FTS
		}
		if fa, fb := firstBlock(a), firstBlock(b); fa != fb {
			return fa < fb
		}
		return a.ChunkID < b.ChunkID
	})
}

func fullTextResult(hit FullTextHit) Result {
	return Result{
		BlockIDs: []string{hit.BlockID},
		Content:  hit.Content,
		Score:    FullTextScore,
		FTS:      true,
	}
}

// vectorEntry tracks the blocks of a vector hit that survive deduplication.
type vectorEntry struct {
	hit      VectorHit
	ids      []string
	texts    []string
	resolved bool
}

func newVectorEntry(hit VectorHit) *vectorEntry {
	e := &vectorEntry{hit: hit, ids: append([]string(nil), hit.BlockIDs...)}
	if len(hit.Blocks) == len(hit.BlockIDs) && len(hit.Blocks) > 0 {
		e.texts = append([]string(nil), hit.Blocks...)
		e.resolved = true
	}
	return e
}

func (e *vectorEntry) remove(blockID string) {
	ids, texts := e.ids[:0], e.texts[:0]
	for i, id := range e.ids {
		if id == blockID {
			continue
		}
		ids = append(ids, id)
		if e.resolved {
			texts = append(texts, e.texts[i])
		}
	}
	e.ids = ids
	if e.resolved {
		e.texts = texts
	}
}

func (e *vectorEntry) result() Result {
	content := e.hit.Content
	if e.resolved {
		content = strings.Join(e.texts, "\n")
	}
	return Result{
		ChunkID:  e.hit.ChunkID,
		BlockIDs: e.ids,
		Content:  content,
		Score:    e.hit.Score,
	}
}

func firstBlock(r Result) string {
	if len(r.BlockIDs) == 0 {
		return ""
	}
	return r.BlockIDs[0]
}
