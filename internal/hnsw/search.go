package hnsw

import (
	"fmt"
	"sort"
)

// Result is a scored search hit. Score is in the index metric's similarity units.
type Result struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// Search walks the graph from the entry point with a single greedy frontier and
// returns at most k hits scoring above zero and at least minScore, best first.
//
// Each popped candidate is scored and recorded. Level-0 candidates are not expanded.
// Otherwise the working level drops to min(level, candidate.Level-1) and every
// unvisited neighbor from that level down to 0 joins the frontier. The working level
// never rises, so recall depends on the connectivity built with M and efConstruction.
func (idx *Index) Search(query []float32, k int, minScore float64) ([]Result, error) {
	if k <= 0 || len(idx.nodes) == 0 {
		return []Result{}, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), idx.dimension)
	}

	visited := make(map[int]bool)
	front := newFrontier(false, idx.m)
	front.push(candidate{id: idx.entryPointID, score: idx.metric.Similarity(query, idx.nodes[idx.entryPointID].Vector)})
	level := idx.levelMax

	results := make([]Result, 0, k)
	for front.len() > 0 && len(results) < k {
		curr := front.pop()
		if visited[curr.id] {
			continue
		}
		visited[curr.id] = true

		node := idx.nodes[curr.id]
		if curr.score > 0 && curr.score >= minScore {
			results = append(results, Result{ID: curr.id, Score: curr.score})
		}

		if node.Level == 0 {
			continue
		}
		level = min(level, node.Level-1)
		for l := level; l >= 0; l-- {
			for _, nb := range node.Neighbors[l] {
				if visited[nb] {
					continue
				}
				front.push(candidate{id: nb, score: idx.metric.Similarity(query, idx.nodes[nb].Vector)})
			}
		}
	}

	SortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// SortResults orders by descending score, breaking ties by ascending id.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}
