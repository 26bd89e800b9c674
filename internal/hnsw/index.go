// Package hnsw implements a hierarchical navigable small-world graph over chunk
// embeddings: construction, a greedy single-frontier query and snapshot codecs.
package hnsw

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrDuplicateID is returned when two vectors share an id.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrInvalidSnapshot is returned when a decoded snapshot violates the graph invariants.
	ErrInvalidSnapshot = errors.New("invalid index snapshot")
)

// Config configures index construction.
type Config struct {
	M              int     // Max neighbors per node per level (default 100)
	EfConstruction int     // Candidate breadth while inserting (default 16)
	Metric         Metric  // Similarity metric (default cosine)
	LevelMult      float64 // Level multiplier (default 1/ln(M))
}

// DefaultConfig returns the construction parameters used for notebook indexes.
func DefaultConfig() Config {
	return Config{M: 100, EfConstruction: 16, Metric: MetricCosine}
}

func (c Config) withDefaults() Config {
	if c.M <= 1 {
		c.M = 100
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = 16
	}
	if c.Metric == "" {
		c.Metric = MetricCosine
	}
	if c.LevelMult <= 0 {
		c.LevelMult = 1.0 / math.Log(float64(c.M))
	}
	return c
}

// minLevelProb is the smallest level probability that still counts as a level.
const minLevelProb = 1e-9

// topLevel returns the highest level the geometric level distribution for levelMult
// assigns at least minLevelProb, and never less than 1.
func topLevel(levelMult float64) int {
	if levelMult <= 0 {
		return 1
	}
	level := 0
	for math.Exp(-float64(level+1)/levelMult)*(1-math.Exp(-1/levelMult)) >= minLevelProb {
		level++
	}
	return max(level, 1)
}

// Pair is an embedded chunk ready for insertion.
type Pair struct {
	ID     int
	Vector []float32
}

// Node is a graph vertex. Neighbors[l] holds the node's links at level l for every
// level from 0 to Level.
type Node struct {
	ID        int
	Vector    []float32
	Level     int
	Neighbors [][]int
}

// Index is an HNSW graph. It is immutable once built, so concurrent searches are safe.
type Index struct {
	nodes          map[int]*Node
	entryPointID   int
	levelMax       int
	m              int
	efConstruction int
	metric         Metric
	dimension      int

	nodeLevel int
}

func newIndex(cfg Config) *Index {
	cfg = cfg.withDefaults()
	return &Index{
		nodes:          make(map[int]*Node),
		entryPointID:   -1,
		m:              cfg.M,
		efConstruction: cfg.EfConstruction,
		metric:         cfg.Metric,
		nodeLevel:      topLevel(cfg.LevelMult),
	}
}

// Build inserts every pair, in order, into a new index. Every node is placed on the
// top level of the distribution for M, so each node has links below its own level
// and the greedy search can expand from any node it reaches.
func Build(pairs []Pair, cfg Config) (*Index, error) {
	if _, err := ParseMetric(string(cfg.withDefaults().Metric)); err != nil {
		return nil, err
	}
	idx := newIndex(cfg)
	for _, p := range pairs {
		if err := idx.insert(p.ID, p.Vector, idx.nodeLevel); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Len returns the number of nodes.
func (idx *Index) Len() int { return len(idx.nodes) }

// EntryPointID returns the entry point id, or -1 for an empty index.
func (idx *Index) EntryPointID() int { return idx.entryPointID }

// LevelMax returns the highest level of any node.
func (idx *Index) LevelMax() int { return idx.levelMax }

// Metric returns the similarity metric.
func (idx *Index) Metric() Metric { return idx.metric }

// Dimension returns the vector length, 0 for an empty index.
func (idx *Index) Dimension() int { return idx.dimension }

// Node returns the node with the given id.
func (idx *Index) Node(id int) (*Node, bool) {
	n, ok := idx.nodes[id]
	return n, ok
}

// IDs returns all node ids in ascending order.
func (idx *Index) IDs() []int {
	ids := make([]int, 0, len(idx.nodes))
	for id := range idx.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (idx *Index) insert(id int, vec []float32, level int) error {
	if _, exists := idx.nodes[id]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: node %d has an empty vector", ErrDimensionMismatch, id)
	}
	if idx.dimension == 0 {
		idx.dimension = len(vec)
	} else if len(vec) != idx.dimension {
		return fmt.Errorf("%w: node %d has %d, index has %d", ErrDimensionMismatch, id, len(vec), idx.dimension)
	}

	n := &Node{ID: id, Vector: vec, Level: level, Neighbors: make([][]int, level+1)}
	for l := range n.Neighbors {
		n.Neighbors[l] = make([]int, 0)
	}
	idx.nodes[id] = n

	if idx.entryPointID < 0 {
		idx.entryPointID = id
		idx.levelMax = level
		return nil
	}

	// Descend greedily through the levels above the new node.
	curr := idx.entryPointID
	for l := idx.levelMax; l > level; l-- {
		curr = idx.closestAtLevel(vec, curr, l)
	}

	for l := min(level, idx.levelMax); l >= 0; l-- {
		nearest := idx.searchLayer(vec, curr, idx.efConstruction, l, id)
		idx.connect(n, nearest, l)
		if len(nearest) > 0 {
			curr = nearest[0].id
		}
	}

	if level > idx.levelMax {
		idx.levelMax = level
		idx.entryPointID = id
	}
	return nil
}

// closestAtLevel hill-climbs from entry to the most similar node reachable at level.
func (idx *Index) closestAtLevel(query []float32, entry, level int) int {
	curr := entry
	currScore := idx.metric.Similarity(query, idx.nodes[curr].Vector)
	for {
		changed := false
		for _, nb := range idx.nodes[curr].Neighbors[level] {
			if s := idx.metric.Similarity(query, idx.nodes[nb].Vector); s > currScore {
				curr, currScore = nb, s
				changed = true
			}
		}
		if !changed {
			return curr
		}
	}
}

// searchLayer collects up to ef nodes most similar to query at level, best first.
// exclude is skipped so a node never links to itself.
func (idx *Index) searchLayer(query []float32, entry, ef, level, exclude int) []candidate {
	visited := map[int]bool{entry: true, exclude: true}
	candidates := newFrontier(false, ef)
	results := newFrontier(true, ef+1)

	start := candidate{id: entry, score: idx.metric.Similarity(query, idx.nodes[entry].Vector)}
	candidates.push(start)
	results.push(start)

	for candidates.len() > 0 {
		curr := candidates.pop()
		if results.len() >= ef && curr.score < results.top().score {
			break
		}
		node := idx.nodes[curr.id]
		if level >= len(node.Neighbors) {
			continue
		}
		for _, nb := range node.Neighbors[level] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			c := candidate{id: nb, score: idx.metric.Similarity(query, idx.nodes[nb].Vector)}
			if results.len() < ef || better(c, results.top()) {
				candidates.push(c)
				results.push(c)
				if results.len() > ef {
					results.pop()
				}
			}
		}
	}

	out := make([]candidate, results.len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = results.pop()
	}
	return out
}

// connect links n to up to M of the nearest candidates at level, in both directions.
func (idx *Index) connect(n *Node, nearest []candidate, level int) {
	if len(nearest) > idx.m {
		nearest = nearest[:idx.m]
	}
	for _, c := range nearest {
		n.Neighbors[level] = append(n.Neighbors[level], c.id)
		other := idx.nodes[c.id]
		if level >= len(other.Neighbors) {
			continue
		}
		other.Neighbors[level] = append(other.Neighbors[level], n.ID)
		if len(other.Neighbors[level]) > idx.m {
			idx.prune(other, level)
		}
	}
}

// prune keeps the M neighbors of n most similar to it at level.
func (idx *Index) prune(n *Node, level int) {
	links := make([]candidate, len(n.Neighbors[level]))
	for i, nb := range n.Neighbors[level] {
		links[i] = candidate{id: nb, score: idx.metric.Similarity(n.Vector, idx.nodes[nb].Vector)}
	}
	sort.Slice(links, func(i, j int) bool { return better(links[i], links[j]) })

	kept := make([]int, idx.m)
	for i := range kept {
		kept[i] = links[i].id
	}
	n.Neighbors[level] = kept
}
