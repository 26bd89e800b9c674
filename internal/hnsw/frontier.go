package hnsw

import "container/heap"

// candidate is a node id paired with its similarity to the current query.
type candidate struct {
	id    int
	score float64
}

// better reports whether a ranks ahead of b: higher score first, then lower id.
func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.id < b.id
}

// candidateHeap implements heap.Interface. With worstFirst unset the best candidate
// is on top (search frontier); with worstFirst set the worst one is (bounded result set).
type candidateHeap struct {
	items      []candidate
	worstFirst bool
}

func (h *candidateHeap) Len() int { return len(h.items) }

func (h *candidateHeap) Less(i, j int) bool {
	if h.worstFirst {
		return better(h.items[j], h.items[i])
	}
	return better(h.items[i], h.items[j])
}

func (h *candidateHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *candidateHeap) Push(x any) { h.items = append(h.items, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	last := len(h.items) - 1
	c := h.items[last]
	h.items = h.items[:last]
	return c
}

// frontier is a typed wrapper around candidateHeap.
type frontier struct {
	h candidateHeap
}

func newFrontier(worstFirst bool, capacity int) *frontier {
	return &frontier{h: candidateHeap{items: make([]candidate, 0, capacity), worstFirst: worstFirst}}
}

func (f *frontier) len() int { return f.h.Len() }

func (f *frontier) top() candidate { return f.h.items[0] }

func (f *frontier) push(c candidate) { heap.Push(&f.h, c) }

func (f *frontier) pop() candidate { return heap.Pop(&f.h).(candidate) }
