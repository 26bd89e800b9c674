package hnsw

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotFormatVersion is bumped whenever the snapshot layout changes.
const snapshotFormatVersion = "1.0.0"

// Snapshot is the serialized form of an index. The JSON rendition is the durable
// per-notebook blob; the msgpack rendition backs the local cache.
type Snapshot struct {
	Version        string         `json:"version" msgpack:"version"`
	M              int            `json:"M" msgpack:"m"`
	EfConstruction int            `json:"efConstruction" msgpack:"ef_construction"`
	LevelMax       int            `json:"levelMax" msgpack:"level_max"`
	EntryPointID   int            `json:"entryPointId" msgpack:"entry_point_id"`
	Metric         Metric         `json:"metric" msgpack:"metric"`
	Dimension      int            `json:"dimension" msgpack:"dimension"`
	Nodes          []NodeSnapshot `json:"nodes" msgpack:"nodes"`
}

// NodeSnapshot is one serialized node.
type NodeSnapshot struct {
	ID        int       `json:"id" msgpack:"id"`
	Level     int       `json:"level" msgpack:"level"`
	Vector    []float32 `json:"vector" msgpack:"vector"`
	Neighbors [][]int   `json:"neighbors" msgpack:"neighbors"`
}

// Snapshot captures the index with nodes in ascending id order and adjacency in
// insertion order, so encoding the same index always yields the same bytes.
func (idx *Index) Snapshot() Snapshot {
	snap := Snapshot{
		Version:        snapshotFormatVersion,
		M:              idx.m,
		EfConstruction: idx.efConstruction,
		LevelMax:       idx.levelMax,
		EntryPointID:   idx.entryPointID,
		Metric:         idx.metric,
		Dimension:      idx.dimension,
		Nodes:          make([]NodeSnapshot, 0, len(idx.nodes)),
	}
	for _, id := range idx.IDs() {
		n := idx.nodes[id]
		neighbors := make([][]int, len(n.Neighbors))
		for l, links := range n.Neighbors {
			neighbors[l] = append([]int{}, links...)
		}
		snap.Nodes = append(snap.Nodes, NodeSnapshot{
			ID:        n.ID,
			Level:     n.Level,
			Vector:    append([]float32(nil), n.Vector...),
			Neighbors: neighbors,
		})
	}
	return snap
}

// FromSnapshot reconstructs an index, validating the graph invariants.
func FromSnapshot(snap Snapshot) (*Index, error) {
	metric, err := ParseMetric(string(snap.Metric))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	idx := newIndex(Config{M: snap.M, EfConstruction: snap.EfConstruction, Metric: metric})
	idx.dimension = snap.Dimension

	if len(snap.Nodes) == 0 {
		return idx, nil
	}

	levelMax := 0
	for _, ns := range snap.Nodes {
		if _, dup := idx.nodes[ns.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %d", ErrInvalidSnapshot, ns.ID)
		}
		if ns.Level < 0 || len(ns.Neighbors) != ns.Level+1 {
			return nil, fmt.Errorf("%w: node %d has level %d but %d neighbor levels", ErrInvalidSnapshot, ns.ID, ns.Level, len(ns.Neighbors))
		}
		if len(ns.Vector) != snap.Dimension {
			return nil, fmt.Errorf("%w: node %d vector has %d dimensions, want %d", ErrInvalidSnapshot, ns.ID, len(ns.Vector), snap.Dimension)
		}
		neighbors := make([][]int, len(ns.Neighbors))
		for l, links := range ns.Neighbors {
			neighbors[l] = append([]int{}, links...)
		}
		idx.nodes[ns.ID] = &Node{ID: ns.ID, Vector: ns.Vector, Level: ns.Level, Neighbors: neighbors}
		levelMax = max(levelMax, ns.Level)
	}

	for _, n := range idx.nodes {
		for _, links := range n.Neighbors {
			for _, nb := range links {
				if _, ok := idx.nodes[nb]; !ok {
					return nil, fmt.Errorf("%w: node %d links to unknown node %d", ErrInvalidSnapshot, n.ID, nb)
				}
			}
		}
	}

	entry, ok := idx.nodes[snap.EntryPointID]
	if !ok || entry.Level != levelMax || snap.LevelMax != levelMax {
		return nil, fmt.Errorf("%w: entry point %d does not hold level %d", ErrInvalidSnapshot, snap.EntryPointID, levelMax)
	}
	idx.entryPointID = snap.EntryPointID
	idx.levelMax = levelMax
	return idx, nil
}

// MarshalJSON encodes the index snapshot as JSON.
func (idx *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(idx.Snapshot())
}

// DecodeJSON rebuilds an index from its JSON snapshot.
func DecodeJSON(data []byte) (*Index, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode index snapshot: %w", err)
	}
	return FromSnapshot(snap)
}

// MarshalMsgpack encodes the index snapshot as msgpack.
func (idx *Index) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	snap := idx.Snapshot()
	if err := msgpack.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("failed to encode index snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMsgpack rebuilds an index from its msgpack snapshot.
func DecodeMsgpack(data []byte) (*Index, error) {
	var snap Snapshot
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode index snapshot: %w", err)
	}
	return FromSnapshot(snap)
}
