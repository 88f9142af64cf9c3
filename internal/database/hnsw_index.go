package database

import (
	"errors"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// NearPair is two enrolled identities closer than a tolerance.
type NearPair struct {
	A        RosterEntry `json:"a"`
	B        RosterEntry `json:"b"`
	Distance float64     `json:"distance"`
}

// HNSWIndex wraps the HNSW graph for roster neighbor search.
type HNSWIndex struct {
	graph   *hnsw.Graph[int64]
	entries map[int64]*RosterEntry // Maps HNSW node ID to roster entry
	mu      sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		entries: make(map[int64]*RosterEntry),
	}
}

func newEuclideanGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given roster.
func (h *HNSWIndex) Build(roster []RosterEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = make(map[int64]*RosterEntry, len(roster))
	if len(roster) == 0 {
		h.graph = nil
		return
	}

	g := newEuclideanGraph()
	for i := range roster {
		entry := &roster[i]
		if len(entry.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(entry.ID, entry.Embedding))
		h.entries[entry.ID] = entry
	}
	h.graph = g
}

// Search finds up to k approximate nearest neighbors of query.
// Distances are exact Euclidean distances, sorted ascending.
func (h *HNSWIndex) Search(query []float32, k int) ([]RosterEntry, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(query, k)
	results := make([]RosterEntry, 0, len(neighbors))
	for _, n := range neighbors {
		if entry, ok := h.entries[n.Key]; ok {
			results = append(results, *entry)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return EuclideanDistance(query, results[i].Embedding) < EuclideanDistance(query, results[j].Embedding)
	})

	distances := make([]float64, len(results))
	for i := range results {
		distances[i] = EuclideanDistance(query, results[i].Embedding)
	}
	return results, distances, nil
}

// Count returns the number of indexed entries.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// NearPairs returns every pair of indexed identities within tolerance of each other,
// checking each entry against its k nearest neighbors. Pairs are sorted by distance,
// then by the lower id.
func (h *HNSWIndex) NearPairs(tolerance float64, k int, progress func()) []NearPair {
	h.mu.RLock()
	ids := make([]int64, 0, len(h.entries))
	for id := range h.entries {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	seen := make(map[[2]int64]bool)
	var pairs []NearPair
	for _, id := range ids {
		h.mu.RLock()
		entry := h.entries[id]
		h.mu.RUnlock()

		// k+1 because the entry finds itself.
		neighbors, distances, err := h.Search(entry.Embedding, k+1)
		if progress != nil {
			progress()
		}
		if err != nil {
			continue
		}
		for i, n := range neighbors {
			if n.ID == entry.ID || distances[i] > tolerance {
				continue
			}
			key := [2]int64{min(n.ID, entry.ID), max(n.ID, entry.ID)}
			if seen[key] {
				continue
			}
			seen[key] = true
			a, b := *entry, n
			if b.ID < a.ID {
				a, b = b, a
			}
			pairs = append(pairs, NearPair{A: a, B: b, Distance: distances[i]})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Distance != pairs[j].Distance {
			return pairs[i].Distance < pairs[j].Distance
		}
		return pairs[i].A.ID < pairs[j].A.ID
	})
	return pairs
}
