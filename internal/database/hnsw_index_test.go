package database

import (
	"testing"
)

func testRoster() []RosterEntry {
	return []RosterEntry{
		{ID: 1, Name: "Ada", Embedding: []float32{0, 0, 0}},
		{ID: 2, Name: "Grace", Embedding: []float32{10, 0, 0}},
		{ID: 3, Name: "Ada twin", Embedding: []float32{0.2, 0, 0}},
		{ID: 4, Name: "Linus", Embedding: []float32{0, 10, 0}},
		{ID: 5, Name: "Grace twin", Embedding: []float32{10, 0.3, 0}},
	}
}

func TestHNSWIndex_SearchNotInitialized(t *testing.T) {
	idx := NewHNSWIndex()
	if _, _, err := idx.Search([]float32{1, 2, 3}, 1); err == nil {
		t.Error("expected error searching an empty index")
	}
	idx.Build(nil)
	if idx.Count() != 0 {
		t.Errorf("Count() = %d, want 0", idx.Count())
	}
}

func TestHNSWIndex_Search(t *testing.T) {
	idx := NewHNSWIndex()
	idx.Build(testRoster())

	if idx.Count() != 5 {
		t.Fatalf("Count() = %d, want 5", idx.Count())
	}

	entries, distances, err := idx.Search([]float32{9.9, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Search() returned %d entries, want 2", len(entries))
	}
	if entries[0].Name != "Grace" {
		t.Errorf("nearest = %q, want Grace", entries[0].Name)
	}
	if distances[0] > distances[1] {
		t.Errorf("distances not ascending: %v", distances)
	}
}

func TestHNSWIndex_NearPairs(t *testing.T) {
	idx := NewHNSWIndex()
	idx.Build(testRoster())

	calls := 0
	pairs := idx.NearPairs(0.45, HNSWAuditNeighbors, func() { calls++ })

	if calls != 5 {
		t.Errorf("progress called %d times, want 5", calls)
	}
	if len(pairs) != 2 {
		t.Fatalf("NearPairs() returned %d pairs, want 2: %+v", len(pairs), pairs)
	}
	if pairs[0].A.ID != 1 || pairs[0].B.ID != 3 {
		t.Errorf("first pair = %d/%d, want 1/3", pairs[0].A.ID, pairs[0].B.ID)
	}
	if pairs[1].A.ID != 2 || pairs[1].B.ID != 5 {
		t.Errorf("second pair = %d/%d, want 2/5", pairs[1].A.ID, pairs[1].B.ID)
	}
	if pairs[0].Distance > pairs[1].Distance {
		t.Errorf("pairs not sorted by distance: %v, %v", pairs[0].Distance, pairs[1].Distance)
	}
}

func TestHNSWIndex_NearPairsNone(t *testing.T) {
	idx := NewHNSWIndex()
	idx.Build(testRoster())

	if pairs := idx.NearPairs(0.1, HNSWAuditNeighbors, nil); len(pairs) != 0 {
		t.Errorf("NearPairs(0.1) = %+v, want none", pairs)
	}
}
