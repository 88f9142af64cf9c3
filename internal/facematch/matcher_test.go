package facematch

import (
	"math"
	"testing"

	"github.com/kozaktomas/library-kiosk/internal/database"
)

// at returns a 2-d embedding at distance d from the origin along the x axis.
func at(d float32) []float32 {
	return []float32{d, 0}
}

var origin = []float32{0, 0}

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		tolerance  float64
		wantOK     bool
		wantLabel  string
	}{
		{
			name:       "nearest hit wins over first hit",
			candidates: []Candidate{{ID: 1, Label: "far", Embedding: at(0.39)}, {ID: 2, Label: "near", Embedding: at(0.30)}},
			tolerance:  0.45,
			wantOK:     true,
			wantLabel:  "near",
		},
		{
			name:       "exact tie goes to earlier candidate",
			candidates: []Candidate{{ID: 5, Label: "first", Embedding: at(0.2)}, {ID: 6, Label: "second", Embedding: []float32{0, 0.2}}},
			tolerance:  0.45,
			wantOK:     true,
			wantLabel:  "first",
		},
		{
			name:       "boundary is inclusive",
			candidates: []Candidate{{ID: 1, Label: "edge", Embedding: at(0.5)}},
			tolerance:  0.5,
			wantOK:     true,
			wantLabel:  "edge",
		},
		{
			name:       "just outside tolerance",
			candidates: []Candidate{{ID: 1, Label: "outside", Embedding: at(0.41)}},
			tolerance:  0.40,
			wantOK:     false,
		},
		{
			name:       "empty candidates",
			candidates: nil,
			tolerance:  0.45,
			wantOK:     false,
		},
		{
			name:       "dimension mismatch never hits",
			candidates: []Candidate{{ID: 1, Label: "3d", Embedding: []float32{0, 0, 0}}},
			tolerance:  10,
			wantOK:     false,
		},
		{
			name:       "NaN tolerance never hits",
			candidates: []Candidate{{ID: 1, Label: "same", Embedding: at(0)}},
			tolerance:  math.NaN(),
			wantOK:     false,
		},
		{
			name:       "NaN candidate skipped",
			candidates: []Candidate{{ID: 1, Label: "broken", Embedding: []float32{float32(math.NaN()), 0}}},
			tolerance:  10,
			wantOK:     false,
		},
		{
			name: "mismatched candidate skipped",
			candidates: []Candidate{
				{ID: 1, Label: "3d", Embedding: []float32{0, 0, 0}},
				{ID: 2, Label: "2d", Embedding: at(0.1)},
			},
			tolerance: 0.45,
			wantOK:    true,
			wantLabel: "2d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Match(origin, tt.candidates, DedupPolicy(tt.tolerance))
			if ok != tt.wantOK {
				t.Fatalf("Match() ok = %v, want %v (result %+v)", ok, tt.wantOK, got)
			}
			if ok && got.Label != tt.wantLabel {
				t.Errorf("Match() label = %q, want %q", got.Label, tt.wantLabel)
			}
		})
	}
}

func TestMatch_Deterministic(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Label: "a", Embedding: at(0.31)},
		{ID: 2, Label: "b", Embedding: at(0.30)},
		{ID: 3, Label: "c", Embedding: at(0.30)},
	}
	first, _ := Match(origin, candidates, IdentifyPolicy(0.4))
	for i := 0; i < 20; i++ {
		got, ok := Match(origin, candidates, IdentifyPolicy(0.4))
		if !ok || got != first {
			t.Fatalf("Match() run %d = %+v, want %+v", i, got, first)
		}
	}
	if first.ID != 2 {
		t.Errorf("Match() ID = %d, want 2", first.ID)
	}
}

func TestMatch_PoliciesDiffer(t *testing.T) {
	candidates := []Candidate{{ID: 1, Label: "close", Embedding: at(0.42)}}

	if _, ok := Match(origin, candidates, DedupPolicy(0.45)); !ok {
		t.Error("expected dedup policy to flag the candidate")
	}
	if _, ok := Match(origin, candidates, IdentifyPolicy(0.40)); ok {
		t.Error("expected identify policy to reject the candidate")
	}
}

func TestNearest(t *testing.T) {
	if _, ok := Nearest(origin, nil); ok {
		t.Error("Nearest(nil) ok = true, want false")
	}

	got, ok := Nearest(origin, []Candidate{{ID: 1, Label: "x", Embedding: at(3)}})
	if !ok {
		t.Fatal("Nearest() ok = false, want true")
	}
	if math.Abs(got.Distance-3) > 1e-6 {
		t.Errorf("Nearest() distance = %v, want 3", got.Distance)
	}
}

func TestFromRoster(t *testing.T) {
	roster := []database.RosterEntry{
		{ID: 3, Name: "Ada", Embedding: at(1)},
		{ID: 9, Name: "Grace", Embedding: at(2)},
	}
	got := FromRoster(roster)
	if len(got) != 2 || got[0].Label != "Ada" || got[1].ID != 9 {
		t.Errorf("FromRoster() = %+v", got)
	}
}
