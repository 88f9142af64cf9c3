package facematch

import (
	"math"

	"github.com/kozaktomas/library-kiosk/internal/database"
)

// Nearest returns the candidate closest to query. Exact distance ties go to the
// earlier candidate, so callers passing a roster ordered by id get stable results.
// Candidates of a different dimension are skipped. ok is false when nothing is comparable.
func Nearest(query []float32, candidates []Candidate) (best Result, ok bool) {
	best.Distance = math.Inf(1)
	for _, c := range candidates {
		d := database.EuclideanDistance(query, c.Embedding)
		if math.IsInf(d, 1) || math.IsNaN(d) {
			continue
		}
		if d < best.Distance {
			best = Result{ID: c.ID, Label: c.Label, Distance: d}
			ok = true
		}
	}
	return best, ok
}

// Match returns the nearest candidate if it lies within the policy tolerance.
// The boundary is inclusive. A NaN tolerance matches nothing.
func Match(query []float32, candidates []Candidate, policy Policy) (Result, bool) {
	best, ok := Nearest(query, candidates)
	if !ok || !(best.Distance <= policy.Tolerance) {
		return Result{}, false
	}
	return best, true
}

// FromRoster converts store roster entries to match candidates, preserving order.
func FromRoster(roster []database.RosterEntry) []Candidate {
	candidates := make([]Candidate, len(roster))
	for i, entry := range roster {
		candidates[i] = Candidate{ID: entry.ID, Label: entry.Name, Embedding: entry.Embedding}
	}
	return candidates
}
