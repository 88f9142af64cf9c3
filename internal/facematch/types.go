// Package facematch decides whether a fresh face embedding matches an enrolled identity.
// Registration and identification both call Match, each with its own Policy.
package facematch

// Candidate is one enrolled identity offered to Match.
type Candidate struct {
	ID        int64
	Label     string
	Embedding []float32
}

// Policy is a named distance tolerance. A candidate is a hit when its
// Euclidean distance to the query is less than or equal to Tolerance.
type Policy struct {
	Name      string
	Tolerance float64
}

const (
	PolicyDedup    = "dedup"
	PolicyIdentify = "identify"
)

// DedupPolicy is used at registration time to block a second enrollment of the same face.
func DedupPolicy(tolerance float64) Policy {
	return Policy{Name: PolicyDedup, Tolerance: tolerance}
}

// IdentifyPolicy is used at login time.
func IdentifyPolicy(tolerance float64) Policy {
	return Policy{Name: PolicyIdentify, Tolerance: tolerance}
}

// Result describes the winning candidate.
type Result struct {
	ID       int64
	Label    string
	Distance float64
}
