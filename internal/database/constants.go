package database

// DefaultEmbeddingDim is the dimension of dlib-style face encodings.
const DefaultEmbeddingDim = 128

// HNSW index parameters for roster audits
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100

	// HNSWAuditNeighbors is how many neighbors each identity is compared against
	// during an audit. Exact distances are recomputed for all of them.
	HNSWAuditNeighbors = 8
)

// DefaultEventLimit caps history listings when the caller passes no limit.
const DefaultEventLimit = 50
