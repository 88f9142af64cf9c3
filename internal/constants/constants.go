// Package constants provides shared constants for the HTTP and CLI surfaces.
package constants

import "time"

// Request limits
const (
	// MaxUploadSize is the maximum face or barcode photo upload in bytes (10MB)
	MaxUploadSize = 10 << 20

	// MaxJSONBodySize caps JSON request bodies. A 128-d embedding is well under 4KB.
	MaxJSONBodySize = 1 << 20

	// MaxHistoryLimit caps the number of circulation events a single request may ask for
	MaxHistoryLimit = 500
)

// Server timeouts
const (
	RequestTimeout  = 60 * time.Second
	ReadTimeout     = 30 * time.Second
	WriteTimeout    = 90 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 30 * time.Second
)
