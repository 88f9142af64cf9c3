package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kozaktomas/library-kiosk/internal/database"
)

// encodeEmbedding stores an embedding as a JSON list in a TEXT column, which
// SQLite and MariaDB read back identically. A nil embedding maps to SQL NULL.
func encodeEmbedding(embedding []float32) (any, error) {
	if embedding == nil {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return string(data), nil
}

// decodeEmbedding rejects anything that is not a complete vector of dim components.
func decodeEmbedding(data []byte, dim int) ([]float32, error) {
	if data == nil {
		return nil, nil
	}
	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrCorruptEmbedding, err)
	}
	if err := database.CheckDimension(embedding, dim); err != nil {
		return nil, fmt.Errorf("%w: got %d components", database.ErrCorruptEmbedding, len(embedding))
	}
	return embedding, nil
}

func toUnixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
