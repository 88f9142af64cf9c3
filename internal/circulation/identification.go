package circulation

import (
	"context"
	"fmt"

	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/kozaktomas/library-kiosk/internal/facematch"
	"github.com/kozaktomas/library-kiosk/internal/metrics"
	"github.com/rs/zerolog"
)

// IdentificationService maps a fresh embedding to at most one enrolled identity.
// It never writes.
type IdentificationService struct {
	store   database.RosterReader
	policy  facematch.Policy
	dim     int
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewIdentificationService creates an identification service.
func NewIdentificationService(store database.RosterReader, policy facematch.Policy, dim int, m *metrics.Metrics, logger zerolog.Logger) *IdentificationService {
	return &IdentificationService{
		store:   store,
		policy:  policy,
		dim:     dim,
		metrics: m,
		log:     logger.With().Str("component", "identification").Logger(),
	}
}

// Identify returns Identified with the nearest enrolled name within tolerance,
// Unrecognized when nobody is close enough and EmptyRoster when nobody is enrolled.
func (s *IdentificationService) Identify(ctx context.Context, embedding []float32) (IdentificationResult, error) {
	if len(embedding) == 0 {
		return IdentificationResult{}, ErrNoBiometricSample
	}
	if err := database.CheckEmbedding(embedding, s.dim); err != nil {
		return IdentificationResult{}, fmt.Errorf("identify: %w", err)
	}

	roster, err := s.store.ListEmbeddings(ctx)
	if err != nil {
		return IdentificationResult{}, fmt.Errorf("list roster: %w", err)
	}

	result := s.identify(embedding, roster)
	s.metrics.Identification(string(result.Status))
	s.log.Debug().
		Str("status", string(result.Status)).
		Str("name", result.Name).
		Int("roster_size", len(roster)).
		Msg("identification")
	return result, nil
}

func (s *IdentificationService) identify(embedding []float32, roster []database.RosterEntry) IdentificationResult {
	if len(roster) == 0 {
		return IdentificationResult{Status: EmptyRoster}
	}

	candidates := facematch.FromRoster(roster)
	if nearest, ok := facematch.Nearest(embedding, candidates); ok {
		s.metrics.MatchDistance(s.policy.Name, nearest.Distance)
	}
	match, ok := facematch.Match(embedding, candidates, s.policy)
	if !ok {
		return IdentificationResult{Status: Unrecognized}
	}
	return IdentificationResult{Status: Identified, Name: match.Label, ID: match.ID, Distance: match.Distance}
}
