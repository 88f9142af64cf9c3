package circulation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/kozaktomas/library-kiosk/internal/facematch"
	"github.com/kozaktomas/library-kiosk/internal/metrics"
	"github.com/rs/zerolog"
)

// RegistrationService enrolls new identities. A face that matches an existing
// enrollment under the dedup policy is rejected whatever name is submitted.
type RegistrationService struct {
	store       database.RecordWriter
	policy      facematch.Policy
	dim         int
	uniqueNames bool
	metrics     *metrics.Metrics
	log         zerolog.Logger

	// mu serializes the roster check and the insert within this process.
	mu sync.Mutex
}

// NewRegistrationService creates a registration service.
func NewRegistrationService(store database.RecordWriter, policy facematch.Policy, dim int, uniqueNames bool, m *metrics.Metrics, logger zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		store:       store,
		policy:      policy,
		dim:         dim,
		uniqueNames: uniqueNames,
		metrics:     m,
		log:         logger.With().Str("component", "registration").Logger(),
	}
}

// Register enrolls name with embedding unless the face or the name is already known.
func (s *RegistrationService) Register(ctx context.Context, name string, embedding []float32) (RegistrationResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RegistrationResult{}, ErrEmptyName
	}
	if len(embedding) == 0 {
		return RegistrationResult{}, ErrNoBiometricSample
	}
	if err := database.CheckEmbedding(embedding, s.dim); err != nil {
		return RegistrationResult{}, fmt.Errorf("register %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.store.ListEmbeddings(ctx)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("list roster: %w", err)
	}

	candidates := facematch.FromRoster(roster)
	if nearest, ok := facematch.Nearest(embedding, candidates); ok {
		s.metrics.MatchDistance(s.policy.Name, nearest.Distance)
	}
	if match, ok := facematch.Match(embedding, candidates, s.policy); ok {
		result := RegistrationResult{
			Status:      RegistrationRejected,
			Reason:      ReasonDuplicateBiometric,
			MatchedName: match.Label,
			Distance:    match.Distance,
		}
		s.log.Info().
			Str("name", name).
			Str("matched_name", match.Label).
			Float64("distance", match.Distance).
			Msg("registration rejected: face already enrolled")
		s.metrics.Registration(result.Outcome())
		return result, nil
	}

	if s.uniqueNames {
		taken, err := s.nameTaken(ctx, name)
		if err != nil {
			return RegistrationResult{}, err
		}
		if taken != "" {
			result := RegistrationResult{Status: RegistrationRejected, Reason: ReasonDuplicateName, MatchedName: taken}
			s.log.Info().Str("name", name).Str("matched_name", taken).Msg("registration rejected: name taken")
			s.metrics.Registration(result.Outcome())
			return result, nil
		}
	}

	id, err := s.store.Insert(ctx, name, embedding)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("insert %q: %w", name, err)
	}

	s.log.Info().Int64("id", id).Str("name", name).Msg("identity registered")
	result := RegistrationResult{Status: RegistrationAdmitted, ID: id}
	s.metrics.Registration(result.Outcome())
	return result, nil
}

// nameTaken returns the stored name equal to name after normalization, or "".
func (s *RegistrationService) nameTaken(ctx context.Context, name string) (string, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}
	normalized := facematch.NormalizeName(name)
	for _, rec := range records {
		if facematch.NormalizeName(rec.Name) == normalized {
			return rec.Name, nil
		}
	}
	return "", nil
}
