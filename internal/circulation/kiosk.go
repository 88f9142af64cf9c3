package circulation

import (
	"context"
	"fmt"

	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/kozaktomas/library-kiosk/internal/events"
	"github.com/kozaktomas/library-kiosk/internal/facematch"
	"github.com/kozaktomas/library-kiosk/internal/metrics"
	"github.com/rs/zerolog"
)

// Kiosk is the surface the UI layer talks to. The UI keeps track of who is
// logged in and passes the identified name to Submit.
type Kiosk struct {
	store          database.RecordStore
	registration   *RegistrationService
	identification *IdentificationService
	transactions   *TransactionEngine
	dedup          facematch.Policy
}

// NewKiosk wires the services around one store.
func NewKiosk(store database.RecordStore, cfg *config.Config, publisher events.Publisher, m *metrics.Metrics, logger zerolog.Logger) *Kiosk {
	dedup := facematch.DedupPolicy(cfg.Matching.DedupTolerance)
	identify := facematch.IdentifyPolicy(cfg.Matching.IdentifyTolerance)
	dim := cfg.Matching.EmbeddingDim

	return &Kiosk{
		store:          store,
		registration:   NewRegistrationService(store, dedup, dim, cfg.Circulation.UniqueNames, m, logger),
		identification: NewIdentificationService(store, identify, dim, m, logger),
		transactions:   NewTransactionEngine(store, publisher, cfg.Circulation.MinItemCodeLength, m, logger),
		dedup:          dedup,
	}
}

func (k *Kiosk) Register(ctx context.Context, name string, embedding []float32) (RegistrationResult, error) {
	return k.registration.Register(ctx, name, embedding)
}

func (k *Kiosk) Identify(ctx context.Context, embedding []float32) (IdentificationResult, error) {
	return k.identification.Identify(ctx, embedding)
}

func (k *Kiosk) Submit(ctx context.Context, name, itemCode string) (TransactionResult, error) {
	return k.transactions.Submit(ctx, name, itemCode)
}

// ListRecords returns every identity ordered by id.
func (k *Kiosk) ListRecords(ctx context.Context) ([]database.IdentityRecord, error) {
	records, err := k.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// History returns the newest circulation events of an identity.
func (k *Kiosk) History(ctx context.Context, name string, limit int) ([]database.CirculationEvent, error) {
	history, err := k.store.ListEvents(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("list events for %q: %w", name, err)
	}
	return history, nil
}
