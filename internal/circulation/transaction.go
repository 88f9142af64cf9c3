package circulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/kozaktomas/library-kiosk/internal/events"
	"github.com/kozaktomas/library-kiosk/internal/metrics"
	"github.com/rs/zerolog"
)

// TransactionEngine applies issue/return toggles to an identity's loan.
// An identity holds at most one item: a FREE identity borrows the scanned item,
// a HOLDING identity returns it by scanning the same code, any other code is refused.
type TransactionEngine struct {
	store         database.RecordWriter
	publisher     events.Publisher
	minCodeLength int
	locks         *keyedMutex
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

// NewTransactionEngine creates a transaction engine. A nil publisher disables publishing.
func NewTransactionEngine(store database.RecordWriter, publisher events.Publisher, minCodeLength int, m *metrics.Metrics, logger zerolog.Logger) *TransactionEngine {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &TransactionEngine{
		store:         store,
		publisher:     publisher,
		minCodeLength: minCodeLength,
		locks:         newKeyedMutex(),
		metrics:       m,
		log:           logger.With().Str("component", "transaction").Logger(),
	}
}

// MaxItemCodeLength is the widest item code the stores accept, in characters.
const MaxItemCodeLength = 255

// NormalizeItemCode trims whitespace and enforces the length bounds.
func (e *TransactionEngine) NormalizeItemCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	n := utf8.RuneCountInString(code)
	if n < e.minCodeLength {
		return "", fmt.Errorf("%w: %q is shorter than %d characters", ErrInvalidItemCode, code, e.minCodeLength)
	}
	if n > MaxItemCodeLength {
		return "", fmt.Errorf("%w: code is longer than %d characters", ErrInvalidItemCode, MaxItemCodeLength)
	}
	return code, nil
}

// Submit issues or returns itemCode for the identity called name.
// Business refusals are reported in the result. Errors are validation failures
// or storage faults, in which case the stored loan is unchanged.
func (e *TransactionEngine) Submit(ctx context.Context, name, itemCode string) (TransactionResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TransactionResult{}, ErrEmptyName
	}
	code, err := e.NormalizeItemCode(itemCode)
	if err != nil {
		return TransactionResult{}, err
	}

	unlock := e.locks.Lock(name)
	defer unlock()

	result, err := e.submit(ctx, name, code)
	if err != nil {
		e.log.Error().Err(err).Str("name", name).Str("item", code).Msg("transaction failed")
		return TransactionResult{}, err
	}
	e.metrics.Transaction(result.Outcome())

	if result.Event != nil {
		if err := e.publisher.Publish(ctx, *result.Event); err != nil {
			e.metrics.PublishFailure()
			e.log.Error().Err(err).Str("event_id", result.Event.ID).Msg("failed to publish circulation event")
		}
	}
	return result, nil
}

func (e *TransactionEngine) submit(ctx context.Context, name, code string) (TransactionResult, error) {
	rec, err := e.store.GetByName(ctx, name)
	if err != nil {
		return TransactionResult{}, fmt.Errorf("get record %q: %w", name, err)
	}
	if rec == nil {
		// Callers only submit for names returned by Identify.
		e.log.Warn().Bool("contract_violation", true).Str("name", name).Msg("transaction for unknown identity")
		return rejectTransaction(ReasonUnknownIdentity), nil
	}
	if !rec.Loan.Valid() {
		return TransactionResult{}, fmt.Errorf("record %q has loan %v: %w", name, rec.Loan, database.ErrInvalidLoan)
	}

	var next database.Loan
	switch rec.Loan.State {
	case database.LoanFree:
		holder, err := e.store.FindHolder(ctx, code)
		if err != nil {
			return TransactionResult{}, fmt.Errorf("find holder of %q: %w", code, err)
		}
		if holder != nil {
			e.log.Info().Str("name", name).Str("item", code).Str("holder", holder.Name).Msg("item already on loan")
			return rejectTransaction(ReasonItemUnavailable), nil
		}
		next = database.Holding(code)
	case database.LoanHolding:
		if code != rec.Loan.Item {
			result := rejectTransaction(ReasonMustReturnHeldItemFirst)
			result.HeldItem = rec.Loan.Item
			return result, nil
		}
		next = database.Free()
	}

	ev, err := e.store.UpdateLoan(ctx, name, rec.Loan, next)
	if errors.Is(err, database.ErrItemHeld) {
		return rejectTransaction(ReasonItemUnavailable), nil
	}
	if err != nil {
		return TransactionResult{}, fmt.Errorf("update loan for %q: %w", name, err)
	}

	status := TransactionIssued
	if next.State == database.LoanFree {
		status = TransactionReturned
	}
	e.log.Info().Str("name", name).Str("item", code).Str("status", string(status)).Msg("circulation")
	return TransactionResult{Status: status, Item: code, Event: ev}, nil
}
