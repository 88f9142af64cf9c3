package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoanState is the circulation state of a single identity.
type LoanState string

const (
	LoanFree    LoanState = "FREE"
	LoanHolding LoanState = "HOLDING"
)

// Loan pairs a loan state with the held item code.
// Item is non-empty if and only if State is LoanHolding.
type Loan struct {
	State LoanState
	Item  string
}

// Free returns the initial loan state.
func Free() Loan {
	return Loan{State: LoanFree}
}

// Holding returns a loan holding the given item.
func Holding(item string) Loan {
	return Loan{State: LoanHolding, Item: item}
}

// Valid reports whether the loan satisfies the state/item pairing.
func (l Loan) Valid() bool {
	switch l.State {
	case LoanFree:
		return l.Item == ""
	case LoanHolding:
		return l.Item != ""
	default:
		return false
	}
}

func (l Loan) String() string {
	if l.State == LoanHolding {
		return fmt.Sprintf("HOLDING(%s)", l.Item)
	}
	return string(l.State)
}

// ItemOrNil maps an empty item to a SQL NULL.
func (l Loan) ItemOrNil() any {
	if l.Item == "" {
		return nil
	}
	return l.Item
}

// IdentityRecord is one enrolled person.
type IdentityRecord struct {
	ID        int64
	Name      string
	Embedding []float32 // nil until biometric enrollment completed, never updated afterwards
	Loan      Loan
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasEmbedding reports whether the record completed biometric enrollment.
func (r *IdentityRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// RosterEntry is a (name, embedding) pair used for matching.
type RosterEntry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"-"`
}

// CirculationAction is the kind of loan transition recorded in the journal.
type CirculationAction string

const (
	ActionIssue  CirculationAction = "issue"
	ActionReturn CirculationAction = "return"
)

// CirculationEvent is a committed issue or return.
type CirculationEvent struct {
	ID       string            `json:"id"`
	RecordID int64             `json:"record_id"`
	Name     string            `json:"name"`
	Action   CirculationAction `json:"action"`
	Item     string            `json:"item"`
	At       time.Time         `json:"at"`
}

// NewCirculationEvent builds the journal entry for a committed loan transition.
func NewCirculationEvent(recordID int64, name string, from, to Loan, at time.Time) CirculationEvent {
	ev := CirculationEvent{
		ID:       uuid.NewString(),
		RecordID: recordID,
		Name:     name,
		Action:   ActionReturn,
		Item:     from.Item,
		At:       at.UTC(),
	}
	if to.State == LoanHolding {
		ev.Action = ActionIssue
		ev.Item = to.Item
	}
	return ev
}
