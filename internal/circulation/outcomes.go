package circulation

import "github.com/kozaktomas/library-kiosk/internal/database"

// Reason explains a rejected registration or transaction.
type Reason string

const (
	ReasonDuplicateBiometric      Reason = "duplicate_biometric"
	ReasonDuplicateName           Reason = "duplicate_name"
	ReasonMustReturnHeldItemFirst Reason = "must_return_held_item_first"
	ReasonItemUnavailable         Reason = "item_unavailable"
	ReasonUnknownIdentity         Reason = "unknown_identity"
)

type RegistrationStatus string

const (
	RegistrationAdmitted RegistrationStatus = "admitted"
	RegistrationRejected RegistrationStatus = "rejected"
)

// RegistrationResult is either Admitted with the new record id or Rejected with a reason.
// For duplicate biometrics MatchedName and Distance identify the existing enrollment.
type RegistrationResult struct {
	Status      RegistrationStatus `json:"status"`
	ID          int64              `json:"id,omitempty"`
	Reason      Reason             `json:"reason,omitempty"`
	MatchedName string             `json:"matched_name,omitempty"`
	Distance    float64            `json:"distance,omitempty"`
}

func (r RegistrationResult) Admitted() bool { return r.Status == RegistrationAdmitted }

// Outcome is the metrics label for the result.
func (r RegistrationResult) Outcome() string {
	if r.Admitted() {
		return string(RegistrationAdmitted)
	}
	return string(r.Reason)
}

type IdentificationStatus string

const (
	Identified   IdentificationStatus = "identified"
	Unrecognized IdentificationStatus = "unrecognized"
	EmptyRoster  IdentificationStatus = "empty_roster"
)

// IdentificationResult carries the identified name, or the reason nobody was identified.
type IdentificationResult struct {
	Status   IdentificationStatus `json:"status"`
	Name     string               `json:"name,omitempty"`
	ID       int64                `json:"id,omitempty"`
	Distance float64              `json:"distance,omitempty"`
}

type TransactionStatus string

const (
	TransactionIssued   TransactionStatus = "issued"
	TransactionReturned TransactionStatus = "returned"
	TransactionRejected TransactionStatus = "rejected"
)

// TransactionResult is Issued, Returned or Rejected. HeldItem is set when the
// identity must return the item it holds first. Event is the journal entry of a
// committed transition.
type TransactionResult struct {
	Status   TransactionStatus          `json:"status"`
	Item     string                     `json:"item,omitempty"`
	Reason   Reason                     `json:"reason,omitempty"`
	HeldItem string                     `json:"held_item,omitempty"`
	Event    *database.CirculationEvent `json:"event,omitempty"`
}

// Outcome is the metrics label for the result.
func (r TransactionResult) Outcome() string {
	if r.Status == TransactionRejected {
		return string(r.Reason)
	}
	return string(r.Status)
}

func rejectTransaction(reason Reason) TransactionResult {
	return TransactionResult{Status: TransactionRejected, Reason: reason}
}
