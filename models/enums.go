package models

import "errors"

type ClientType string

const (
	ClientTypeInternal ClientType = "internal"
	ClientTypeExternal ClientType = "external"
)

func (t ClientType) Valid() bool {
	return t == ClientTypeInternal || t == ClientTypeExternal
}

// FeeBasis is the justification for this year's fee change:
// consumer-price-index linked, a real cost adjustment, or a pre-agreed figure.
type FeeBasis string

const (
	FeeBasisIndex  FeeBasis = "index"
	FeeBasisReal   FeeBasis = "real"
	FeeBasisAgreed FeeBasis = "agreed"
)

type FeeStatus string

const (
	FeeStatusDraft   FeeStatus = "draft"
	FeeStatusSent    FeeStatus = "sent"
	FeeStatusPaid    FeeStatus = "paid"
	FeeStatusOverdue FeeStatus = "overdue"
)

// allowed fee status transitions (append-only workflow, no way back to draft)
var feeStatusTransitions = map[FeeStatus][]FeeStatus{
	FeeStatusDraft:   {FeeStatusSent},
	FeeStatusSent:    {FeeStatusPaid, FeeStatusOverdue},
	FeeStatusOverdue: {FeeStatusPaid},
}

func (s FeeStatus) CanTransitionTo(next FeeStatus) bool {
	for _, allowed := range feeStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type LetterStatus string

const (
	LetterStatusDraft     LetterStatus = "draft"
	LetterStatusSentEmail LetterStatus = "sent_email"
)

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

func (s *TicketStatus) Parse(str string) error {
	switch TicketStatus(str) {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		*s = TicketStatus(str)
		return nil
	default:
		return errors.New("invalid ticket status")
	}
}

type DeclarationStatus string

const (
	DeclarationStatusPending   DeclarationStatus = "pending"
	DeclarationStatusRequested DeclarationStatus = "requested"
	DeclarationStatusSubmitted DeclarationStatus = "submitted"
)

type UserRole string

const (
	UserRoleAdmin      UserRole = "A"
	UserRoleOwner      UserRole = "O"
	UserRoleAccountant UserRole = "C"
)
