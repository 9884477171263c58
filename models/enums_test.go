package models

import "testing"

func TestFeeStatusTransitions(t *testing.T) {
	cases := []struct {
		from    FeeStatus
		to      FeeStatus
		allowed bool
	}{
		{FeeStatusDraft, FeeStatusSent, true},
		{FeeStatusSent, FeeStatusPaid, true},
		{FeeStatusSent, FeeStatusOverdue, true},
		{FeeStatusOverdue, FeeStatusPaid, true},

		{FeeStatusDraft, FeeStatusPaid, false},
		{FeeStatusSent, FeeStatusDraft, false},
		{FeeStatusPaid, FeeStatusDraft, false},
		{FeeStatusPaid, FeeStatusOverdue, false},
		{FeeStatusOverdue, FeeStatusSent, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Fatalf("%s -> %s: got %v, expected %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestTicketStatusParse(t *testing.T) {
	var s TicketStatus
	if err := s.Parse("in_progress"); err != nil || s != TicketStatusInProgress {
		t.Fatalf("got %q, err %v", s, err)
	}
	if err := s.Parse("bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestClientTypeValid(t *testing.T) {
	if !ClientTypeInternal.Valid() || !ClientTypeExternal.Valid() {
		t.Fatal("known types must be valid")
	}
	if ClientType("other").Valid() {
		t.Fatal("unknown type must be invalid")
	}
}
