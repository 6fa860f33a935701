package enums

import "testing"

func TestDisputeStatusTerminal(t *testing.T) {
	cases := map[DisputeStatus]bool{
		DisputeStatusPending:     false,
		DisputeStatusUnderReview: false,
		DisputeStatusResolved:    true,
		DisputeStatusRejected:    true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s: expected terminal=%v got %v", status, want, got)
		}
	}
}

func TestParseDisputeStatus(t *testing.T) {
	if _, err := ParseDisputeStatus("UnderReview"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseDisputeStatus("underreview"); err == nil {
		t.Fatal("expected case-sensitive parse to reject lowercase")
	}
}

func TestDisputeEventRoutingKeys(t *testing.T) {
	cases := map[DisputeEventAction]string{
		DisputeEventCreated:       "dispute.created",
		DisputeEventResolved:      "dispute.resolved",
		DisputeEventStatusUpdated: "dispute.status_updated",
	}
	for action, want := range cases {
		if got := action.RoutingKey(); got != want {
			t.Fatalf("expected %s got %s", want, got)
		}
		eventType, err := OutboxEventForAction(action)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !eventType.IsValid() {
			t.Fatalf("expected valid outbox event for %s", action)
		}
	}
}

func TestTransactionStatusLabels(t *testing.T) {
	cases := map[TransactionStatus]string{
		1:  "Pending",
		2:  "Success",
		3:  "Failed",
		4:  "Refunded",
		5:  "Disputed",
		0:  "Unknown",
		42: "Unknown",
	}
	for code, want := range cases {
		if got := code.Label(); got != want {
			t.Fatalf("code %d: expected %s got %s", code, want, got)
		}
	}
}

func TestParseRoleIsCaseInsensitive(t *testing.T) {
	role, err := ParseRole(" admin ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != RoleAdmin {
		t.Fatalf("expected ADMIN got %s", role)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestParseAdminActionType(t *testing.T) {
	if _, err := ParseAdminActionType("ResolveDispute"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseAdminActionType("Nope"); err == nil {
		t.Fatal("expected invalid action type to fail")
	}
}
