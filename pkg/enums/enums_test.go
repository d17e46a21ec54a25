package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("label_generated")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != OrderStatusLabelGenerated {
		t.Fatalf("unexpected status %s", got)
	}
	if _, err := ParseOrderStatus("shipped-ish"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestOrderStatusPredicates(t *testing.T) {
	tests := []struct {
		status   OrderStatus
		terminal bool
		awaiting bool
	}{
		{OrderStatusPendingShipment, false, true},
		{OrderStatusLabelGenerated, false, true},
		{OrderStatusInTransit, false, false},
		{OrderStatusCompleted, true, false},
		{OrderStatusCancelled, true, false},
	}
	for _, tt := range tests {
		if tt.status.IsTerminal() != tt.terminal {
			t.Fatalf("%s: expected terminal=%v", tt.status, tt.terminal)
		}
		if tt.status.AwaitingDevice() != tt.awaiting {
			t.Fatalf("%s: expected awaiting=%v", tt.status, tt.awaiting)
		}
	}
}

func TestAuditActionValidity(t *testing.T) {
	if !AuditActionVoidLabel.IsValid() {
		t.Fatal("void_label should be valid")
	}
	if AuditAction("drop_table").IsValid() {
		t.Fatal("unknown audit action should be invalid")
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	if !PaymentStatusPending.CanTransitionTo(PaymentStatusPaid) || !PaymentStatusPending.CanTransitionTo(PaymentStatusVoid) {
		t.Fatalf("pending should settle either way")
	}
	if PaymentStatusVoid.CanTransitionTo(PaymentStatusPaid) || PaymentStatusPaid.CanTransitionTo(PaymentStatusVoid) {
		t.Fatalf("settled payouts must not move")
	}
	if PaymentStatusPending.IsSettled() || !PaymentStatusPaid.IsSettled() || PaymentStatus("bogus").IsSettled() {
		t.Fatalf("unexpected IsSettled results")
	}
	if _, err := ParsePaymentStatus("refunded"); err == nil {
		t.Fatalf("expected unknown status error")
	}
}

func TestParsePaymentMethodNormalizes(t *testing.T) {
	got, err := ParsePaymentMethod("  PayPal ")
	if err != nil || got != PaymentMethodPayPal {
		t.Fatalf("expected paypal, got %q err=%v", got, err)
	}
	if !PaymentMethodZelle.PaysToEmail() || PaymentMethodCheck.PaysToEmail() {
		t.Fatalf("unexpected PaysToEmail")
	}
	if !PaymentMethodCard.SettlesByWebhook() || PaymentMethodPayPal.SettlesByWebhook() {
		t.Fatalf("unexpected SettlesByWebhook")
	}
}
