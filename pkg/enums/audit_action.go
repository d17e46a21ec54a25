package enums

import "fmt"

// AuditAction names the mutation recorded by an admin audit log entry.
type AuditAction string

const (
	AuditActionCreateOrder          AuditAction = "create_order"
	AuditActionGenerateInboundLabel AuditAction = "generate_inbound_label"
	AuditActionVoidLabel            AuditAction = "void_label"
	AuditActionAppendActivity       AuditAction = "append_activity"
	AuditActionUpdateOrderStatus    AuditAction = "update_order_status"
	AuditActionMarkPaymentPaid      AuditAction = "mark_payment_paid"
	AuditActionApplyTrackingUpdate  AuditAction = "apply_tracking_update"
	AuditActionProposeReOffer       AuditAction = "propose_re_offer"
	AuditActionCustomerAction       AuditAction = "customer_action"
	AuditActionDeleteOrder          AuditAction = "delete_order"
)

var validAuditActions = []AuditAction{
	AuditActionCreateOrder,
	AuditActionGenerateInboundLabel,
	AuditActionVoidLabel,
	AuditActionAppendActivity,
	AuditActionUpdateOrderStatus,
	AuditActionMarkPaymentPaid,
	AuditActionApplyTrackingUpdate,
	AuditActionProposeReOffer,
	AuditActionCustomerAction,
	AuditActionDeleteOrder,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into a AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
