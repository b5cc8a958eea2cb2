package enums

import "fmt"

// LedgerBillingStatus records how far the seasonal billing job got with a ledger row.
type LedgerBillingStatus string

const (
	LedgerBillingStatusPending         LedgerBillingStatus = "pending"
	LedgerBillingStatusNoCharge        LedgerBillingStatus = "no_charge"
	LedgerBillingStatusNoPaymentMethod LedgerBillingStatus = "no_payment_method"
	LedgerBillingStatusInvoiced        LedgerBillingStatus = "invoiced"
	LedgerBillingStatusError           LedgerBillingStatus = "error"
)

var validLedgerBillingStatuses = []LedgerBillingStatus{
	LedgerBillingStatusPending,
	LedgerBillingStatusNoCharge,
	LedgerBillingStatusNoPaymentMethod,
	LedgerBillingStatusInvoiced,
	LedgerBillingStatusError,
}

// String implements fmt.Stringer.
func (s LedgerBillingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s LedgerBillingStatus) IsValid() bool {
	for _, candidate := range validLedgerBillingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerBillingStatus converts raw input into a LedgerBillingStatus.
func ParseLedgerBillingStatus(value string) (LedgerBillingStatus, error) {
	for _, candidate := range validLedgerBillingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger billing status %q", value)
}
