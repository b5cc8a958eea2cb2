package enums

import "fmt"

// ConnectAccountStatus mirrors the gateway connected-account state for a farmer.
type ConnectAccountStatus string

const (
	ConnectAccountStatusPending    ConnectAccountStatus = "pending"
	ConnectAccountStatusRestricted ConnectAccountStatus = "restricted"
	ConnectAccountStatusEnabled    ConnectAccountStatus = "enabled"
	ConnectAccountStatusRejected   ConnectAccountStatus = "rejected"
)

var validConnectAccountStatuses = []ConnectAccountStatus{
	ConnectAccountStatusPending,
	ConnectAccountStatusRestricted,
	ConnectAccountStatusEnabled,
	ConnectAccountStatusRejected,
}

// String implements fmt.Stringer.
func (s ConnectAccountStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ConnectAccountStatus) IsValid() bool {
	for _, candidate := range validConnectAccountStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseConnectAccountStatus converts raw input into a ConnectAccountStatus.
func ParseConnectAccountStatus(value string) (ConnectAccountStatus, error) {
	for _, candidate := range validConnectAccountStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid connect account status %q", value)
}
