package enums

import "fmt"

// DeliveryStatus maps to the delivery_status enum in Postgres.
type DeliveryStatus string

const (
	DeliveryStatusUnassigned DeliveryStatus = "UNASSIGNED"
	DeliveryStatusAssigned   DeliveryStatus = "ASSIGNED"
	DeliveryStatusPickedUp   DeliveryStatus = "PICKED_UP"
	DeliveryStatusDelivered  DeliveryStatus = "DELIVERED"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusUnassigned,
	DeliveryStatusAssigned,
	DeliveryStatusPickedUp,
	DeliveryStatusDelivered,
}

// IsValid reports whether the value matches the canonical delivery_status enum.
func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Next returns the status that follows s on the linear rider flow.
func (s DeliveryStatus) Next() (DeliveryStatus, bool) {
	switch s {
	case DeliveryStatusAssigned:
		return DeliveryStatusPickedUp, true
	case DeliveryStatusPickedUp:
		return DeliveryStatusDelivered, true
	default:
		return "", false
	}
}

// ParseDeliveryStatus converts the raw string to DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
