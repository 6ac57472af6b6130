package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderCreated    NotificationType = "order_created"
	NotificationTypeOrderStatus     NotificationType = "order_status"
	NotificationTypeDeliveryUpdate  NotificationType = "delivery_update"
	NotificationTypeReviewCreated   NotificationType = "review_created"
	NotificationTypePendingReminder NotificationType = "pending_reminder"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderCreated,
	NotificationTypeOrderStatus,
	NotificationTypeDeliveryUpdate,
	NotificationTypeReviewCreated,
	NotificationTypePendingReminder,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
