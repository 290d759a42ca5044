package domain

type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleBusiness Role = "BUSINESS"
	RoleDelivery Role = "DELIVERY"
	RoleAdmin    Role = "ADMIN"
)

type NotificationType string

const (
	NotificationInfo     NotificationType = "info"
	NotificationSuccess  NotificationType = "success"
	NotificationWarning  NotificationType = "warning"
	NotificationError    NotificationType = "error"
	NotificationNewOrder NotificationType = "new_order"
)

// Notification is a role-scoped event describing an order-lifecycle change
// or a quick message. The bus broadcasts every notification to every
// subscriber; listeners filter on Role themselves so a single dashboard
// (admin) can react to several roles at once. Notifications are not
// persisted: whoever is subscribed at publish time gets it, once.
type Notification struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Role    Role             `json:"role"`
	OrderID string           `json:"order_id,omitempty"`
	Order   *Order           `json:"order,omitempty"`
	Type    NotificationType `json:"type"`
	Icon    string           `json:"icon,omitempty"`
}
