package domain

import "time"

// ToastType is the visual severity of a notification.
type ToastType string

const (
	ToastInfo    ToastType = "info"
	ToastSuccess ToastType = "success"
	ToastWarning ToastType = "warning"
	ToastError   ToastType = "error"
)

// ToastAction is an optional button attached to a toast.
type ToastAction struct {
	Label   string
	OnClick func()
}

// Toast is a request to show a notification.
type Toast struct {
	Message  string
	Type     ToastType
	Duration time.Duration // 0 = until hidden
	Action   *ToastAction
}

// ToastView is the read model of a visible toast.
type ToastView struct {
	ID          string     `json:"id"`
	Message     string     `json:"message"`
	Type        ToastType  `json:"type"`
	ActionLabel string     `json:"action_label,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
