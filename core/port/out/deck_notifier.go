package out

import "taskdeck/core/domain"

// Notifier is the toast surface. A shown toast can later be hidden by the id
// returned from Show; hiding an unknown or expired id is a no-op.
type Notifier interface {
	Show(toast domain.Toast) string
	Hide(id string)
}
