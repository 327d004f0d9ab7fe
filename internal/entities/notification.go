package entities

import "time"

// Notification is the persisted trigger record for an external
// notifier. Delivery is out of scope; this row is the hand-off point.
type Notification struct {
	ID             int64     `db:"id"`
	OrganizationID int64     `db:"organization_id"`
	ResourceType   string    `db:"resource_type"`
	ResourceID     string    `db:"resource_id"`
	Action         string    `db:"action"`
	MessageVI      string    `db:"message_vi"`
	MessageEN      string    `db:"message_en"`
	CreatedAt      time.Time `db:"created_at"`
}
