package entities

import "time"

type Equipment struct {
	ID             int64     `db:"id"`
	OrganizationID int64     `db:"organization_id"`
	Name           string    `db:"name"`
	Model          *string   `db:"model"`
	SerialNumber   *string   `db:"serial_number"`
	Location       *string   `db:"location"`
	CreatedAt      time.Time `db:"created_at"`
}
