package entities

import "time"

type OrgType string

const (
	OrgTypeHospital OrgType = "hospital"
	OrgTypeProvider OrgType = "provider"
)

type Organization struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Type      OrgType   `db:"type"`
	City      *string   `db:"city"`
	CreatedAt time.Time `db:"created_at"`
}

// ProviderProfile is the marketplace-facing profile a provider
// organization needs before it may submit quotes.
type ProviderProfile struct {
	ID             int64     `db:"id"`
	OrganizationID int64     `db:"organization_id"`
	Specialties    []string  `db:"specialties"`
	Verified       bool      `db:"verified"`
	CreatedAt      time.Time `db:"created_at"`
}
