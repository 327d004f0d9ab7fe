// Package seeders populates a development database with a small
// marketplace: two hospitals, two verified providers, users on both
// sides and a handful of equipment. It is operational tooling only and
// is never imported by the server.
package seeders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediserve/pkg/utils"
)

type seedUser struct {
	Email    string
	Password string
	FullName string
	Role     string
}

type seedOrg struct {
	Name  string
	Type  string
	City  string
	Users []seedUser
}

var demoOrgs = []seedOrg{
	{
		Name: "Bệnh viện Đa khoa Trung ương", Type: "hospital", City: "Hà Nội",
		Users: []seedUser{
			{Email: "owner@bvtw.vn", Password: "owner-pass-1", FullName: "Nguyễn Văn An", Role: "owner"},
			{Email: "admin@bvtw.vn", Password: "admin-pass-1", FullName: "Trần Thị Bình", Role: "admin"},
			{Email: "staff@bvtw.vn", Password: "staff-pass-1", FullName: "Lê Văn Cường", Role: "member"},
		},
	},
	{
		Name: "Bệnh viện Chợ Rẫy", Type: "hospital", City: "TP. Hồ Chí Minh",
		Users: []seedUser{
			{Email: "owner@choray.vn", Password: "owner-pass-2", FullName: "Phạm Thị Dung", Role: "owner"},
		},
	},
	{
		Name: "Công ty Kỹ thuật Y tế Việt", Type: "provider", City: "Hà Nội",
		Users: []seedUser{
			{Email: "owner@ktyv.vn", Password: "owner-pass-3", FullName: "Hoàng Văn Em", Role: "owner"},
			{Email: "tech@ktyv.vn", Password: "tech-pass-3", FullName: "Đỗ Thị Phương", Role: "member"},
		},
	},
	{
		Name: "MedTech Service Saigon", Type: "provider", City: "TP. Hồ Chí Minh",
		Users: []seedUser{
			{Email: "owner@mtss.vn", Password: "owner-pass-4", FullName: "Vũ Văn Giang", Role: "owner"},
		},
	},
}

var demoEquipment = []struct {
	Name   string
	Model  string
	Serial string
}{
	{"Máy X-quang kỹ thuật số", "Siemens Ysio Max", "XR-2021-001"},
	{"Máy siêu âm", "GE Voluson E10", "US-2022-014"},
	{"Máy thở", "Dräger Evita V500", "VN-2020-087"},
}

// SeedDemoData inserts the demo marketplace. It is idempotent per
// organization name: already-seeded organizations are skipped.
func SeedDemoData(ctx context.Context, pool *pgxpool.Pool) error {
	for _, org := range demoOrgs {
		var exists bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM organizations WHERE name = $1)`, org.Name).Scan(&exists); err != nil {
			return fmt.Errorf("checking organization %q: %w", org.Name, err)
		}
		if exists {
			continue
		}

		var orgID int64
		if err := pool.QueryRow(ctx,
			`INSERT INTO organizations (name, type, city) VALUES ($1, $2, $3) RETURNING id`,
			org.Name, org.Type, org.City).Scan(&orgID); err != nil {
			return fmt.Errorf("inserting organization %q: %w", org.Name, err)
		}

		if org.Type == "provider" {
			if _, err := pool.Exec(ctx,
				`INSERT INTO provider_profiles (organization_id, specialties, verified)
				 VALUES ($1, $2, TRUE)`,
				orgID, []string{"imaging", "ventilators", "general"}); err != nil {
				return fmt.Errorf("inserting provider profile for %q: %w", org.Name, err)
			}
		}

		if org.Type == "hospital" {
			for _, eq := range demoEquipment {
				if _, err := pool.Exec(ctx,
					`INSERT INTO equipment (organization_id, name, model, serial_number)
					 VALUES ($1, $2, $3, $4)`,
					orgID, eq.Name, eq.Model, eq.Serial); err != nil {
					return fmt.Errorf("inserting equipment for %q: %w", org.Name, err)
				}
			}
		}

		for _, u := range org.Users {
			hash, err := utils.HashPassword(u.Password)
			if err != nil {
				return fmt.Errorf("hashing password for %s: %w", u.Email, err)
			}
			var userID int64
			if err := pool.QueryRow(ctx,
				`INSERT INTO users (email, password_hash, full_name) VALUES ($1, $2, $3) RETURNING id`,
				u.Email, hash, u.FullName).Scan(&userID); err != nil {
				return fmt.Errorf("inserting user %s: %w", u.Email, err)
			}
			if _, err := pool.Exec(ctx,
				`INSERT INTO memberships (user_id, organization_id, role, active) VALUES ($1, $2, $3, TRUE)`,
				userID, orgID, u.Role); err != nil {
				return fmt.Errorf("inserting membership for %s: %w", u.Email, err)
			}
		}
	}
	return nil
}
